package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/eosio-elastic/indexer/pkg/abicache"
	"github.com/eosio-elastic/indexer/pkg/esclient"
	"github.com/eosio-elastic/indexer/pkg/filter"
	"github.com/eosio-elastic/indexer/pkg/gate"
	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"github.com/eosio-elastic/indexer/pkg/projector"
	"github.com/eosio-elastic/indexer/pkg/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type indexRecord struct {
	docType string
	id      string
}

type recordingServer struct {
	mu      sync.Mutex
	indexed []indexRecord
}

func newRecordingServer() *recordingServer {
	return &recordingServer{}
}

func (s *recordingServer) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if r.URL.Path == "/_bulk" {
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": false})
			return
		}
		s.indexed = append(s.indexed, indexRecord{docType: docTypeFromPath(r.URL.Path)})
		w.WriteHeader(http.StatusOK)
	}))
}

func docTypeFromPath(path string) string {
	// "/eos/block_states/<id>" -> "block_states"
	parts := []rune(path)
	_ = parts
	segments := splitPath(path)
	if len(segments) >= 2 {
		return segments[1]
	}
	return ""
}

func splitPath(path string) []string {
	var out []string
	cur := ""
	for _, c := range path {
		if c == '/' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(c)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func newTestWorker(t *testing.T, srv *recordingServer, startBlockNum uint64, store StoreFlags) *Worker {
	t.Helper()
	httpSrv := srv.server()
	t.Cleanup(httpSrv.Close)
	client := esclient.New(esclient.Opts{Endpoints: []string{httpSrv.URL}, IndexName: "eos"})
	ser := serializer.New(abicache.New(8), noopAbiSource{})
	proj := projector.New(client, ser, zap.NewNop())
	f := filter.New(true, nil, nil)
	g := gate.New(startBlockNum)

	return &Worker{
		Staging:    nil,
		Client:     client,
		Filter:     f,
		Serializer: ser,
		Projector:  proj,
		Gate:       g,
		Store:      store,
		Logger:     zap.NewNop(),
	}
}

type noopAbiSource struct{}

func (noopAbiSource) AccountAbi(_ context.Context, _ string) (*abicache.AbiDef, bool, error) {
	return nil, false, nil
}

func TestWorker_AcceptedBlock_GateScenario(t *testing.T) {
	srv := newRecordingServer()
	w := newTestWorker(t, srv, 100, StoreFlags{BlockStates: true})

	w.processAcceptedBlock(context.Background(), &hostevents.BlockState{BlockNum: 99, ID: "b99"})
	srv.mu.Lock()
	assert.Empty(t, srv.indexed, "block below start_block_num must not be written")
	srv.mu.Unlock()
	assert.False(t, w.Gate.Open())

	w.processAcceptedBlock(context.Background(), &hostevents.BlockState{BlockNum: 100, ID: "b100"})
	srv.mu.Lock()
	require.Len(t, srv.indexed, 1)
	assert.Equal(t, "block_states", srv.indexed[0].docType)
	srv.mu.Unlock()
	assert.True(t, w.Gate.Open())
}

func TestWorker_AcceptedBlock_StoreBlocksAlsoWritesBlockDoc(t *testing.T) {
	srv := newRecordingServer()
	w := newTestWorker(t, srv, 0, StoreFlags{BlockStates: true, Blocks: true})

	w.processAcceptedBlock(context.Background(), &hostevents.BlockState{BlockNum: 1, ID: "b1"})

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.indexed, 2)
	types := map[string]bool{srv.indexed[0].docType: true, srv.indexed[1].docType: true}
	assert.True(t, types["block_states"])
	assert.True(t, types["blocks"])
}

func TestWorker_TransactionTrace_ActionTraceFilteredOut(t *testing.T) {
	srv := newRecordingServer()
	w := newTestWorker(t, srv, 0, StoreFlags{ActionTraces: true, TransactionTraces: true})
	w.Filter = filter.New(false, nil, nil) // nothing admitted

	trace := &hostevents.TransactionTrace{
		ID:      "t1",
		Receipt: &hostevents.TransactionReceipt{Status: hostevents.StatusExecuted},
		ActionTraces: []hostevents.ActionTrace{
			{Action: hostevents.Action{Account: "usertoken", Name: "transfer"}, Receiver: "usertoken", Executed: true},
		},
	}
	w.processTransactionTrace(context.Background(), trace)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Empty(t, srv.indexed, "no transaction_traces doc should be written when nothing passed the filter")
}
