// Package worker implements the consumer worker (spec §4.6, component C7):
// the single background goroutine that drains the staging queues, applies
// filtering/serialization/projection, and writes documents to the search
// backend.
//
// Grounded on original_source's consume_blocks (the wait/swap/process loop
// and its fixed processing order) and on the teacher's
// pkg/indexer/activity/accounts.go for structuring a Context-style struct
// that owns its collaborators and logs a per-batch summary.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eosio-elastic/indexer/pkg/esclient"
	"github.com/eosio-elastic/indexer/pkg/filter"
	"github.com/eosio-elastic/indexer/pkg/gate"
	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"github.com/eosio-elastic/indexer/pkg/projector"
	"github.com/eosio-elastic/indexer/pkg/realtime"
	"github.com/eosio-elastic/indexer/pkg/serializer"
	"github.com/eosio-elastic/indexer/pkg/staging"
	"github.com/eosio-elastic/indexer/pkg/txsign"
	"go.uber.org/zap"
)

const (
	docTypeBlockStates       = "block_states"
	docTypeBlocks            = "blocks"
	docTypeTransactions      = "transactions"
	docTypeTransactionTraces = "transaction_traces"
	docTypeActionTraces      = "action_traces"

	batchTimeWarnThreshold = 500 * time.Millisecond
)

// StoreFlags mirrors the store_* configuration booleans (spec §6).
type StoreFlags struct {
	Blocks            bool
	BlockStates       bool
	Transactions      bool
	TransactionTraces bool
	ActionTraces      bool
}

// FatalHandler is invoked when the search client reports an error that
// spec §7 says must abort the process: "all search-client failures inside
// the worker route through a common handler ... and requests process-wide
// shutdown".
type FatalHandler func(op string, err error)

// Worker drains a Staging area and applies the processing rules of spec
// §4.6.
type Worker struct {
	Staging    *staging.Staging
	Client     *esclient.Client
	Filter     *filter.Filter
	Serializer *serializer.Serializer
	Projector  *projector.Projector
	Gate       *gate.Gate
	ChainID    []byte
	Store      StoreFlags
	Logger     *zap.Logger
	Publisher  *realtime.Publisher
	OnFatal    FatalHandler
	Clock      func() time.Time
}

func (w *Worker) now() hostevents.Timestamp {
	clock := w.Clock
	if clock == nil {
		clock = time.Now
	}
	return hostevents.Timestamp(clock().UnixMilli())
}

// Run blocks, processing batches until the staging area reports done and
// drained (spec §4.6 step 5). It is meant to run on its own goroutine,
// started by pkg/lifecycle.
func (w *Worker) Run(ctx context.Context) {
	for {
		batch, more := w.Staging.WaitForWork()
		if batch.Empty() {
			if !more {
				return
			}
			continue
		}

		start := time.Now()
		w.processBatch(ctx, batch)
		elapsed := time.Since(start)
		if elapsed > batchTimeWarnThreshold {
			w.Logger.Warn("batch exceeded time budget",
				zap.Duration("elapsed", elapsed),
				zap.Int("size", batch.Size()))
		}

		if !more {
			return
		}
	}
}

// processBatch applies the fixed ordering from spec §4.6 step 3: applied
// traces, then accepted transactions, then accepted blocks, then
// irreversible blocks.
func (w *Worker) processBatch(ctx context.Context, batch staging.Batch) {
	for i := range batch.TransactionTrace {
		w.processTransactionTrace(ctx, &batch.TransactionTrace[i])
	}
	for i := range batch.TransactionMeta {
		w.processTransactionMeta(ctx, &batch.TransactionMeta[i])
	}
	for i := range batch.Block {
		w.processAcceptedBlock(ctx, &batch.Block[i])
	}
	for i := range batch.IrreversibleBlock {
		w.processIrreversibleBlock(ctx, &batch.IrreversibleBlock[i])
	}
}

// processTransactionTrace implements the "Applied trace" rule of spec §4.6.
func (w *Worker) processTransactionTrace(ctx context.Context, trace *hostevents.TransactionTrace) {
	executed := trace.Executed()
	gateOpen := w.Gate.Open()

	var bulkItems []esclient.BulkItem
	anyAdmitted := false
	for i := range trace.ActionTraces {
		trace.ActionTraces[i].Walk(func(at *hostevents.ActionTrace) {
			if executed && at.Receiver == serializer.SystemAccount {
				if err := w.Projector.UpdateAccount(ctx, at.Action); err != nil {
					w.fail("project account action", err)
					return
				}
			}

			if !gateOpen {
				return
			}
			if !w.Filter.Include(at.Action.Account, at.Action.Name, at.Action.Authorization) {
				return
			}
			anyAdmitted = true

			if !w.Store.ActionTraces {
				return
			}
			doc := w.actionTraceDoc(ctx, at)
			bulkItems = append(bulkItems, esclient.BulkItem{Doc: doc})
		})
	}

	if len(bulkItems) > 0 {
		if err := w.Client.Bulk(ctx, docTypeActionTraces, bulkItems); err != nil {
			w.fail("bulk index action traces", err)
			return
		}
		for _, item := range bulkItems {
			w.publish(ctx, docTypeActionTraces, item.Doc)
		}
	}

	// The transaction_traces document is written only when at least one
	// action trace within it passed the filter (invariant: action traces
	// are the ground truth of "was anything emitted for this transaction").
	if gateOpen && w.Store.TransactionTraces && anyAdmitted {
		doc := hostevents.TransactionTraceDoc{
			ID:       trace.ID,
			Trace:    w.transactionTraceVariant(ctx, trace),
			CreateAt: w.now(),
		}
		if err := w.Client.Index(ctx, docTypeTransactionTraces, doc, trace.ID); err != nil {
			w.fail("index transaction trace", err)
			return
		}
		w.publish(ctx, docTypeTransactionTraces, doc)
	}
}

func (w *Worker) actionTraceDoc(ctx context.Context, at *hostevents.ActionTrace) hostevents.ActionTraceDoc {
	variant := w.Serializer.ToVariant(ctx, at.Action.Account, at.Action.Name, at.Action.Data)
	doc := map[string]any{
		"account":        string(at.Action.Account),
		"name":           string(at.Action.Name),
		"receiver":       string(at.Receiver),
		"executed":       at.Executed,
		"global_seq":     at.GlobalSeq,
		"action_ordinal": at.ActionOrdinal,
		"data":           variant,
	}
	return hostevents.ActionTraceDoc{Doc: doc, CreateAt: w.now()}
}

func (w *Worker) transactionTraceVariant(ctx context.Context, trace *hostevents.TransactionTrace) map[string]any {
	status := hostevents.StatusOther
	if trace.Receipt != nil {
		status = trace.Receipt.Status
	}
	actions := make([]map[string]any, 0, len(trace.ActionTraces))
	for i := range trace.ActionTraces {
		trace.ActionTraces[i].Walk(func(at *hostevents.ActionTrace) {
			actions = append(actions, w.actionTraceDoc(ctx, at).Doc)
		})
	}
	return map[string]any{
		"id":            trace.ID,
		"status":        status,
		"action_traces": actions,
	}
}

// processTransactionMeta implements the "Accepted transaction metadata"
// rule of spec §4.6: it always runs, regardless of the gate, so setabi
// bookkeeping captured via applied traces is never starved (spec invariant
// 6 and the open question in spec §9 about pre-gate transaction writes,
// resolved to "always write").
func (w *Worker) processTransactionMeta(ctx context.Context, meta *hostevents.TransactionMeta) {
	signingKeys := meta.SigningKeys
	if len(signingKeys) == 0 && len(meta.Signatures) > 0 && len(w.ChainID) > 0 {
		keys, err := txsign.RecoverSigningKeys(meta.Signatures, meta.ID, w.ChainID)
		if err != nil {
			w.Logger.Warn("recover signing keys failed", zap.String("trxId", meta.ID), zap.Error(err))
		} else {
			signingKeys = keys
		}
	}

	trxVariant := map[string]any{
		"actions": w.encodeActions(ctx, meta.Trx.Actions),
	}
	doc := hostevents.TransactionDoc{
		TrxID:       meta.ID,
		Trx:         trxVariant,
		SigningKeys: signingKeys,
		Accepted:    meta.Accepted,
		Implicit:    meta.Implicit,
		Scheduled:   meta.Scheduled,
		CreateAt:    w.now(),
	}
	if err := w.Client.Index(ctx, docTypeTransactions, doc, meta.ID); err != nil {
		w.fail("index transaction", err)
		return
	}
	w.publish(ctx, docTypeTransactions, doc)
}

func (w *Worker) encodeActions(ctx context.Context, actions []hostevents.Action) []map[string]any {
	out := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		out = append(out, map[string]any{
			"account": string(a.Account),
			"name":    string(a.Name),
			"data":    w.Serializer.ToVariant(ctx, a.Account, a.Name, a.Data),
		})
	}
	return out
}

// processAcceptedBlock implements the "Accepted block" rule of spec §4.6.
func (w *Worker) processAcceptedBlock(ctx context.Context, bs *hostevents.BlockState) {
	gateOpen := w.Gate.Observe(bs.BlockNum)
	if !gateOpen {
		return
	}

	if w.Store.BlockStates {
		doc := hostevents.BlockStateDoc{
			BlockNum:       bs.BlockNum,
			BlockID:        bs.ID,
			Validated:      bs.Validated,
			InCurrentChain: bs.InCurrentChain,
			CreateAt:       w.now(),
		}
		if err := w.Client.Index(ctx, docTypeBlockStates, doc, bs.ID); err != nil {
			w.fail("index block state", err)
			return
		}
		w.publish(ctx, docTypeBlockStates, doc)
	}

	if w.Store.Blocks {
		blockVariant := map[string]any{
			"transactions": w.blockTransactionVariants(ctx, bs.Block.Transactions),
		}
		doc := hostevents.BlockDoc{
			BlockNum:     bs.BlockNum,
			BlockID:      bs.ID,
			Irreversible: false,
			Block:        blockVariant,
			CreateAt:     w.now(),
		}
		if err := w.Client.Index(ctx, docTypeBlocks, doc, bs.ID); err != nil {
			w.fail("index block", err)
			return
		}
		w.publish(ctx, docTypeBlocks, doc)
	}
}

func (w *Worker) blockTransactionVariants(ctx context.Context, traces []hostevents.TransactionTrace) []map[string]any {
	out := make([]map[string]any, 0, len(traces))
	for i := range traces {
		out = append(out, w.transactionTraceVariant(ctx, &traces[i]))
	}
	return out
}

// processIrreversibleBlock implements the "Irreversible block" rule of
// spec §4.6: currently a no-op, reserved for future `irreversible:true`
// projection onto the `blocks` doc (spec §9 open question, left
// unimplemented per that question's "do not guess" instruction).
func (w *Worker) processIrreversibleBlock(_ context.Context, bs *hostevents.BlockState) {
	if !w.Gate.Open() {
		return
	}
	w.Logger.Debug("irreversible block observed (no-op)", zap.Uint64("blockNum", bs.BlockNum))
}

func (w *Worker) publish(ctx context.Context, docType string, doc any) {
	if w.Publisher == nil {
		return
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return
	}
	w.Publisher.Publish(ctx, docType, payload)
}

func (w *Worker) fail(op string, err error) {
	w.Logger.Error("search client failure", zap.String("op", op), zap.Error(err))
	if w.OnFatal != nil {
		w.OnFatal(op, err)
	}
}
