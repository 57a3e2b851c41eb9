package staging

import (
	"sync"
	"testing"
	"time"

	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaging_WaitForWorkDrainsAllFourQueues(t *testing.T) {
	s := New(1024, zap.NewNop())
	s.EnqueueTransactionMeta(hostevents.TransactionMeta{ID: "t1"})
	s.EnqueueTransactionTrace(hostevents.TransactionTrace{ID: "t1"})
	s.EnqueueBlock(hostevents.BlockState{BlockNum: 1})
	s.EnqueueIrreversibleBlock(hostevents.BlockState{BlockNum: 1})

	batch, more := s.WaitForWork()
	require.True(t, more)
	assert.Len(t, batch.TransactionMeta, 1)
	assert.Len(t, batch.TransactionTrace, 1)
	assert.Len(t, batch.Block, 1)
	assert.Len(t, batch.IrreversibleBlock, 1)

	txMeta, txTrace, block, irr := s.Depths()
	assert.Zero(t, txMeta)
	assert.Zero(t, txTrace)
	assert.Zero(t, block)
	assert.Zero(t, irr)
}

func TestStaging_ShutdownDrainsThenExits(t *testing.T) {
	s := New(1024, zap.NewNop())
	s.EnqueueTransactionMeta(hostevents.TransactionMeta{ID: "t1"})
	s.Shutdown()

	batch, more := s.WaitForWork()
	assert.True(t, more, "pending work must be delivered before the done exit")
	assert.Len(t, batch.TransactionMeta, 1)

	batch, more = s.WaitForWork()
	assert.False(t, more)
	assert.True(t, batch.Empty())
}

func TestStaging_ShutdownWakesBlockedConsumer(t *testing.T) {
	s := New(1024, zap.NewNop())

	done := make(chan bool, 1)
	go func() {
		_, more := s.WaitForWork()
		done <- more
	}()

	s.Shutdown()
	select {
	case more := <-done:
		assert.False(t, more)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not woken by Shutdown")
	}
}

func TestStaging_BackpressureNeverDropsEvents(t *testing.T) {
	s := New(2, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			s.EnqueueTransactionMeta(hostevents.TransactionMeta{ID: "t"})
		}
	}()
	wg.Wait()

	batch, _ := s.WaitForWork()
	assert.Len(t, batch.TransactionMeta, 5)

	m, _, _, _ := s.Depths()
	assert.Zero(t, m)
}
