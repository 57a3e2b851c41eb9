// Package staging implements the four bounded FIFO queues (spec §4.5,
// component C6): accepted-transaction metadata, applied-transaction traces,
// accepted blocks, and irreversible blocks, all protected by a single
// mutex/condition-variable pair with an adaptive-sleep backpressure signal.
//
// Grounded on original_source's elasticsearch_plugin_impl::queue template
// method and consume_blocks' lock-swap drain, translated into Go's
// sync.Mutex + sync.Cond idiom.
package staging

import (
	"sync"
	"time"

	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"go.uber.org/zap"
)

// Batch is one drained snapshot of all four queues, produced by WaitForWork.
type Batch struct {
	TransactionMeta   []hostevents.TransactionMeta
	TransactionTrace  []hostevents.TransactionTrace
	Block             []hostevents.BlockState
	IrreversibleBlock []hostevents.BlockState
}

// Empty reports whether the batch carries no work at all.
func (b Batch) Empty() bool {
	return len(b.TransactionMeta) == 0 && len(b.TransactionTrace) == 0 &&
		len(b.Block) == 0 && len(b.IrreversibleBlock) == 0
}

// Size is the total number of items across all four queues.
func (b Batch) Size() int {
	return len(b.TransactionMeta) + len(b.TransactionTrace) + len(b.Block) + len(b.IrreversibleBlock)
}

// Staging holds the four bounded queues behind one mutex/condvar pair, plus
// the adaptive-sleep counter and the done flag (spec §5: "A single mutex M
// guards the four queues, the done flag, and the adaptive_sleep_ms
// counter").
type Staging struct {
	mu   sync.Mutex
	cond *sync.Cond

	maxQueueSize    int
	adaptiveSleepMs int
	done            bool

	transactionMeta   []hostevents.TransactionMeta
	transactionTrace  []hostevents.TransactionTrace
	block             []hostevents.BlockState
	irreversibleBlock []hostevents.BlockState

	logger *zap.Logger
}

// New creates a Staging with the given maximum queue size (spec default
// 1024).
func New(maxQueueSize int, logger *zap.Logger) *Staging {
	s := &Staging{maxQueueSize: maxQueueSize, logger: logger}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// sleepLocked applies the adaptive-sleep backpressure policy (spec §4.5
// step 2/3) for a queue currently holding size items. Must be called with
// s.mu held; it releases and reacquires the lock while sleeping.
func (s *Staging) sleepLocked(size int) {
	if size > s.maxQueueSize {
		s.adaptiveSleepMs += 10
		sleepMs := s.adaptiveSleepMs
		s.mu.Unlock()
		s.cond.Signal()
		if sleepMs > 1000 {
			s.logger.Warn("staging queue saturated", zap.Int("queueSize", size), zap.Int("adaptiveSleepMs", sleepMs))
		}
		time.Sleep(time.Duration(sleepMs) * time.Millisecond)
		s.mu.Lock()
		return
	}
	s.adaptiveSleepMs -= 10
	if s.adaptiveSleepMs < 0 {
		s.adaptiveSleepMs = 0
	}
}

// EnqueueTransactionMeta appends t to the accepted-transaction queue.
func (s *Staging) EnqueueTransactionMeta(t hostevents.TransactionMeta) {
	s.mu.Lock()
	s.sleepLocked(len(s.transactionMeta))
	s.transactionMeta = append(s.transactionMeta, t)
	s.mu.Unlock()
	s.cond.Signal()
}

// EnqueueTransactionTrace appends t to the applied-transaction queue.
func (s *Staging) EnqueueTransactionTrace(t hostevents.TransactionTrace) {
	s.mu.Lock()
	s.sleepLocked(len(s.transactionTrace))
	s.transactionTrace = append(s.transactionTrace, t)
	s.mu.Unlock()
	s.cond.Signal()
}

// EnqueueBlock appends bs to the accepted-block queue.
func (s *Staging) EnqueueBlock(bs hostevents.BlockState) {
	s.mu.Lock()
	s.sleepLocked(len(s.block))
	s.block = append(s.block, bs)
	s.mu.Unlock()
	s.cond.Signal()
}

// EnqueueIrreversibleBlock appends bs to the irreversible-block queue.
func (s *Staging) EnqueueIrreversibleBlock(bs hostevents.BlockState) {
	s.mu.Lock()
	s.sleepLocked(len(s.irreversibleBlock))
	s.irreversibleBlock = append(s.irreversibleBlock, bs)
	s.mu.Unlock()
	s.cond.Signal()
}

// Shutdown marks the staging area done and wakes the consumer so it can
// drain and exit (spec §4.7 shutdown order).
func (s *Staging) Shutdown() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// WaitForWork blocks until any queue is non-empty or Shutdown has been
// called, then swaps all four queues into a Batch under one lock (spec
// §4.6 steps 1-2). The second return value is false once every queue is
// empty and Shutdown has been called — the worker's exit condition.
func (s *Staging) WaitForWork() (Batch, bool) {
	s.mu.Lock()
	for len(s.transactionMeta) == 0 && len(s.transactionTrace) == 0 &&
		len(s.block) == 0 && len(s.irreversibleBlock) == 0 && !s.done {
		s.cond.Wait()
	}

	batch := Batch{
		TransactionMeta:   s.transactionMeta,
		TransactionTrace:  s.transactionTrace,
		Block:             s.block,
		IrreversibleBlock: s.irreversibleBlock,
	}
	s.transactionMeta = nil
	s.transactionTrace = nil
	s.block = nil
	s.irreversibleBlock = nil
	done := s.done
	s.mu.Unlock()

	if batch.Empty() && done {
		return batch, false
	}
	return batch, true
}

// AdaptiveSleepMs reports the current backpressure sleep duration, for
// observability (pkg/heartbeat).
func (s *Staging) AdaptiveSleepMs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adaptiveSleepMs
}

// Depths reports the current length of each queue, for observability.
func (s *Staging) Depths() (txMeta, txTrace, block, irreversible int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactionMeta), len(s.transactionTrace), len(s.block), len(s.irreversibleBlock)
}
