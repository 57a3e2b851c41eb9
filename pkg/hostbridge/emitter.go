// Package hostbridge is the boundary adapter between the host blockchain
// node's signal source and pkg/lifecycle.HostEmitter. The host node itself
// is an opaque external collaborator (spec §1's "Out of scope: the host
// node signal source"); Emitter is the small piece of glue that turns
// whatever transport the operator's node exposes (state-history websocket,
// an in-process plugin hook, a message bus) into the four typed callbacks
// the pipeline subscribes to.
package hostbridge

import (
	"sync"

	"github.com/eosio-elastic/indexer/pkg/hostevents"
)

type subscriberID uint64

// Emitter is a minimal in-process pub-sub broadcaster satisfying
// lifecycle.HostEmitter. A driver goroutine (owned by whatever connects to
// the actual host node) calls the Emit* methods; the pipeline calls the
// Subscribe* methods.
type Emitter struct {
	mu     sync.RWMutex
	nextID subscriberID

	acceptedTransaction map[subscriberID]func(hostevents.TransactionMeta)
	appliedTransaction  map[subscriberID]func(hostevents.TransactionTrace)
	acceptedBlock       map[subscriberID]func(hostevents.BlockState)
	irreversibleBlock   map[subscriberID]func(hostevents.BlockState)
}

// New builds an empty Emitter.
func New() *Emitter {
	return &Emitter{
		acceptedTransaction: make(map[subscriberID]func(hostevents.TransactionMeta)),
		appliedTransaction:  make(map[subscriberID]func(hostevents.TransactionTrace)),
		acceptedBlock:       make(map[subscriberID]func(hostevents.BlockState)),
		irreversibleBlock:   make(map[subscriberID]func(hostevents.BlockState)),
	}
}

func (e *Emitter) SubscribeAcceptedTransaction(fn func(hostevents.TransactionMeta)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.acceptedTransaction[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.acceptedTransaction, id)
	}
}

func (e *Emitter) SubscribeAppliedTransaction(fn func(hostevents.TransactionTrace)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.appliedTransaction[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.appliedTransaction, id)
	}
}

func (e *Emitter) SubscribeAcceptedBlock(fn func(hostevents.BlockState)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.acceptedBlock[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.acceptedBlock, id)
	}
}

func (e *Emitter) SubscribeIrreversibleBlock(fn func(hostevents.BlockState)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.irreversibleBlock[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.irreversibleBlock, id)
	}
}

// EmitAcceptedTransaction fans out to every current subscriber. Delivery
// order matches host emission (spec §6): this dispatch never reorders.
func (e *Emitter) EmitAcceptedTransaction(meta hostevents.TransactionMeta) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.acceptedTransaction {
		fn(meta)
	}
}

func (e *Emitter) EmitAppliedTransaction(trace hostevents.TransactionTrace) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.appliedTransaction {
		fn(trace)
	}
}

func (e *Emitter) EmitAcceptedBlock(bs hostevents.BlockState) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.acceptedBlock {
		fn(bs)
	}
}

func (e *Emitter) EmitIrreversibleBlock(bs hostevents.BlockState) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.irreversibleBlock {
		fn(bs)
	}
}
