// Package ingress implements the four host-emitter callbacks (spec §4.5,
// component C8): each enqueues into the matching staging queue with
// exception isolation, so a bug in enqueueing (or anywhere downstream)
// never propagates back into the host's signal path.
//
// Grounded on original_source's accepted_transaction/applied_transaction/
// accepted_block/irreversible_block handlers, which wrap the whole body in
// a catch-all and log rather than let an exception escape into chainbase's
// signal dispatch.
package ingress

import (
	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"github.com/eosio-elastic/indexer/pkg/staging"
	"go.uber.org/zap"
)

// Ingress binds the four host callbacks to a Staging area.
type Ingress struct {
	Staging *staging.Staging
	Logger  *zap.Logger
}

// New builds an Ingress over st, logging isolated panics through logger.
func New(st *staging.Staging, logger *zap.Logger) *Ingress {
	return &Ingress{Staging: st, Logger: logger}
}

func (i *Ingress) isolate(callback string) {
	if r := recover(); r != nil {
		i.Logger.Error("ingress callback panicked, event dropped",
			zap.String("callback", callback),
			zap.Any("recover", r))
	}
}

// AcceptedTransaction enqueues an accepted-transaction event.
func (i *Ingress) AcceptedTransaction(meta hostevents.TransactionMeta) {
	defer i.isolate("accepted_transaction")
	i.Staging.EnqueueTransactionMeta(meta)
}

// AppliedTransaction enqueues an applied-transaction event.
func (i *Ingress) AppliedTransaction(trace hostevents.TransactionTrace) {
	defer i.isolate("applied_transaction")
	i.Staging.EnqueueTransactionTrace(trace)
}

// AcceptedBlock enqueues an accepted-block event.
func (i *Ingress) AcceptedBlock(bs hostevents.BlockState) {
	defer i.isolate("accepted_block")
	i.Staging.EnqueueBlock(bs)
}

// IrreversibleBlock enqueues an irreversible-block event.
func (i *Ingress) IrreversibleBlock(bs hostevents.BlockState) {
	defer i.isolate("irreversible_block")
	i.Staging.EnqueueIrreversibleBlock(bs)
}
