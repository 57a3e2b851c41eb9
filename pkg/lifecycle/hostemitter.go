package lifecycle

import "github.com/eosio-elastic/indexer/pkg/hostevents"

// HostEmitter is the opaque host node signal source (spec §1's "treated as
// an opaque emitter of four event kinds", §6's four inbound callbacks).
// Each Subscribe method returns an unsubscribe handle, modeling the
// "scoped subscription handles owned by the lifecycle controller" design
// note (spec §9) so shutdown can release them before the worker is joined.
type HostEmitter interface {
	SubscribeAcceptedTransaction(func(hostevents.TransactionMeta)) (unsubscribe func())
	SubscribeAppliedTransaction(func(hostevents.TransactionTrace)) (unsubscribe func())
	SubscribeAcceptedBlock(func(hostevents.BlockState)) (unsubscribe func())
	SubscribeIrreversibleBlock(func(hostevents.BlockState)) (unsubscribe func())
}
