package hostbridge

import (
	"testing"

	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_AcceptedBlock_FanOutToAllSubscribers(t *testing.T) {
	e := New()
	var got1, got2 []uint64
	e.SubscribeAcceptedBlock(func(bs hostevents.BlockState) { got1 = append(got1, bs.BlockNum) })
	e.SubscribeAcceptedBlock(func(bs hostevents.BlockState) { got2 = append(got2, bs.BlockNum) })

	e.EmitAcceptedBlock(hostevents.BlockState{BlockNum: 1})
	e.EmitAcceptedBlock(hostevents.BlockState{BlockNum: 2})

	assert.Equal(t, []uint64{1, 2}, got1)
	assert.Equal(t, []uint64{1, 2}, got2)
}

func TestEmitter_Unsubscribe_StopsDelivery(t *testing.T) {
	e := New()
	var count int
	unsub := e.SubscribeAcceptedTransaction(func(hostevents.TransactionMeta) { count++ })

	e.EmitAcceptedTransaction(hostevents.TransactionMeta{ID: "t1"})
	require.Equal(t, 1, count)

	unsub()
	e.EmitAcceptedTransaction(hostevents.TransactionMeta{ID: "t2"})
	assert.Equal(t, 1, count, "no further delivery after unsubscribe")
}

func TestEmitter_IndependentEventKinds(t *testing.T) {
	e := New()
	var blocks, traces int
	e.SubscribeAcceptedBlock(func(hostevents.BlockState) { blocks++ })
	e.SubscribeAppliedTransaction(func(hostevents.TransactionTrace) { traces++ })

	e.EmitAppliedTransaction(hostevents.TransactionTrace{ID: "t1"})
	assert.Equal(t, 0, blocks)
	assert.Equal(t, 1, traces)

	e.EmitIrreversibleBlock(hostevents.BlockState{BlockNum: 5})
	assert.Equal(t, 0, blocks, "irreversible-block subscribers must not see accepted-block events")
}

func TestEmitter_NoSubscribersIsSafe(t *testing.T) {
	e := New()
	assert.NotPanics(t, func() {
		e.EmitAcceptedBlock(hostevents.BlockState{BlockNum: 1})
		e.EmitIrreversibleBlock(hostevents.BlockState{BlockNum: 1})
		e.EmitAcceptedTransaction(hostevents.TransactionMeta{})
		e.EmitAppliedTransaction(hostevents.TransactionTrace{})
	})
}
