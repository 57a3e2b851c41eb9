package abicache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := New(2)
	abi := &AbiDef{Version: "eosio::abi/1.1"}
	c.Put("alice", abi)

	got, ok := c.Get("alice")
	require.True(t, ok)
	assert.Same(t, abi, got)
}

func TestCache_EvictsLeastRecentlyAccessed(t *testing.T) {
	c := New(2)
	c.Put("a", &AbiDef{Version: "a"})
	c.Put("b", &AbiDef{Version: "b"})

	// Touch "a" so "b" becomes the least recently accessed.
	_, _ = c.Get("a")

	c.Put("c", &AbiDef{Version: "c"})

	assert.Equal(t, 2, c.Len())
	_, aOk := c.Get("a")
	_, bOk := c.Get("b")
	_, cOk := c.Get("c")
	assert.True(t, aOk)
	assert.False(t, bOk, "least recently accessed entry should have been evicted")
	assert.True(t, cOk)
}

func TestCache_NeverExceedsCapacity(t *testing.T) {
	c := New(3)
	for i := 0; i < 50; i++ {
		c.Put(string(rune('a'+i%26)), &AbiDef{Version: "v"})
		require.LessOrEqual(t, c.Len(), 3)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New(2)
	c.Put("alice", &AbiDef{Version: "v1"})
	c.Invalidate("alice")

	_, ok := c.Get("alice")
	assert.False(t, ok)
}

func TestStructDef_ByName(t *testing.T) {
	abi := &AbiDef{
		Structs: []StructDef{
			{Name: "base_struct", Fields: []FieldDef{{Name: "id", Type: "uint64"}}},
			{Name: "derived", Base: "base_struct", Fields: []FieldDef{{Name: "extra", Type: "string"}}},
		},
	}
	got, ok := abi.StructByName("derived")
	require.True(t, ok)
	assert.Equal(t, "base_struct", got.Base)

	_, ok = abi.StructByName("missing")
	assert.False(t, ok)
}
