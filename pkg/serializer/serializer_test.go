package serializer

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/eosio-elastic/indexer/pkg/abicache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAbiSource struct {
	abis map[string]*abicache.AbiDef
}

func (f *fakeAbiSource) AccountAbi(_ context.Context, account string) (*abicache.AbiDef, bool, error) {
	abi, ok := f.abis[account]
	return abi, ok, nil
}

func transferAbi() *abicache.AbiDef {
	return &abicache.AbiDef{
		Structs: []abicache.StructDef{
			{Name: "transfer", Fields: []abicache.FieldDef{
				{Name: "from", Type: "name"},
				{Name: "to", Type: "name"},
				{Name: "memo", Type: "string"},
			}},
		},
		Actions: map[string]string{"transfer": "transfer"},
	}
}

func TestSerializer_ToVariant_DecodesKnownAction(t *testing.T) {
	src := &fakeAbiSource{abis: map[string]*abicache.AbiDef{"token": transferAbi()}}
	s := New(abicache.New(8), src)

	buf := []byte{}
	buf = appendName(buf, "alice")
	buf = appendName(buf, "bob")
	buf = appendVarString(buf, "hi")

	out := s.ToVariant(context.Background(), "token", "transfer", buf)
	assert.Equal(t, "alice", out["from"])
	assert.Equal(t, "bob", out["to"])
	assert.Equal(t, "hi", out["memo"])
}

func TestSerializer_ToVariant_FallsBackToRawWhenNoAbi(t *testing.T) {
	src := &fakeAbiSource{abis: map[string]*abicache.AbiDef{}}
	s := New(abicache.New(8), src)

	out := s.ToVariant(context.Background(), "unknown", "whatever", []byte{1, 2, 3})
	_, ok := out["raw"]
	assert.True(t, ok)
}

func TestSerializer_GetDeserializer_CachesResult(t *testing.T) {
	src := &fakeAbiSource{abis: map[string]*abicache.AbiDef{"token": transferAbi()}}
	s := New(abicache.New(8), src)

	abi1, err := s.GetDeserializer(context.Background(), "token")
	require.NoError(t, err)
	require.NotNil(t, abi1)

	delete(src.abis, "token")
	abi2, err := s.GetDeserializer(context.Background(), "token")
	require.NoError(t, err)
	assert.Same(t, abi1, abi2, "second call must be served from cache, not re-fetched")
}

func TestSerializer_InvalidateCache(t *testing.T) {
	src := &fakeAbiSource{abis: map[string]*abicache.AbiDef{"token": transferAbi()}}
	s := New(abicache.New(8), src)

	_, err := s.GetDeserializer(context.Background(), "token")
	require.NoError(t, err)

	s.InvalidateCache("token")
	delete(src.abis, "token")

	abi, err := s.GetDeserializer(context.Background(), "token")
	require.NoError(t, err)
	assert.Nil(t, abi, "invalidated + source now empty must miss")
}

func TestSpecializeSetabi_RewritesAbiField(t *testing.T) {
	abi := &abicache.AbiDef{
		Structs: []abicache.StructDef{
			{Name: "setabi", Fields: []abicache.FieldDef{
				{Name: "account", Type: "name"},
				{Name: "abi", Type: "bytes"},
			}},
		},
	}
	specializeSetabi(abi)
	sdef, ok := abi.StructByName("setabi")
	require.True(t, ok)
	assert.Equal(t, "abi_def", sdef.Fields[1].Type)
}

func appendName(buf []byte, n string) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], encodeEosName(n))
	return append(buf, b[:]...)
}

func appendVarString(buf []byte, s string) []byte {
	buf = appendVaruint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendVaruint(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// encodeEosName is the inverse of pkg/binary.DecodeName, kept local to this
// test file since production code only ever decodes names.
func encodeEosName(s string) uint64 {
	const charmap = ".12345abcdefghijklmnopqrstuvwxyz"
	idx := func(c byte) uint64 {
		for i := 0; i < len(charmap); i++ {
			if charmap[i] == c {
				return uint64(i)
			}
		}
		return 0
	}
	if len(s) > 13 {
		s = s[:13]
	}
	var v uint64
	for i := 0; i < 12; i++ {
		var c byte = '.'
		if i < len(s) {
			c = s[i]
		}
		v |= idx(c) << (59 - uint64(5*i))
	}
	if len(s) == 13 {
		v |= idx(s[12]) & 0x0f
	}
	return v
}
