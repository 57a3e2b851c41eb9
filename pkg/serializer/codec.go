package serializer

import (
	"encoding/base64"
	"fmt"

	"github.com/eosio-elastic/indexer/pkg/abicache"
	"github.com/eosio-elastic/indexer/pkg/binary"
)

// decodeValue decodes one value of the named ABI type from r, resolving
// nested struct types through abi. It implements the primitive and
// container shapes the pipeline actually needs to serve spec §4.2/§4.4:
// name, string, bytes, bool, unsigned integers, "T[]" arrays, "T?"
// optionals, and named struct types (with single-level base inheritance).
func decodeValue(r *binary.Reader, typ string, abi *abicache.AbiDef) (any, error) {
	if n := len(typ); n > 0 && typ[n-1] == '?' {
		present, err := r.Byte()
		if err != nil {
			return nil, err
		}
		if present == 0 {
			return nil, nil
		}
		return decodeValue(r, typ[:n-1], abi)
	}
	if n := len(typ); n > 1 && typ[n-2:] == "[]" {
		count, err := r.Varuint()
		if err != nil {
			return nil, err
		}
		elemType := typ[:n-2]
		out := make([]any, 0, count)
		for i := uint64(0); i < count; i++ {
			v, err := decodeValue(r, elemType, abi)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	switch typ {
	case "bool":
		b, err := r.Byte()
		return b != 0, err
	case "uint8", "int8":
		b, err := r.Byte()
		return uint64(b), err
	case "uint16", "int16":
		v, err := r.Uint16()
		return uint64(v), err
	case "uint32", "int32":
		v, err := r.Uint32()
		return uint64(v), err
	case "uint64", "int64":
		return r.Uint64()
	case "name":
		return r.Name()
	case "string":
		return r.String()
	case "bytes":
		return r.VarBytes()
	case "abi_def":
		// The specialized setabi.abi field (spec §4.2 step 4): still wire-
		// encoded as a plain byte string, but decoded a second time as a
		// nested ABI definition rather than surfaced as opaque bytes.
		raw, err := r.VarBytes()
		if err != nil {
			return nil, err
		}
		nested, err := ParseAbiDef(raw)
		if err != nil {
			return nil, fmt.Errorf("decode nested abi_def: %w", err)
		}
		return AbiDefToDoc(nested), nil
	}

	// Named struct type.
	if abi == nil {
		return nil, fmt.Errorf("unknown type %q with no abi to resolve it", typ)
	}
	sdef, ok := abi.StructByName(typ)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", typ)
	}
	return decodeStruct(r, sdef, abi)
}

func decodeStruct(r *binary.Reader, sdef abicache.StructDef, abi *abicache.AbiDef) (map[string]any, error) {
	out := map[string]any{}
	if sdef.Base != "" {
		if baseDef, ok := abi.StructByName(sdef.Base); ok {
			baseOut, err := decodeStruct(r, baseDef, abi)
			if err != nil {
				return nil, fmt.Errorf("decode base %q of %q: %w", sdef.Base, sdef.Name, err)
			}
			for k, v := range baseOut {
				out[k] = v
			}
		}
	}
	for _, f := range sdef.Fields {
		v, err := decodeValue(r, f.Type, abi)
		if err != nil {
			return nil, fmt.Errorf("decode field %q of %q: %w", f.Name, sdef.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

// rawFallback renders undecodable bytes as base64, used whenever the ABI
// can't resolve an action's payload (spec §4.2 step 3, "variant conversion
// will fall back to raw bytes").
func rawFallback(data []byte) map[string]any {
	return map[string]any{"raw": base64.StdEncoding.EncodeToString(data)}
}
