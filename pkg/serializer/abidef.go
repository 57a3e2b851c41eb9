package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/eosio-elastic/indexer/pkg/abicache"
)

// abiDefWire is the JSON shape this bridge reads every ABI in: the abi
// payload of a setabi action and the "abi" field of a stored accounts
// document are both parsed as JSON. The binary abi_def encoding is not
// decoded; a setabi payload in that encoding fails to parse (see DESIGN.md).
type abiDefWire struct {
	Version string `json:"version"`
	Structs []struct {
		Name   string `json:"name"`
		Base   string `json:"base"`
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	} `json:"structs"`
	Actions []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"actions"`
}

// ParseAbiDef decodes the JSON-encoded ABI payload into the cache's
// AbiDef shape.
func ParseAbiDef(data []byte) (*abicache.AbiDef, error) {
	var wire abiDefWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal abi_def: %w", err)
	}

	abi := &abicache.AbiDef{
		Version: wire.Version,
		Actions: make(map[string]string, len(wire.Actions)),
	}
	for _, s := range wire.Structs {
		sd := abicache.StructDef{Name: s.Name, Base: s.Base}
		for _, f := range s.Fields {
			sd.Fields = append(sd.Fields, abicache.FieldDef{Name: f.Name, Type: f.Type})
		}
		abi.Structs = append(abi.Structs, sd)
	}
	for _, a := range wire.Actions {
		abi.Actions[a.Name] = a.Type
	}
	return abi, nil
}

// AbiDefToDoc renders an AbiDef into the JSON-able map stored on the
// accounts document's "abi" field.
func AbiDefToDoc(abi *abicache.AbiDef) map[string]any {
	structs := make([]map[string]any, 0, len(abi.Structs))
	for _, s := range abi.Structs {
		fields := make([]map[string]any, 0, len(s.Fields))
		for _, f := range s.Fields {
			fields = append(fields, map[string]any{"name": f.Name, "type": f.Type})
		}
		structs = append(structs, map[string]any{"name": s.Name, "base": s.Base, "fields": fields})
	}
	actions := make([]map[string]any, 0, len(abi.Actions))
	for name, typ := range abi.Actions {
		actions = append(actions, map[string]any{"name": name, "type": typ})
	}
	return map[string]any{
		"version": abi.Version,
		"structs": structs,
		"actions": actions,
	}
}
