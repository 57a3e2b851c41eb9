package lifecycle

// indexMappings declares the document types created at startup (spec §6:
// "Index mappings are supplied at create_index time"). Kept intentionally
// loose (mostly "object"/"keyword"), matching the search backend's dynamic
// mapping for the nested ABI-resolved payloads while still pinning the
// fields the delete-by-query/search shapes in spec §6 depend on.
func indexMappings() map[string]any {
	keyword := map[string]any{"type": "keyword"}
	date := map[string]any{"type": "date", "format": "epoch_millis"}

	return map[string]any{
		"mappings": map[string]any{
			"block_states": map[string]any{
				"properties": map[string]any{
					"block_num":        map[string]any{"type": "long"},
					"block_id":         keyword,
					"validated":        map[string]any{"type": "boolean"},
					"in_current_chain": map[string]any{"type": "boolean"},
					"createAt":         date,
				},
			},
			"blocks": map[string]any{
				"properties": map[string]any{
					"block_num":    map[string]any{"type": "long"},
					"block_id":     keyword,
					"irreversible": map[string]any{"type": "boolean"},
					"block":        map[string]any{"type": "object", "enabled": true},
					"createAt":     date,
				},
			},
			"transactions": map[string]any{
				"properties": map[string]any{
					"trx_id":       keyword,
					"trx":          map[string]any{"type": "object", "enabled": true},
					"signing_keys": keyword,
					"accepted":     map[string]any{"type": "boolean"},
					"implicit":     map[string]any{"type": "boolean"},
					"scheduled":    map[string]any{"type": "boolean"},
					"createdAt":    date,
				},
			},
			"transaction_traces": map[string]any{
				"properties": map[string]any{
					"id":       keyword,
					"trace":    map[string]any{"type": "object", "enabled": true},
					"createAt": date,
				},
			},
			"action_traces": map[string]any{
				"properties": map[string]any{
					"createdAt": date,
				},
			},
			"accounts": map[string]any{
				"properties": map[string]any{
					"name":     keyword,
					"abi":      map[string]any{"type": "object", "enabled": true},
					"createAt": date,
					"updateAt": date,
				},
			},
			"pub_keys": map[string]any{
				"properties": map[string]any{
					"account":    keyword,
					"public_key": keyword,
					"permission": keyword,
					"createAt":   date,
				},
			},
			"account_controls": map[string]any{
				"properties": map[string]any{
					"controlled_account":    keyword,
					"controlled_permission": keyword,
					"controlling_account":   keyword,
					"createAt":              date,
				},
			},
		},
	}
}
