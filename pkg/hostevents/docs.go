package hostevents

import "encoding/json"

// Timestamp is an integer millisecond Unix timestamp, the unit spec §6
// mandates for every document.
type Timestamp int64

// AccountDoc is the "accounts" document. Abi is nil until a setabi action
// has been observed for the account.
type AccountDoc struct {
	ID       string         `json:"-"`
	Name     string         `json:"name"`
	Abi      map[string]any `json:"abi,omitempty"`
	CreateAt Timestamp      `json:"createAt"`
	UpdateAt Timestamp      `json:"updateAt,omitempty"`
}

// PubKeyDoc is one row of the "pub_keys" document kind.
type PubKeyDoc struct {
	Account    string    `json:"account"`
	PublicKey  string    `json:"public_key"`
	Permission string    `json:"permission"`
	CreateAt   Timestamp `json:"createAt"`
}

// AccountControlDoc is one row of the "account_controls" document kind.
type AccountControlDoc struct {
	ControlledAccount    string    `json:"controlled_account"`
	ControlledPermission string    `json:"controlled_permission"`
	ControllingAccount   string    `json:"controlling_account"`
	CreateAt             Timestamp `json:"createAt"`
}

// BlockStateDoc is the "block_states" document.
type BlockStateDoc struct {
	BlockNum       uint64    `json:"block_num"`
	BlockID        string    `json:"block_id"`
	Validated      bool      `json:"validated"`
	InCurrentChain bool      `json:"in_current_chain"`
	CreateAt       Timestamp `json:"createAt"`
}

// BlockDoc is the "blocks" document, only written when store_blocks is set.
type BlockDoc struct {
	BlockNum     uint64         `json:"block_num"`
	BlockID      string         `json:"block_id"`
	Irreversible bool           `json:"irreversible"`
	Block        map[string]any `json:"block"`
	CreateAt     Timestamp      `json:"createAt"`
}

// TransactionDoc is the "transactions" document.
type TransactionDoc struct {
	TrxID       string         `json:"trx_id"`
	Trx         map[string]any `json:"trx"`
	SigningKeys []string       `json:"signing_keys,omitempty"`
	Accepted    bool           `json:"accepted"`
	Implicit    bool           `json:"implicit"`
	Scheduled   bool           `json:"scheduled"`
	CreateAt    Timestamp      `json:"createdAt"`
}

// TransactionTraceDoc is the "transaction_traces" document, written only
// when at least one action trace survived the filter (spec invariant 4).
type TransactionTraceDoc struct {
	ID       string         `json:"id"`
	Trace    map[string]any `json:"trace"`
	CreateAt Timestamp      `json:"createAt"`
}

// ActionTraceDoc is the "action_traces" document kind, one per filtered
// action trace node. Its fields are stored flat rather than nested under a
// "doc" key, so it carries its own MarshalJSON instead of struct tags.
type ActionTraceDoc struct {
	Doc      map[string]any
	CreateAt Timestamp
}

func (d ActionTraceDoc) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Doc)+1)
	for k, v := range d.Doc {
		out[k] = v
	}
	out["createdAt"] = d.CreateAt
	return json.Marshal(out)
}
