package hostevents

// BlockState is the accepted/irreversible-block event.
type BlockState struct {
	BlockNum      uint64 `json:"block_num"`
	ID            string `json:"id"`
	PrevID        string `json:"prev_id"`
	Validated     bool   `json:"validated"`
	InCurrentChain bool  `json:"in_current_chain"`
	Block         Block  `json:"block"`
}

// Block is the minimal on-chain block body the plugin resolves through the
// ABI-aware serializer before storing it as a "blocks" document.
type Block struct {
	Transactions []TransactionTrace `json:"transactions"`
}
