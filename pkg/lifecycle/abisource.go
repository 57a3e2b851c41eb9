package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eosio-elastic/indexer/pkg/abicache"
	"github.com/eosio-elastic/indexer/pkg/esclient"
	"github.com/eosio-elastic/indexer/pkg/serializer"
)

// accountAbiSource implements serializer.AbiSource by looking up the
// account's stored "accounts" document, matching get_deserializer's step 2
// ("look up the account's most recent stored ABI document via search on
// accounts by name == account").
type accountAbiSource struct {
	client *esclient.Client
}

func newAccountAbiSource(client *esclient.Client) *accountAbiSource {
	return &accountAbiSource{client: client}
}

func (s *accountAbiSource) AccountAbi(ctx context.Context, account string) (*abicache.AbiDef, bool, error) {
	source, _, found, err := s.client.FindByTerm(ctx, "accounts", "name", account)
	if err != nil {
		return nil, false, fmt.Errorf("find account %q: %w", account, err)
	}
	if !found {
		return nil, false, nil
	}

	var doc struct {
		Abi json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(source, &doc); err != nil {
		return nil, false, fmt.Errorf("unmarshal account %q: %w", account, err)
	}
	if len(doc.Abi) == 0 {
		return nil, false, nil
	}

	abi, err := serializer.ParseAbiDef(doc.Abi)
	if err != nil {
		return nil, false, fmt.Errorf("parse abi for %q: %w", account, err)
	}
	return abi, true, nil
}
