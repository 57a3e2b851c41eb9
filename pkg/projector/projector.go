// Package projector implements the account projector (spec §4.4, component
// C5): it maintains the "accounts", "pub_keys" and "account_controls"
// documents by observing the system account's newaccount/updateauth/
// deleteauth/setabi actions.
//
// Grounded on original_source's update_account/add_pub_keys/remove_pub_keys/
// add_account_control/remove_account_control, restructured the way the
// teacher structures a projection routine (pkg/indexer/activity/accounts.go):
// a Context-like struct carrying its collaborators, one exported entry
// point, small unexported helpers, zap warnings for skipped projections.
package projector

import (
	"context"
	"fmt"
	"time"

	"github.com/eosio-elastic/indexer/pkg/esclient"
	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"github.com/eosio-elastic/indexer/pkg/serializer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DocTypeAccounts        = "accounts"
	DocTypePubKeys         = "pub_keys"
	DocTypeAccountControls = "account_controls"

	actionNewAccount = "newaccount"
	actionUpdateAuth = "updateauth"
	actionDeleteAuth = "deleteauth"
	actionSetAbi     = "setabi"

	permOwner  = "owner"
	permActive = "active"
)

// Projector maintains the account/pub_keys/account_controls projection.
type Projector struct {
	Client     *esclient.Client
	Serializer *serializer.Serializer
	Logger     *zap.Logger
	Clock      func() time.Time
}

// New builds a Projector. Clock defaults to time.Now.
func New(client *esclient.Client, ser *serializer.Serializer, logger *zap.Logger) *Projector {
	return &Projector{Client: client, Serializer: ser, Logger: logger, Clock: time.Now}
}

func (p *Projector) now() hostevents.Timestamp {
	return hostevents.Timestamp(p.Clock().UnixMilli())
}

// UpdateAccount runs projection for act if it is a system-account action of
// interest (spec §4.4). It is a no-op for every other account or action
// name, and is meant to be called for every applied trace whose receiver is
// the system account and whose status is executed (spec invariant 6),
// independent of the start-block gate and store_action_traces.
func (p *Projector) UpdateAccount(ctx context.Context, act hostevents.Action) error {
	if act.Account != serializer.SystemAccount {
		return nil
	}

	switch act.Name {
	case actionNewAccount:
		return p.handleNewAccount(ctx, act.Data)
	case actionUpdateAuth:
		return p.handleUpdateAuth(ctx, act.Data)
	case actionDeleteAuth:
		return p.handleDeleteAuth(ctx, act.Data)
	case actionSetAbi:
		return p.handleSetAbi(ctx, act.Data)
	default:
		return nil
	}
}

func (p *Projector) handleNewAccount(ctx context.Context, data []byte) error {
	na, err := DecodeNewAccount(data)
	if err != nil {
		// Unable to unpack native type: skip account creation, matching
		// original_source's fc::exception catch around update_account.
		p.Logger.Warn("skip newaccount projection: decode failed", zap.Error(err))
		return nil
	}

	now := p.now()
	if err := p.createAccount(ctx, na.Name, now); err != nil {
		return fmt.Errorf("create account %q: %w", na.Name, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.addPubKeys(gctx, na.Owner.Keys, na.Name, permOwner, now) })
	g.Go(func() error { return p.addAccountControl(gctx, na.Owner.Accounts, na.Name, permOwner, now) })
	g.Go(func() error { return p.addPubKeys(gctx, na.Active.Keys, na.Name, permActive, now) })
	g.Go(func() error { return p.addAccountControl(gctx, na.Active.Accounts, na.Name, permActive, now) })
	return g.Wait()
}

func (p *Projector) handleUpdateAuth(ctx context.Context, data []byte) error {
	ua, err := DecodeUpdateAuth(data)
	if err != nil {
		p.Logger.Warn("skip updateauth projection: decode failed", zap.Error(err))
		return nil
	}

	if err := p.removePubKeys(ctx, ua.Account, ua.Permission); err != nil {
		return err
	}
	if err := p.removeAccountControl(ctx, ua.Account, ua.Permission); err != nil {
		return err
	}

	now := p.now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.addPubKeys(gctx, ua.Auth.Keys, ua.Account, ua.Permission, now) })
	g.Go(func() error { return p.addAccountControl(gctx, ua.Auth.Accounts, ua.Account, ua.Permission, now) })
	return g.Wait()
}

func (p *Projector) handleDeleteAuth(ctx context.Context, data []byte) error {
	da, err := DecodeDeleteAuth(data)
	if err != nil {
		p.Logger.Warn("skip deleteauth projection: decode failed", zap.Error(err))
		return nil
	}
	if err := p.removePubKeys(ctx, da.Account, da.Permission); err != nil {
		return err
	}
	return p.removeAccountControl(ctx, da.Account, da.Permission)
}

func (p *Projector) handleSetAbi(ctx context.Context, data []byte) error {
	sa, err := DecodeSetAbi(data)
	if err != nil {
		p.Logger.Warn("skip setabi projection: decode failed", zap.Error(err))
		return nil
	}

	// Invalidate strictly before any subsequent event that would consume
	// this account's ABI is processed (spec invariant 3).
	p.Serializer.InvalidateCache(sa.Account)

	now := p.now()
	source, id, found, err := p.Client.FindByTerm(ctx, DocTypeAccounts, "name", sa.Account)
	if err != nil {
		return fmt.Errorf("find account %q: %w", sa.Account, err)
	}
	if !found {
		if err := p.createAccount(ctx, sa.Account, now); err != nil {
			return fmt.Errorf("create account %q before setabi: %w", sa.Account, err)
		}
		source, id, found, err = p.Client.FindByTerm(ctx, DocTypeAccounts, "name", sa.Account)
		if err != nil || !found {
			return fmt.Errorf("account %q still missing after create: %w", sa.Account, err)
		}
	}

	abiDoc, err := p.Serializer.DecodeSetabiAbi(ctx, sa.Abi)
	if err != nil {
		// Unpack failure aborts only this account's projection (spec §7).
		p.Logger.Warn("skip setabi projection: abi decode failed", zap.String("account", sa.Account), zap.Error(err))
		return nil
	}

	var existing struct {
		CreateAt hostevents.Timestamp `json:"createAt"`
	}
	_ = jsonUnmarshalBestEffort(source, &existing)

	doc := hostevents.AccountDoc{
		Name:     sa.Account,
		Abi:      abiDoc,
		CreateAt: existing.CreateAt,
		UpdateAt: now,
	}
	if err := p.Client.Index(ctx, DocTypeAccounts, doc, id); err != nil {
		return fmt.Errorf("update account %q abi: %w", sa.Account, err)
	}
	return nil
}

func (p *Projector) createAccount(ctx context.Context, name string, now hostevents.Timestamp) error {
	doc := hostevents.AccountDoc{Name: name, CreateAt: now}
	return p.Client.Index(ctx, DocTypeAccounts, doc, "")
}

func (p *Projector) addPubKeys(ctx context.Context, keys []KeyWeight, account, permission string, now hostevents.Timestamp) error {
	if len(keys) == 0 {
		return nil
	}
	items := make([]esclient.BulkItem, 0, len(keys))
	for _, kw := range keys {
		items = append(items, esclient.BulkItem{Doc: hostevents.PubKeyDoc{
			Account:    account,
			PublicKey:  kw.Key,
			Permission: permission,
			CreateAt:   now,
		}})
	}
	return p.Client.Bulk(ctx, DocTypePubKeys, items)
}

func (p *Projector) removePubKeys(ctx context.Context, account, permission string) error {
	return p.Client.DeleteByQuery(ctx, DocTypePubKeys, esclient.DeleteByQueryTerms("account", account, "permission", permission))
}

func (p *Projector) addAccountControl(ctx context.Context, controlling []PermissionLevelWeight, account, permission string, now hostevents.Timestamp) error {
	if len(controlling) == 0 {
		return nil
	}
	items := make([]esclient.BulkItem, 0, len(controlling))
	for _, plw := range controlling {
		items = append(items, esclient.BulkItem{Doc: hostevents.AccountControlDoc{
			ControlledAccount:    account,
			ControlledPermission: permission,
			ControllingAccount:   plw.Permission.Actor,
			CreateAt:             now,
		}})
	}
	return p.Client.Bulk(ctx, DocTypeAccountControls, items)
}

func (p *Projector) removeAccountControl(ctx context.Context, account, permission string) error {
	return p.Client.DeleteByQuery(ctx, DocTypeAccountControls, esclient.DeleteByQueryTerms("controlled_account", account, "controlled_permission", permission))
}
