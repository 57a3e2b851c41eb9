package projector

import (
	"fmt"

	"github.com/eosio-elastic/indexer/pkg/binary"
)

// The system contract's own actions (newaccount, updateauth, deleteauth,
// setabi) have a fixed, compiled-in layout — the original plugin decodes
// them with act.data_as<T>() rather than through the dynamic ABI
// serializer, so this package mirrors that by decoding them natively
// instead of routing through pkg/serializer.

// KeyWeight is one entry of an authority's keys list.
type KeyWeight struct {
	Key    string
	Weight uint16
}

// PermissionLevel identifies an (actor, permission) pair.
type PermissionLevel struct {
	Actor      string
	Permission string
}

// PermissionLevelWeight is one entry of an authority's accounts list.
type PermissionLevelWeight struct {
	Permission PermissionLevel
	Weight     uint16
}

// Authority is a threshold-weighted set of keys and controlling accounts.
type Authority struct {
	Threshold uint32
	Keys      []KeyWeight
	Accounts  []PermissionLevelWeight
}

// NewAccount is the native newaccount action payload.
type NewAccount struct {
	Creator string
	Name    string
	Owner   Authority
	Active  Authority
}

// UpdateAuth is the native updateauth action payload.
type UpdateAuth struct {
	Account    string
	Permission string
	Parent     string
	Auth       Authority
}

// DeleteAuth is the native deleteauth action payload.
type DeleteAuth struct {
	Account    string
	Permission string
}

// SetAbi is the native setabi action payload.
type SetAbi struct {
	Account string
	Abi     []byte
}

func decodePublicKey(r *binary.Reader) (string, error) {
	kind, err := r.Byte()
	if err != nil {
		return "", fmt.Errorf("public key type: %w", err)
	}
	data, err := r.Bytes(33)
	if err != nil {
		return "", fmt.Errorf("public key data: %w", err)
	}
	return fmt.Sprintf("EOS%x", append([]byte{kind}, data...)), nil
}

func decodeAuthority(r *binary.Reader) (Authority, error) {
	var a Authority
	threshold, err := r.Uint32()
	if err != nil {
		return a, fmt.Errorf("threshold: %w", err)
	}
	a.Threshold = threshold

	keyCount, err := r.Varuint()
	if err != nil {
		return a, fmt.Errorf("key count: %w", err)
	}
	for i := uint64(0); i < keyCount; i++ {
		key, err := decodePublicKey(r)
		if err != nil {
			return a, err
		}
		weight, err := r.Uint16()
		if err != nil {
			return a, fmt.Errorf("key weight: %w", err)
		}
		a.Keys = append(a.Keys, KeyWeight{Key: key, Weight: weight})
	}

	acctCount, err := r.Varuint()
	if err != nil {
		return a, fmt.Errorf("account count: %w", err)
	}
	for i := uint64(0); i < acctCount; i++ {
		actor, err := r.Name()
		if err != nil {
			return a, fmt.Errorf("actor: %w", err)
		}
		perm, err := r.Name()
		if err != nil {
			return a, fmt.Errorf("permission: %w", err)
		}
		weight, err := r.Uint16()
		if err != nil {
			return a, fmt.Errorf("account weight: %w", err)
		}
		a.Accounts = append(a.Accounts, PermissionLevelWeight{
			Permission: PermissionLevel{Actor: actor, Permission: perm},
			Weight:     weight,
		})
	}

	waitCount, err := r.Varuint()
	if err != nil {
		return a, fmt.Errorf("wait count: %w", err)
	}
	for i := uint64(0); i < waitCount; i++ {
		if _, err := r.Uint32(); err != nil { // wait_sec
			return a, fmt.Errorf("wait_sec: %w", err)
		}
		if _, err := r.Uint16(); err != nil { // weight
			return a, fmt.Errorf("wait weight: %w", err)
		}
	}

	return a, nil
}

// DecodeNewAccount decodes a newaccount action's raw payload.
func DecodeNewAccount(data []byte) (NewAccount, error) {
	r := binary.NewReader(data)
	var n NewAccount
	var err error
	if n.Creator, err = r.Name(); err != nil {
		return n, fmt.Errorf("creator: %w", err)
	}
	if n.Name, err = r.Name(); err != nil {
		return n, fmt.Errorf("name: %w", err)
	}
	if n.Owner, err = decodeAuthority(r); err != nil {
		return n, fmt.Errorf("owner: %w", err)
	}
	if n.Active, err = decodeAuthority(r); err != nil {
		return n, fmt.Errorf("active: %w", err)
	}
	return n, nil
}

// DecodeUpdateAuth decodes an updateauth action's raw payload.
func DecodeUpdateAuth(data []byte) (UpdateAuth, error) {
	r := binary.NewReader(data)
	var u UpdateAuth
	var err error
	if u.Account, err = r.Name(); err != nil {
		return u, fmt.Errorf("account: %w", err)
	}
	if u.Permission, err = r.Name(); err != nil {
		return u, fmt.Errorf("permission: %w", err)
	}
	if u.Parent, err = r.Name(); err != nil {
		return u, fmt.Errorf("parent: %w", err)
	}
	if u.Auth, err = decodeAuthority(r); err != nil {
		return u, fmt.Errorf("auth: %w", err)
	}
	return u, nil
}

// DecodeDeleteAuth decodes a deleteauth action's raw payload.
func DecodeDeleteAuth(data []byte) (DeleteAuth, error) {
	r := binary.NewReader(data)
	var d DeleteAuth
	var err error
	if d.Account, err = r.Name(); err != nil {
		return d, fmt.Errorf("account: %w", err)
	}
	if d.Permission, err = r.Name(); err != nil {
		return d, fmt.Errorf("permission: %w", err)
	}
	return d, nil
}

// DecodeSetAbi decodes a setabi action's raw payload.
func DecodeSetAbi(data []byte) (SetAbi, error) {
	r := binary.NewReader(data)
	var s SetAbi
	var err error
	if s.Account, err = r.Name(); err != nil {
		return s, fmt.Errorf("account: %w", err)
	}
	if s.Abi, err = r.VarBytes(); err != nil {
		return s, fmt.Errorf("abi: %w", err)
	}
	return s, nil
}
