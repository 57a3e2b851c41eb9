// Package txsign recovers the public keys that signed a transaction from
// its signature bytes and the chain id, used by pkg/worker when an accepted
// transaction's metadata doesn't already carry precomputed signing_keys
// (spec §4.6: "Builds a transactions document including resolved signing
// keys (either precomputed on the metadata, or derived from signatures and
// the chain id)").
//
// EOS uses the same secp256k1 compact-signature recovery scheme as
// Bitcoin: each signature is a 65-byte (recovery-id, r, s) triple over
// sha256(chain_id || trx_id || context_free_digest). This package covers
// only the no-context-free-actions case, the common path.
package txsign

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// RecoverSigningKeys recovers one public key per signature, matching the
// original plugin's use of the node's own signature-recovery routine to
// populate transaction_metadata::recover_keys().
func RecoverSigningKeys(signatures [][]byte, trxID string, chainID []byte) ([]string, error) {
	trxIDBytes, err := hex.DecodeString(trxID)
	if err != nil {
		return nil, fmt.Errorf("decode trx id: %w", err)
	}

	digest := signingDigest(chainID, trxIDBytes)

	keys := make([]string, 0, len(signatures))
	for i, sig := range signatures {
		key, err := recoverOne(sig, digest)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// signingDigest computes sha256(chain_id || trx_id || zero_context_free_digest),
// matching sig_digest() in the original chain's transaction.cpp for a
// transaction with no context-free data.
func signingDigest(chainID, trxID []byte) []byte {
	var zeroDigest [32]byte
	h := sha256.New()
	h.Write(chainID)
	h.Write(trxID)
	h.Write(zeroDigest[:])
	return h.Sum(nil)
}

func recoverOne(sig, digest []byte) (string, error) {
	if len(sig) != 65 {
		return "", fmt.Errorf("compact signature must be 65 bytes, got %d", len(sig))
	}
	pub, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return "", fmt.Errorf("recover compact signature: %w", err)
	}
	return "EOS" + hex.EncodeToString(pub.SerializeCompressed()), nil
}
