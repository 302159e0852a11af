// Package keystore holds the secp256k1 keys a Tron wallet signs transaction digests with.
package keystore

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
)

// ErrNoSuchKey is returned when signing for an address the keystore does not hold.
var ErrNoSuchKey = errors.New("no such key")

// digestLen is the size of a Tron transaction id, the sha256 of the raw transaction.
const digestLen = 32

// Keystore maps base58 Tron addresses to their private keys.
type Keystore struct {
	mu   sync.RWMutex
	keys map[string]*ecdsa.PrivateKey
}

// New returns an empty keystore.
func New() *Keystore {
	return &Keystore{keys: make(map[string]*ecdsa.PrivateKey)}
}

// FromHex builds a keystore holding a single hex encoded key, with or without "0x",
// and returns the Tron address of that key.
func FromHex(privKey string) (*Keystore, address.Address, error) {
	ks := New()
	addr, err := ks.ImportHex(privKey)
	if err != nil {
		return nil, nil, err
	}

	return ks, addr, nil
}

// ImportHex decodes and stores a hex encoded key.
func (ks *Keystore) ImportHex(privKey string) (address.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return ks.Import(key), nil
}

// Import stores key under its derived Tron address.
func (ks *Keystore) Import(key *ecdsa.PrivateKey) address.Address {
	addr := address.PubkeyToAddress(key.PublicKey)

	ks.mu.Lock()
	ks.keys[addr.String()] = key
	ks.mu.Unlock()

	return addr
}

// Has reports whether a key is held for the base58 address.
func (ks *Keystore) Has(addr string) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	_, ok := ks.keys[addr]

	return ok
}

// Sign produces a 65 byte recoverable signature of digest with the key held for addr.
func (ks *Keystore) Sign(_ context.Context, addr string, digest []byte) ([]byte, error) {
	ks.mu.RLock()
	key, ok := ks.keys[addr]
	ks.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchKey, addr)
	}
	if len(digest) != digestLen {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", digestLen, len(digest))
	}

	return crypto.Sign(digest, key)
}
