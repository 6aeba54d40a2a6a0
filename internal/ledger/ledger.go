// Package ledger keeps a hash-chained, signed record of every executed
// step. The chain is persisted as JSON lines; each entry is reachable by
// its bech32m attestation address.
package ledger

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"chainci/internal/security"
	"chainci/pkg/address"
)

var ErrNotFound = errors.New("attestation not found")

type Ledger struct {
	mu      sync.Mutex
	entries []*Entry
	path    string
}

// Open loads an existing ledger file or starts an empty one. The file
// format is JSON lines, one entry per line.
func Open(path string) (*Ledger, error) {
	l := &Ledger{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		l.entries = append(l.entries, &e)
	}
	return l, nil
}

// Append seals and signs an entry, persists it, and links it into the
// in-memory chain.
func (l *Ledger) Append(e *Entry, priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := e.seal(); err != nil {
		return err
	}
	if len(l.entries) > 0 {
		last := l.entries[len(l.entries)-1]
		if e.PrevHash != last.Hash {
			return fmt.Errorf("prevHash mismatch: expected %s, got %s", last.Hash, e.PrevHash)
		}
	} else if e.PrevHash != "" {
		return fmt.Errorf("first entry must have empty prevHash")
	}

	if len(priv) == 0 {
		return fmt.Errorf("private key is empty, cannot sign entry")
	}
	e.Signature = security.Sign(priv, []byte(e.Hash))
	e.PubKey = hex.EncodeToString(pub)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(e); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}

	l.entries = append(l.entries, e)
	return nil
}

// NextIndex returns the index the next appended entry must carry.
func (l *Ledger) NextIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// LastHash returns the hash of the chain head, or empty when the ledger
// has no entries yet.
func (l *Ledger) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].Hash
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Resolve returns the entry an attestation address names.
func (l *Ledger) Resolve(addr string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Address == addr {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
}

// Verify walks the chain, recomputing each entry's hash, address, link
// and signature to detect tampering.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		sum, err := e.ComputeHash()
		if err != nil {
			return fmt.Errorf("compute hash at index %d: %w", e.Index, err)
		}
		if hex.EncodeToString(sum) != e.Hash {
			return fmt.Errorf("hash mismatch at index %d", e.Index)
		}
		if addr, err := address.Encode(HRP, entryVersion, sum); err != nil || addr != e.Address {
			return fmt.Errorf("address mismatch at index %d", e.Index)
		}
		if i > 0 && e.PrevHash != l.entries[i-1].Hash {
			return fmt.Errorf("prevHash mismatch at index %d", e.Index)
		}
		if e.Index != i {
			return fmt.Errorf("index mismatch: expected %d, got %d", i, e.Index)
		}
		ok, err := security.Verify(e.PubKey, []byte(e.Hash), e.Signature)
		if err != nil {
			return fmt.Errorf("verify signature at index %d: %w", e.Index, err)
		}
		if !ok {
			return fmt.Errorf("bad signature at index %d", e.Index)
		}
	}
	return nil
}
