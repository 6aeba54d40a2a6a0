package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"chainci/pkg/address"
)

// HRP is the human-readable part of every attestation address.
const HRP = "ca"

// Address payload versions: version 0 addresses name a log digest,
// version 1 addresses name a ledger entry.
const (
	digestVersion = 0
	entryVersion  = 1
)

// Entry is a tamper-evident record of one executed step. Its Address is
// the bech32m encoding of the entry hash and is how callers refer to the
// attestation from outside.
type Entry struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	Run       string `json:"run"`
	Job       string `json:"job"`
	Step      string `json:"step"`
	Status    string `json:"status"`
	LogDigest string `json:"logDigest"`
	PrevHash  string `json:"prevHash"`
	Hash      string `json:"hash"`
	Address   string `json:"address"`
	Signature string `json:"signature"`
	PubKey    string `json:"pubKey"`
}

// canonicalData returns the JSON bytes the entry hash is computed over.
// Hash, Address, Signature and PubKey are excluded.
func (e *Entry) canonicalData() ([]byte, error) {
	view := struct {
		Index     int    `json:"index"`
		Timestamp string `json:"timestamp"`
		Run       string `json:"run"`
		Job       string `json:"job"`
		Step      string `json:"step"`
		Status    string `json:"status"`
		LogDigest string `json:"logDigest"`
		PrevHash  string `json:"prevHash"`
	}{e.Index, e.Timestamp, e.Run, e.Job, e.Step, e.Status, e.LogDigest, e.PrevHash}
	return json.Marshal(view)
}

// ComputeHash calculates SHA-256 over canonicalData.
func (e *Entry) ComputeHash() ([]byte, error) {
	data, err := e.canonicalData()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

// seal fills Hash and Address from the entry's canonical fields.
func (e *Entry) seal() error {
	sum, err := e.ComputeHash()
	if err != nil {
		return fmt.Errorf("compute entry hash: %w", err)
	}
	e.Hash = hex.EncodeToString(sum)
	addr, err := address.Encode(HRP, entryVersion, sum)
	if err != nil {
		return fmt.Errorf("encode entry address: %w", err)
	}
	e.Address = addr
	return nil
}

// NewEntry builds a sealed (hashed and addressed, not yet signed) entry
// for one step result.
func NewEntry(index int, run, job, step, status, logDigest, prevHash string) (*Entry, error) {
	e := &Entry{
		Index:     index,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Run:       run,
		Job:       job,
		Step:      step,
		Status:    status,
		LogDigest: logDigest,
		PrevHash:  prevHash,
	}
	if err := e.seal(); err != nil {
		return nil, err
	}
	return e, nil
}

// DigestAddress returns the version-0 attestation address of a blob's
// SHA-256 digest.
func DigestAddress(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return address.Encode(HRP, digestVersion, sum[:])
}

// FileDigestAddress returns the version-0 attestation address of a
// file's content digest.
func FileDigestAddress(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return address.Encode(HRP, digestVersion, h.Sum(nil))
}
