// Package hashchain implements the one-time credential chain used to
// authenticate pairing handshakes.
//
// A chain of length N is derived from a seed by iterated hashing:
//
//	chain[0] = H(seed)          (the anchor)
//	chain[i] = H(chain[i-1])    for 0 < i < N
//	chain[N-1]                  (the root)
//
// Credentials are revealed from the root toward the anchor. Every revealed
// value hashes forward to the value revealed before it, so a verifier that
// remembers the last accepted value can check the next one without knowing
// the seed.
package hashchain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the output size of every supported algorithm.
const DigestSize = 32

var (
	ErrEmptySeed        = errors.New("hashchain: seed is empty")
	ErrInvalidLength    = errors.New("hashchain: length must be at least 1")
	ErrUnknownAlgorithm = errors.New("hashchain: unknown hash algorithm")
	ErrChainExhausted   = errors.New("hashchain: chain exhausted")
	ErrCorrupt          = errors.New("hashchain: stored chain fails integrity check")
)

type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	BLAKE3  Algorithm = "blake3"
	BLAKE2b Algorithm = "blake2b-256"
)

// ParseAlgorithm maps a config value to an Algorithm. Empty means SHA256,
// which is what the companion firmware verifies against.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	case BLAKE2b, "blake2b":
		return BLAKE2b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

func (a Algorithm) sum(b []byte) []byte {
	switch a {
	case BLAKE3:
		h := blake3.Sum256(b)
		return h[:]
	case BLAKE2b:
		h := blake2b.Sum256(b)
		return h[:]
	default:
		h := sha256.Sum256(b)
		return h[:]
	}
}

// Chain is an immutable, fully materialized hash chain.
type Chain struct {
	alg    Algorithm
	values [][]byte
}

// Generate derives a chain of the given length from seed.
func Generate(seed []byte, length int, alg Algorithm) (*Chain, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	if length < 1 {
		return nil, ErrInvalidLength
	}
	alg, err := ParseAlgorithm(string(alg))
	if err != nil {
		return nil, err
	}

	values := make([][]byte, length)
	cur := seed
	for i := range values {
		cur = alg.sum(cur)
		values[i] = cur
	}
	return &Chain{alg: alg, values: values}, nil
}

// Unmarshal rebuilds a chain from the concatenated digests produced by
// MarshalBinary and checks every link.
func Unmarshal(alg Algorithm, blob []byte) (*Chain, error) {
	alg, err := ParseAlgorithm(string(alg))
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 || len(blob)%DigestSize != 0 {
		return nil, fmt.Errorf("%w: blob size %d", ErrCorrupt, len(blob))
	}

	n := len(blob) / DigestSize
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		v := make([]byte, DigestSize)
		copy(v, blob[i*DigestSize:(i+1)*DigestSize])
		values[i] = v
	}
	for i := 1; i < n; i++ {
		if subtle.ConstantTimeCompare(alg.sum(values[i-1]), values[i]) != 1 {
			return nil, fmt.Errorf("%w: link %d", ErrCorrupt, i)
		}
	}
	return &Chain{alg: alg, values: values}, nil
}

// MarshalBinary concatenates the digests from anchor to root.
func (c *Chain) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, len(c.values)*DigestSize)
	for _, v := range c.values {
		out = append(out, v...)
	}
	return out, nil
}

func (c *Chain) Len() int             { return len(c.values) }
func (c *Chain) Algorithm() Algorithm { return c.alg }

// Anchor returns chain[0].
func (c *Chain) Anchor() []byte { return c.Value(0) }

// Root returns chain[N-1].
func (c *Chain) Root() []byte { return c.Value(len(c.values) - 1) }

// Value returns a copy of chain[i], or nil when i is out of range.
func (c *Chain) Value(i int) []byte {
	if i < 0 || i >= len(c.values) {
		return nil
	}
	out := make([]byte, len(c.values[i]))
	copy(out, c.values[i])
	return out
}

// Verify reports whether H(revealed) equals the previously accepted value.
func Verify(alg Algorithm, revealed, previous []byte) bool {
	return subtle.ConstantTimeCompare(alg.sum(revealed), previous) == 1
}

// Credential is a single revealed chain value.
type Credential struct {
	Index int
	Value []byte
}

func (c Credential) Hex() string { return hex.EncodeToString(c.Value) }

// Cursor tracks how many values of a chain have been revealed.
// Consumed only grows; re-enrolling creates a new cursor.
type Cursor struct {
	Chain    *Chain
	Consumed int
}

func (c *Cursor) Remaining() int {
	if c.Chain == nil {
		return 0
	}
	r := c.Chain.Len() - c.Consumed
	if r < 0 {
		return 0
	}
	return r
}

// Peek returns the next credential without advancing.
func (c *Cursor) Peek() (Credential, error) {
	if c.Remaining() == 0 {
		return Credential{}, ErrChainExhausted
	}
	idx := c.Chain.Len() - 1 - c.Consumed
	return Credential{Index: idx, Value: c.Chain.Value(idx)}, nil
}

// Next returns the next credential and advances the cursor.
func (c *Cursor) Next() (Credential, error) {
	cred, err := c.Peek()
	if err != nil {
		return Credential{}, err
	}
	c.Consumed++
	return cred, nil
}
