package hashchain_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
)

// ── Generation ───────────────────────────────────────────────────────────────

func TestGenerate_LinksHoldForAllAlgorithms(t *testing.T) {
	for _, alg := range []hashchain.Algorithm{hashchain.SHA256, hashchain.BLAKE3, hashchain.BLAKE2b} {
		for _, n := range []int{1, 2, 17, 100} {
			c, err := hashchain.Generate([]byte("correct horse"), n, alg)
			require.NoError(t, err)
			require.Equal(t, n, c.Len())

			for i := 1; i < n; i++ {
				require.True(t, hashchain.Verify(alg, c.Value(i-1), c.Value(i)),
					"alg=%s n=%d link %d", alg, n, i)
			}
		}
	}
}

func TestGenerate_AnchorIsHashOfSeed(t *testing.T) {
	c, err := hashchain.Generate([]byte("hello"), 3, hashchain.SHA256)
	require.NoError(t, err)

	want := sha256.Sum256([]byte("hello"))
	require.Equal(t, want[:], c.Anchor())

	second := sha256.Sum256(want[:])
	require.Equal(t, hex.EncodeToString(second[:]), hex.EncodeToString(c.Value(1)))
	require.Equal(t, c.Value(2), c.Root())
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := hashchain.Generate([]byte("seed"), 10, hashchain.BLAKE3)
	require.NoError(t, err)
	b, err := hashchain.Generate([]byte("seed"), 10, hashchain.BLAKE3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.Equal(t, a.Value(i), b.Value(i))
	}
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	_, err := hashchain.Generate(nil, 10, hashchain.SHA256)
	require.ErrorIs(t, err, hashchain.ErrEmptySeed)

	_, err = hashchain.Generate([]byte("x"), 0, hashchain.SHA256)
	require.ErrorIs(t, err, hashchain.ErrInvalidLength)

	_, err = hashchain.Generate([]byte("x"), 3, hashchain.Algorithm("md5"))
	require.ErrorIs(t, err, hashchain.ErrUnknownAlgorithm)
}

// ── Cursor ───────────────────────────────────────────────────────────────────

func TestCursor_RevealsFromRootTowardAnchor(t *testing.T) {
	c, err := hashchain.Generate([]byte("seed"), 4, hashchain.SHA256)
	require.NoError(t, err)
	cur := &hashchain.Cursor{Chain: c}

	var prev hashchain.Credential
	seen := map[int]bool{}
	for want := 3; want >= 0; want-- {
		cred, err := cur.Next()
		require.NoError(t, err)
		require.Equal(t, want, cred.Index)
		require.False(t, seen[cred.Index], "index %d revealed twice", cred.Index)
		seen[cred.Index] = true

		if prev.Value != nil {
			require.True(t, hashchain.Verify(hashchain.SHA256, cred.Value, prev.Value))
		}
		prev = cred
	}

	_, err = cur.Next()
	require.ErrorIs(t, err, hashchain.ErrChainExhausted)
	require.Equal(t, 4, cur.Consumed)
}

func TestCursor_PeekDoesNotAdvance(t *testing.T) {
	c, err := hashchain.Generate([]byte("seed"), 2, hashchain.SHA256)
	require.NoError(t, err)
	cur := &hashchain.Cursor{Chain: c}

	a, err := cur.Peek()
	require.NoError(t, err)
	b, err := cur.Peek()
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 0, cur.Consumed)
}

// ── Persistence ──────────────────────────────────────────────────────────────

func TestUnmarshal_RoundTripAndCorruption(t *testing.T) {
	c, err := hashchain.Generate([]byte("seed"), 5, hashchain.BLAKE2b)
	require.NoError(t, err)
	blob, err := c.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, blob, 5*hashchain.DigestSize)

	back, err := hashchain.Unmarshal(hashchain.BLAKE2b, blob)
	require.NoError(t, err)
	require.Equal(t, c.Root(), back.Root())

	blob[2*hashchain.DigestSize] ^= 0xff
	_, err = hashchain.Unmarshal(hashchain.BLAKE2b, blob)
	require.ErrorIs(t, err, hashchain.ErrCorrupt)

	_, err = hashchain.Unmarshal(hashchain.SHA256, []byte{1, 2, 3})
	require.ErrorIs(t, err, hashchain.ErrCorrupt)
}
