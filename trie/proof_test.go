package trie

import (
	"testing"

	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/crosslock/rlp"
	"github.com/offchainlabs/crosslock/util/testhelpers"
)

func buildTestTrie(t *testing.T, n int) (*Trie, [][]byte, [][]byte) {
	t.Helper()
	tr := New()
	keys := make([][]byte, 0, n)
	values := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		k := rlp.EncodeUint64(uint64(i))
		// Values of at least 32 bytes keep every node on the path hashed,
		// so each witness entry is load-bearing for verification.
		v := testhelpers.RandomSlice(testhelpers.RandomUint64(32, 200))
		tr.Update(k, v)
		keys = append(keys, k)
		values = append(values, v)
	}
	return tr, keys, values
}

func TestProveAndVerify(t *testing.T) {
	tr, keys, values := buildTestTrie(t, 64)
	root := tr.Hash()
	for i, k := range keys {
		proof, err := tr.Prove(k)
		require.NoError(t, err)

		got, err := VerifyProof(root, k, proof)
		require.NoError(t, err)
		require.Equal(t, values[i], []byte(got))
	}
}

func TestProofVerifiesWithReferenceImplementation(t *testing.T) {
	tr, keys, values := buildTestTrie(t, 130)
	root := tr.Hash()
	for i, k := range keys {
		proof, err := tr.Prove(k)
		require.NoError(t, err)

		got, err := gethtrie.VerifyProof(root, k, proof)
		require.NoError(t, err)
		require.Equal(t, values[i], got)
	}
}

func TestProofRoundTripsThroughWitnessNodes(t *testing.T) {
	tr, keys, values := buildTestTrie(t, 33)
	root := tr.Hash()
	proof, err := tr.Prove(keys[7])
	require.NoError(t, err)

	rebuilt := FromNodes(proof.List())
	got, err := VerifyProof(root, keys[7], rebuilt)
	require.NoError(t, err)
	require.Equal(t, values[7], []byte(got))
}

func TestProveMissingKey(t *testing.T) {
	tr, _, _ := buildTestTrie(t, 10)
	_, err := tr.Prove(rlp.EncodeUint64(99))
	require.ErrorIs(t, err, ErrProof)
}

func TestVerifyProofFailures(t *testing.T) {
	tr, keys, _ := buildTestTrie(t, 40)
	root := tr.Hash()
	proof, err := tr.Prove(keys[3])
	require.NoError(t, err)

	t.Run("wrong root", func(t *testing.T) {
		_, err := VerifyProof(testhelpers.RandomHash(), keys[3], proof)
		require.ErrorIs(t, err, ErrProof)
	})
	t.Run("key not covered by witness", func(t *testing.T) {
		_, err := VerifyProof(root, keys[29], proof)
		require.ErrorIs(t, err, ErrProof)
	})
	t.Run("missing node", func(t *testing.T) {
		nodes := proof.List()
		require.Greater(t, len(nodes), 1)
		truncated := FromNodes(nodes[:len(nodes)-1])
		_, err := VerifyProof(root, keys[3], truncated)
		require.ErrorIs(t, err, ErrProof)
	})
	t.Run("tampered node", func(t *testing.T) {
		nodes := proof.List()
		tampered := make([][]byte, len(nodes))
		for i, n := range nodes {
			tampered[i] = append([]byte{}, n...)
		}
		tampered[len(tampered)-1][len(tampered[len(tampered)-1])-1] ^= 0xff
		_, err := VerifyProof(root, keys[3], FromNodes(tampered))
		require.ErrorIs(t, err, ErrProof)
	})
}
