package peers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiltnetworks/quilt/crypto"
)

func fakePeer(t *testing.T, moniker string, weight int) *Peer {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := fmt.Sprintf("0x%X", crypto.FromPubKey(key.PubKey()))
	return NewPeer(pub, moniker, weight)
}

func TestNewPeerSet(t *testing.T) {
	peers := []*Peer{
		fakePeer(t, "alice", 0),
		fakePeer(t, "bob", 0),
		fakePeer(t, "carol", 0),
	}

	peerSet := NewPeerSet(peers)

	require.Equal(t, 3, peerSet.Len())
	assert.Equal(t, 3, peerSet.TotalWeight())
	assert.Equal(t, 3, peerSet.SuperMajority())

	for _, p := range peers {
		assert.Equal(t, p, peerSet.ByPubKey[p.PubKeyHex])
		assert.Equal(t, p, peerSet.ByID[p.ID])
		assert.NotZero(t, p.ID)
		assert.Equal(t, DefaultWeight, peerSet.WeightOf(p.PubKeyHex))
	}

	assert.Zero(t, peerSet.WeightOf("0xDEADBEEF"))

	//the set must be sorted by public key
	sorted := peerSet.PubKeys()
	for i := 1; i < len(sorted); i++ {
		assert.True(t, sorted[i-1] < sorted[i])
	}
}

func TestSuperMajority(t *testing.T) {
	testCases := []struct {
		weights  []int
		expected int
	}{
		{[]int{1, 1, 1}, 3},
		{[]int{1, 1, 1, 1}, 3},
		{[]int{1, 1, 1, 1, 1, 1, 1}, 5},
		//weighted: one heavy peer is not enough on its own
		{[]int{6, 1, 1, 1}, 7},
		//total 9: more than 6 means at least 7
		{[]int{3, 3, 3}, 7},
	}

	for _, tc := range testCases {
		peers := []*Peer{}
		for i, w := range tc.weights {
			peers = append(peers, fakePeer(t, fmt.Sprintf("peer%d", i), w))
		}
		peerSet := NewPeerSet(peers)
		assert.Equalf(t, tc.expected, peerSet.SuperMajority(),
			"SuperMajority of weights %v", tc.weights)
	}
}

func TestWithNewPeer(t *testing.T) {
	peers := []*Peer{
		fakePeer(t, "alice", 1),
		fakePeer(t, "bob", 1),
		fakePeer(t, "carol", 1),
	}
	peerSet := NewPeerSet(peers)

	dave := fakePeer(t, "dave", 2)
	extended := peerSet.WithNewPeer(dave)

	require.Equal(t, 4, extended.Len())
	assert.Equal(t, 5, extended.TotalWeight())
	assert.Equal(t, dave, extended.ByPubKey[dave.PubKeyHex])

	//the original set is unchanged
	assert.Equal(t, 3, peerSet.Len())

	reduced := extended.WithRemovedPeer(dave)
	require.Equal(t, 3, reduced.Len())
	assert.Equal(t, 3, reduced.TotalWeight())
}

func TestPeerSetMarshal(t *testing.T) {
	peers := []*Peer{
		fakePeer(t, "alice", 1),
		fakePeer(t, "bob", 2),
		fakePeer(t, "carol", 3),
	}
	peerSet := NewPeerSet(peers)

	raw, err := peerSet.Marshal()
	require.NoError(t, err)

	//deterministic: marshalling twice yields the same bytes
	raw2, err := peerSet.Marshal()
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)

	decoded, err := Unmarshal(raw)
	require.NoError(t, err)

	require.Equal(t, peerSet.Len(), decoded.Len())
	assert.Equal(t, peerSet.TotalWeight(), decoded.TotalWeight())
	for i, p := range peerSet.Peers {
		assert.Equal(t, p.PubKeyHex, decoded.Peers[i].PubKeyHex)
		assert.Equal(t, p.Weight, decoded.Peers[i].Weight)
		assert.Equal(t, p.ID, decoded.Peers[i].ID)
	}
}
