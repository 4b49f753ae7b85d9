package hashgraph

import (
	"fmt"
	"sort"

	"github.com/quiltnetworks/quilt/common"
	"github.com/quiltnetworks/quilt/peers"
)

// PeerSetHistory keeps track of the validator sets and the rounds at which
// they become effective. Membership changes activate at a future round, so
// all round-scoped thresholds remain well defined retroactively.
type PeerSetHistory struct {
	sets   map[int]*peers.PeerSet
	rounds []int //sorted effective rounds
}

func NewPeerSetHistory(genesis *peers.PeerSet) *PeerSetHistory {
	return &PeerSetHistory{
		sets:   map[int]*peers.PeerSet{FirstRound: genesis},
		rounds: []int{FirstRound},
	}
}

//Install schedules a peer-set to become effective at round. Effective rounds
//are monotonic; installing at or before the latest effective round is an
//error.
func (h *PeerSetHistory) Install(round int, peerSet *peers.PeerSet) error {
	last := h.rounds[len(h.rounds)-1]
	if round <= last {
		return common.NewStoreErr(common.PassedIndex, fmt.Sprintf("peerset round %d", round))
	}
	h.sets[round] = peerSet
	h.rounds = append(h.rounds, round)
	return nil
}

//Effective returns the peer-set governing the given round: the installed set
//with the greatest effective round not exceeding it.
func (h *PeerSetHistory) Effective(round int) (*peers.PeerSet, error) {
	i := sort.SearchInts(h.rounds, round+1) - 1
	if i < 0 {
		return h.sets[h.rounds[0]], nil
	}
	return h.sets[h.rounds[i]], nil
}

func (h *PeerSetHistory) Genesis() *peers.PeerSet {
	return h.sets[h.rounds[0]]
}

func (h *PeerSetHistory) Latest() *peers.PeerSet {
	return h.sets[h.rounds[len(h.rounds)-1]]
}

func (h *PeerSetHistory) EffectiveRounds() []int {
	res := make([]int, len(h.rounds))
	copy(res, h.rounds)
	return res
}

//Repertoire is the union of all peers that ever appeared in an installed
//peer-set, keyed by public key.
func (h *PeerSetHistory) Repertoire() map[string]*peers.Peer {
	res := map[string]*peers.Peer{}
	for _, ps := range h.sets {
		for _, p := range ps.Peers {
			res[p.PubKeyHex] = p
		}
	}
	return res
}

//RepertoireByID is the same union keyed by peer ID.
func (h *PeerSetHistory) RepertoireByID() map[int]*peers.Peer {
	res := map[int]*peers.Peer{}
	for _, ps := range h.sets {
		for _, p := range ps.Peers {
			res[p.ID] = p
		}
	}
	return res
}
