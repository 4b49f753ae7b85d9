package peers

import (
	"bytes"
	"sort"

	"github.com/ugorji/go/codec"
)

// PeerSet is a read-only group of peers with voting weights. It is the unit
// that all supermajority arithmetic binds to: a Hashgraph holds one PeerSet
// per membership change, each effective from a given round.
type PeerSet struct {
	Peers    []*Peer          `json:"peers"`
	ByPubKey map[string]*Peer `json:"-"`
	ByID     map[int]*Peer    `json:"-"`

	//cached values
	totalWeight   int
	superMajority int
}

// NewPeerSet creates a PeerSet from a list of Peers, sorted by public key so
// that every member derives the identical set from the same list.
func NewPeerSet(peers []*Peer) *PeerSet {
	sorted := make([]*Peer, len(peers))
	copy(sorted, peers)
	sort.Sort(ByPubHex(sorted))

	peerSet := &PeerSet{
		Peers:    sorted,
		ByPubKey: make(map[string]*Peer),
		ByID:     make(map[int]*Peer),
	}

	for _, peer := range sorted {
		if peer.ID == 0 {
			peer.computeID()
		}
		peerSet.ByPubKey[peer.PubKeyHex] = peer
		peerSet.ByID[peer.ID] = peer
		peerSet.totalWeight += peer.Weight
	}

	peerSet.superMajority = 2*peerSet.totalWeight/3 + 1

	return peerSet
}

// WithNewPeer returns a new PeerSet with the additional peer.
func (ps *PeerSet) WithNewPeer(peer *Peer) *PeerSet {
	peers := append([]*Peer{peer}, ps.Peers...)
	return NewPeerSet(peers)
}

// WithRemovedPeer returns a new PeerSet without the given peer.
func (ps *PeerSet) WithRemovedPeer(peer *Peer) *PeerSet {
	peers := []*Peer{}
	for _, p := range ps.Peers {
		if p.PubKeyHex != peer.PubKeyHex {
			peers = append(peers, p)
		}
	}
	return NewPeerSet(peers)
}

func (ps *PeerSet) Len() int {
	return len(ps.Peers)
}

// TotalWeight is the sum of all peers' voting weights.
func (ps *PeerSet) TotalWeight() int {
	return ps.totalWeight
}

// SuperMajority is the smallest weight strictly greater than 2/3 of the total
// weight. Strongly-seeing, round advancement and fame votes all compare
// against it.
func (ps *PeerSet) SuperMajority() int {
	return ps.superMajority
}

// WeightOf returns the voting weight of the peer with the given public key,
// or 0 for an unknown peer.
func (ps *PeerSet) WeightOf(pubKeyHex string) int {
	if peer, ok := ps.ByPubKey[pubKeyHex]; ok {
		return peer.Weight
	}
	return 0
}

func (ps *PeerSet) PubKeys() []string {
	res := []string{}
	for _, peer := range ps.Peers {
		res = append(res, peer.PubKeyHex)
	}
	return res
}

func (ps *PeerSet) IDs() []int {
	res := []int{}
	for _, peer := range ps.Peers {
		res = append(res, peer.ID)
	}
	return res
}

//Marshal returns the deterministic JSON encoding of the PeerSet. The peer
//slice is already sorted by public key, and the canonical codec takes care of
//any map fields, so the bytes are identical on every member.
func (ps *PeerSet) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(ps.Peers); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func Unmarshal(data []byte) (*PeerSet, error) {
	peers := []*Peer{}

	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	for _, peer := range peers {
		peer.computeID()
	}

	return NewPeerSet(peers), nil
}
