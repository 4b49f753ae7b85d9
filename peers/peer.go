package peers

import (
	"encoding/hex"
	"hash/fnv"
)

// DefaultWeight is the voting weight assigned to a peer that does not declare
// one. Equal-weight deployments can leave Weight unset everywhere.
const DefaultWeight = 1

type Peer struct {
	ID        int    `json:"-"`
	PubKeyHex string `json:"pubKeyHex"`
	Moniker   string `json:"moniker"`
	Weight    int    `json:"weight"`
}

func NewPeer(pubKeyHex, moniker string, weight int) *Peer {
	if weight <= 0 {
		weight = DefaultWeight
	}
	peer := &Peer{
		PubKeyHex: pubKeyHex,
		Moniker:   moniker,
		Weight:    weight,
	}
	peer.computeID()
	return peer
}

func (p *Peer) PubKeyBytes() ([]byte, error) {
	return hex.DecodeString(p.PubKeyHex[2:])
}

// computeID derives a stable numeric ID from the public key. The ID is what
// indexes event coordinate vectors, so it must be identical on every member
// and survive peer-set changes.
func (p *Peer) computeID() error {
	pubKey, err := p.PubKeyBytes()
	if err != nil {
		return err
	}

	hasher := fnv.New32a()
	hasher.Write(pubKey)
	p.ID = int(hasher.Sum32())

	return nil
}

// ByPubHex implements sort.Interface for []*Peer based on the PubKeyHex field.
type ByPubHex []*Peer

func (a ByPubHex) Len() int      { return len(a) }
func (a ByPubHex) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByPubHex) Less(i, j int) bool {
	return a[i].PubKeyHex < a[j].PubKeyHex
}
