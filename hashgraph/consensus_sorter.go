package hashgraph

import (
	"math/big"
)

// ConsensusSorter produces the final total order: by round received, then by
// consensus timestamp, then by the event's signature whitened with the round's
// pseudo-random number. Whitening keeps the last tie-break out of any single
// member's control.
type ConsensusSorter struct {
	a     []Event
	r     map[int]*RoundInfo
	cache map[int]*big.Int
}

func NewConsensusSorter(events []Event, rounds map[int]*RoundInfo) ConsensusSorter {
	return ConsensusSorter{
		a:     events,
		r:     rounds,
		cache: make(map[int]*big.Int),
	}
}

func (b ConsensusSorter) Len() int      { return len(b.a) }
func (b ConsensusSorter) Swap(i, j int) { b.a[i], b.a[j] = b.a[j], b.a[i] }
func (b ConsensusSorter) Less(i, j int) bool {
	irr, jrr := -1, -1
	if b.a[i].roundReceived != nil {
		irr = *b.a[i].roundReceived
	}
	if b.a[j].roundReceived != nil {
		jrr = *b.a[j].roundReceived
	}
	if irr != jrr {
		return irr < jrr
	}

	if !b.a[i].consensusTimestamp.Equal(b.a[j].consensusTimestamp) {
		return b.a[i].consensusTimestamp.Before(b.a[j].consensusTimestamp)
	}

	w := b.pseudoRandomNumber(irr)
	wsi := new(big.Int).Xor(b.a[i].SignatureS(), w)
	wsj := new(big.Int).Xor(b.a[j].SignatureS(), w)
	return wsi.Cmp(wsj) < 0
}

func (b ConsensusSorter) pseudoRandomNumber(round int) *big.Int {
	if prn, ok := b.cache[round]; ok {
		return prn
	}
	prn := new(big.Int)
	if ri, ok := b.r[round]; ok {
		prn = ri.PseudoRandomNumber()
	}
	b.cache[round] = prn
	return prn
}
