package hashgraph

import (
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/ugorji/go/codec"

	"github.com/quiltnetworks/quilt/crypto"
)

type EventBody struct {
	Transactions [][]byte  //the payload
	Parents      []string  //hashes of the event's parents, self-parent first
	Creator      []byte    //creator's public key
	Timestamp    time.Time //creator's claimed timestamp of the event's creation
	Index        int       //index in the sequence of events created by Creator

	//wire
	//It is cheaper to send ints than hashes over the wire
	selfParentIndex      int
	otherParentCreatorID int
	otherParentIndex     int
	creatorID            int
}

//canonical json encoding of body only. The encoding must be deterministic
//because the event hash and signature are computed over it.
func (e *EventBody) Marshal() ([]byte, error) {
	b := []byte{}
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoderBytes(&b, jh)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *EventBody) Unmarshal(data []byte) error {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoderBytes(data, jh)
	return dec.Decode(e)
}

func (e *EventBody) Hash() ([]byte, error) {
	hashBytes, err := e.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(hashBytes), nil
}

type EventCoordinates struct {
	hash  string
	index int
}

// CoordinatesMap indexes coordinates by participant ID. A missing entry means
// the event has no ancestor (resp. descendant) by that participant.
type CoordinatesMap map[int]EventCoordinates

func (c CoordinatesMap) Copy() CoordinatesMap {
	res := make(CoordinatesMap, len(c))
	for id, coord := range c {
		res[id] = coord
	}
	return res
}

type Event struct {
	Body      EventBody
	Signature string //creator's digital signature of body

	topologicalIndex int

	round              *int
	roundReceived      *int
	consensusTimestamp time.Time

	lastAncestors    CoordinatesMap //[participant ID] => last ancestor
	firstDescendants CoordinatesMap //[participant ID] => first descendant

	creator string
	hash    []byte
	hex     string

	sigS *big.Int
}

func NewEvent(transactions [][]byte,
	parents []string,
	creator []byte,
	index int) Event {

	body := EventBody{
		Transactions: transactions,
		Parents:      parents,
		Creator:      creator,
		Timestamp:    time.Now().UTC(), //strip monotonic time
		Index:        index,
	}
	return Event{
		Body: body,
	}
}

func (e *Event) Creator() string {
	if e.creator == "" {
		e.creator = fmt.Sprintf("0x%X", e.Body.Creator)
	}
	return e.creator
}

func (e *Event) SelfParent() string {
	if len(e.Body.Parents) < 1 {
		return ""
	}
	return e.Body.Parents[0]
}

func (e *Event) OtherParent() string {
	if len(e.Body.Parents) < 2 {
		return ""
	}
	return e.Body.Parents[1]
}

func (e *Event) Transactions() [][]byte {
	return e.Body.Transactions
}

func (e *Event) Index() int {
	return e.Body.Index
}

//True if Event contains a payload or is the initial Event of its creator
func (e *Event) IsLoaded() bool {
	if e.Body.Index == 0 {
		return true
	}
	return len(e.Body.Transactions) > 0
}

func (e *Event) Sign(privKey *btcec.PrivateKey) error {
	signBytes, err := e.Body.Hash()
	if err != nil {
		return err
	}
	e.Signature, err = crypto.Sign(privKey, signBytes)
	return err
}

func (e *Event) Verify() (bool, error) {
	pubKey, err := crypto.ParsePubKey(e.Body.Creator)
	if err != nil {
		return false, err
	}

	signBytes, err := e.Body.Hash()
	if err != nil {
		return false, err
	}

	return crypto.Verify(pubKey, signBytes, e.Signature)
}

//SignatureS returns the S component of the event's signature. It is used to
//whiten the final tie-break of the consensus order.
func (e *Event) SignatureS() *big.Int {
	if e.sigS == nil {
		sig, err := crypto.DecodeSignature(e.Signature)
		if err != nil {
			e.sigS = new(big.Int)
		} else {
			e.sigS = sig.S
		}
	}
	return e.sigS
}

//canonical json encoding of body and signature
func (e *Event) Marshal() ([]byte, error) {
	b := []byte{}
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoderBytes(&b, jh)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Event) Unmarshal(data []byte) error {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoderBytes(data, jh)
	return dec.Decode(e)
}

//sha256 hash of body only; the digest doubles as the event's identity and
//the message covered by the signature
func (e *Event) Hash() ([]byte, error) {
	if len(e.hash) == 0 {
		hash, err := e.Body.Hash()
		if err != nil {
			return nil, err
		}
		e.hash = hash
	}
	return e.hash, nil
}

func (e *Event) Hex() string {
	if e.hex == "" {
		hash, _ := e.Hash()
		e.hex = fmt.Sprintf("0x%X", hash)
	}
	return e.hex
}

func (e *Event) GetRound() *int {
	return e.round
}

func (e *Event) SetRound(r int) {
	if e.round == nil {
		e.round = new(int)
	}
	*e.round = r
}

func (e *Event) GetRoundReceived() *int {
	return e.roundReceived
}

func (e *Event) SetRoundReceived(rr int) {
	if e.roundReceived == nil {
		e.roundReceived = new(int)
	}
	*e.roundReceived = rr
}

func (e *Event) ConsensusTimestamp() time.Time {
	return e.consensusTimestamp
}

func (e *Event) SetWireInfo(selfParentIndex,
	otherParentCreatorID,
	otherParentIndex,
	creatorID int) {
	e.Body.selfParentIndex = selfParentIndex
	e.Body.otherParentCreatorID = otherParentCreatorID
	e.Body.otherParentIndex = otherParentIndex
	e.Body.creatorID = creatorID
}

func (e *Event) CreatorID() int {
	return e.Body.creatorID
}

func (e *Event) ToWire() WireEvent {
	return WireEvent{
		Body: WireBody{
			Transactions:         e.Body.Transactions,
			SelfParentIndex:      e.Body.selfParentIndex,
			OtherParentCreatorID: e.Body.otherParentCreatorID,
			OtherParentIndex:     e.Body.otherParentIndex,
			CreatorID:            e.Body.creatorID,
			Timestamp:            e.Body.Timestamp,
			Index:                e.Body.Index,
		},
		Signature: e.Signature,
	}
}

//Sorting

// ByTimestamp implements sort.Interface for []Event based on
// the timestamp field.
type ByTimestamp []Event

func (a ByTimestamp) Len() int      { return len(a) }
func (a ByTimestamp) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByTimestamp) Less(i, j int) bool {
	//normally, time.Sub uses monotonic time which only makes sense if it is
	//being called in the same process that made the time object.
	//that is why we strip out the monotonic time reading from the Timestamp at
	//the time of creating the Event
	return a[i].Body.Timestamp.Before(a[j].Body.Timestamp)
}

// ByTopologicalOrder implements sort.Interface for []Event based on
// the topologicalIndex field.
type ByTopologicalOrder []Event

func (a ByTopologicalOrder) Len() int      { return len(a) }
func (a ByTopologicalOrder) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByTopologicalOrder) Less(i, j int) bool {
	return a[i].topologicalIndex < a[j].topologicalIndex
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
// WireEvent

type WireBody struct {
	Transactions [][]byte

	SelfParentIndex      int
	OtherParentCreatorID int
	OtherParentIndex     int
	CreatorID            int

	Timestamp time.Time
	Index     int
}

type WireEvent struct {
	Body      WireBody
	Signature string
}
