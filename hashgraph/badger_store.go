package hashgraph

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"

	"github.com/quiltnetworks/quilt/common"
	"github.com/quiltnetworks/quilt/peers"
)

const (
	roundPrefix     = "round"
	peerSetPrefix   = "peerset"
	consensusPrefix = "consensus"
)

// BadgerStore is a write-through cache on top of a badger database. Reads hit
// the in-memory store first and fall back to disk for items that rolled out
// of the cache windows.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
}

func NewBadgerStore(genesisPeers *peers.PeerSet, cacheSize int, path string) (*BadgerStore, error) {
	inmemStore := NewInmemStore(genesisPeers, cacheSize)

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	handle, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger db %s", path)
	}

	store := &BadgerStore{
		inmemStore: inmemStore,
		db:         handle,
		path:       path,
	}

	if err := store.dbSetPeerSet(FirstRound, genesisPeers); err != nil {
		return nil, err
	}

	//reload peer-sets installed in a previous run
	if err := store.loadPeerSets(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *BadgerStore) loadPeerSets() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(peerSetPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var round int
			if _, err := fmt.Sscanf(string(item.Key()), peerSetPrefix+"_%09d", &round); err != nil {
				continue
			}
			if round == FirstRound {
				continue
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			peerSet, err := peers.Unmarshal(v)
			if err != nil {
				return errors.Wrapf(err, "decoding stored peer set at round %d", round)
			}
			if err := s.inmemStore.SetPeerSet(round, peerSet); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) CacheSize() int {
	return s.inmemStore.CacheSize()
}

func (s *BadgerStore) GetEvent(key string) (Event, error) {
	event, err := s.inmemStore.GetEvent(key)
	if err != nil {
		event, err = s.dbGetEvent(key)
	}
	return event, err
}

func (s *BadgerStore) SetEvent(event Event) error {
	if err := s.inmemStore.SetEvent(event); err != nil {
		return err
	}
	return s.dbSetEvent(event)
}

func (s *BadgerStore) ParticipantEvents(participant string, skip int) ([]string, error) {
	res, err := s.inmemStore.ParticipantEvents(participant, skip)
	if err != nil || len(res) == 0 {
		res, err = s.dbParticipantEvents(participant, skip)
	}
	return res, err
}

func (s *BadgerStore) ParticipantEvent(participant string, index int) (string, error) {
	result, err := s.inmemStore.ParticipantEvent(participant, index)
	if err != nil {
		result, err = s.dbParticipantEvent(participant, index)
	}
	return result, err
}

func (s *BadgerStore) LastEventFrom(participant string) (string, error) {
	return s.inmemStore.LastEventFrom(participant)
}

func (s *BadgerStore) KnownEvents() map[int]int {
	return s.inmemStore.KnownEvents()
}

func (s *BadgerStore) ConsensusEvents() []string {
	return s.inmemStore.ConsensusEvents()
}

func (s *BadgerStore) ConsensusEventsSince(skip int) ([]string, error) {
	res, err := s.inmemStore.ConsensusEventsSince(skip)
	if err != nil || len(res) == 0 {
		res, err = s.dbConsensusEventsSince(skip)
	}
	return res, err
}

func (s *BadgerStore) ConsensusEventsCount() int {
	return s.inmemStore.ConsensusEventsCount()
}

func (s *BadgerStore) AddConsensusEvent(event Event) error {
	index := s.inmemStore.ConsensusEventsCount()
	if err := s.inmemStore.AddConsensusEvent(event); err != nil {
		return err
	}
	return s.dbSetConsensusEvent(index, event.Hex())
}

func (s *BadgerStore) GetRound(r int) (*RoundInfo, error) {
	res, err := s.inmemStore.GetRound(r)
	if err != nil {
		res, err = s.dbGetRound(r)
	}
	return res, err
}

func (s *BadgerStore) SetRound(r int, round *RoundInfo) error {
	if err := s.inmemStore.SetRound(r, round); err != nil {
		return err
	}
	return s.dbSetRound(r, round)
}

func (s *BadgerStore) LastRound() int {
	return s.inmemStore.LastRound()
}

func (s *BadgerStore) RoundWitnesses(r int) []string {
	round, err := s.GetRound(r)
	if err != nil {
		return []string{}
	}
	return round.Witnesses()
}

func (s *BadgerStore) RoundEvents(r int) int {
	round, err := s.GetRound(r)
	if err != nil {
		return 0
	}
	return len(round.Events)
}

func (s *BadgerStore) GetPeerSet(round int) (*peers.PeerSet, error) {
	return s.inmemStore.GetPeerSet(round)
}

func (s *BadgerStore) SetPeerSet(round int, peerSet *peers.PeerSet) error {
	if err := s.inmemStore.SetPeerSet(round, peerSet); err != nil {
		return err
	}
	return s.dbSetPeerSet(round, peerSet)
}

func (s *BadgerStore) RepertoireByPubKey() map[string]*peers.Peer {
	return s.inmemStore.RepertoireByPubKey()
}

func (s *BadgerStore) RepertoireByID() map[int]*peers.Peer {
	return s.inmemStore.RepertoireByID()
}

func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

//RemoveAll deletes the database files. Used by tests.
func (s *BadgerStore) RemoveAll() error {
	return os.RemoveAll(s.path)
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//db keys

func eventKey(key string) []byte {
	return []byte(key)
}

func participantEventKey(participant string, index int) []byte {
	return []byte(fmt.Sprintf("%s__event_%09d", participant, index))
}

func roundKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", roundPrefix, index))
}

func peerSetKey(round int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", peerSetPrefix, round))
}

func consensusKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", consensusPrefix, index))
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//db format

type storedCoordinates struct {
	Hash  string
	Index int
}

//storedEvent is the db representation of an Event. Event.Marshal covers only
//the signed parts; the store must also keep the derived annotations (round,
//round received, consensus timestamp, ancestry coordinates, wire indexes) so
//that nothing has to be re-derived from genesis after a restart.
type storedEvent struct {
	Body      EventBody
	Signature string

	SelfParentIndex      int
	OtherParentCreatorID int
	OtherParentIndex     int
	CreatorID            int

	TopologicalIndex int

	Round              *int
	RoundReceived      *int
	ConsensusTimestamp time.Time

	LastAncestors    map[int]storedCoordinates
	FirstDescendants map[int]storedCoordinates
}

func toStoredCoordinates(coords CoordinatesMap) map[int]storedCoordinates {
	res := make(map[int]storedCoordinates, len(coords))
	for id, c := range coords {
		res[id] = storedCoordinates{Hash: c.hash, Index: c.index}
	}
	return res
}

func fromStoredCoordinates(coords map[int]storedCoordinates) CoordinatesMap {
	res := make(CoordinatesMap, len(coords))
	for id, c := range coords {
		res[id] = EventCoordinates{hash: c.Hash, index: c.Index}
	}
	return res
}

func marshalStoredEvent(event Event) ([]byte, error) {
	se := storedEvent{
		Body:      event.Body,
		Signature: event.Signature,

		SelfParentIndex:      event.Body.selfParentIndex,
		OtherParentCreatorID: event.Body.otherParentCreatorID,
		OtherParentIndex:     event.Body.otherParentIndex,
		CreatorID:            event.Body.creatorID,

		TopologicalIndex: event.topologicalIndex,

		Round:              event.round,
		RoundReceived:      event.roundReceived,
		ConsensusTimestamp: event.consensusTimestamp,

		LastAncestors:    toStoredCoordinates(event.lastAncestors),
		FirstDescendants: toStoredCoordinates(event.firstDescendants),
	}

	b := []byte{}
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoderBytes(&b, jh)
	if err := enc.Encode(se); err != nil {
		return nil, err
	}
	return b, nil
}

func unmarshalStoredEvent(data []byte) (Event, error) {
	se := new(storedEvent)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoderBytes(data, jh)
	if err := dec.Decode(se); err != nil {
		return Event{}, err
	}

	event := Event{
		Body:      se.Body,
		Signature: se.Signature,

		topologicalIndex:   se.TopologicalIndex,
		round:              se.Round,
		roundReceived:      se.RoundReceived,
		consensusTimestamp: se.ConsensusTimestamp,

		lastAncestors:    fromStoredCoordinates(se.LastAncestors),
		firstDescendants: fromStoredCoordinates(se.FirstDescendants),
	}
	event.Body.selfParentIndex = se.SelfParentIndex
	event.Body.otherParentCreatorID = se.OtherParentCreatorID
	event.Body.otherParentIndex = se.OtherParentIndex
	event.Body.creatorID = se.CreatorID

	return event, nil
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//db access

func (s *BadgerStore) dbGetEvent(key string) (Event, error) {
	var eventBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(key))
		if err != nil {
			return err
		}
		eventBytes, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return Event{}, common.NewStoreErr(common.KeyNotFound, key)
	}

	event, err := unmarshalStoredEvent(eventBytes)
	if err != nil {
		return Event{}, errors.Wrapf(err, "decoding stored event %s", key)
	}
	return event, nil
}

func (s *BadgerStore) dbSetEvent(event Event) error {
	eventBytes, err := marshalStoredEvent(event)
	if err != nil {
		return errors.Wrapf(err, "encoding event %s", event.Hex())
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(eventKey(event.Hex()), eventBytes); err != nil {
		return err
	}
	if err := tx.Set(participantEventKey(event.Creator(), event.Index()), []byte(event.Hex())); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbParticipantEvents(participant string, skip int) ([]string, error) {
	res := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		for i := skip + 1; ; i++ {
			item, err := txn.Get(participantEventKey(participant, i))
			if err != nil {
				break
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			res = append(res, string(v))
		}
		return nil
	})
	return res, err
}

func (s *BadgerStore) dbParticipantEvent(participant string, index int) (string, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(participantEventKey(participant, index))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", common.NewStoreErr(common.KeyNotFound, string(participantEventKey(participant, index)))
	}
	return string(data), nil
}

func (s *BadgerStore) dbGetRound(index int) (*RoundInfo, error) {
	var roundBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roundKey(index))
		if err != nil {
			return err
		}
		roundBytes, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, common.NewStoreErr(common.KeyNotFound, string(roundKey(index)))
	}

	roundInfo := NewRoundInfo()
	if err := roundInfo.Unmarshal(roundBytes); err != nil {
		return nil, errors.Wrapf(err, "decoding stored round %d", index)
	}
	return roundInfo, nil
}

func (s *BadgerStore) dbSetRound(index int, round *RoundInfo) error {
	roundBytes, err := round.Marshal()
	if err != nil {
		return errors.Wrapf(err, "encoding round %d", index)
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(roundKey(index), roundBytes); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbSetPeerSet(round int, peerSet *peers.PeerSet) error {
	peerSetBytes, err := peerSet.Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(peerSetKey(round), peerSetBytes); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbSetConsensusEvent(index int, hex string) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(consensusKey(index), []byte(hex)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbConsensusEventsSince(skip int) ([]string, error) {
	res := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		for i := skip + 1; ; i++ {
			item, err := txn.Get(consensusKey(i))
			if err != nil {
				break
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			res = append(res, string(v))
		}
		return nil
	})
	return res, err
}
