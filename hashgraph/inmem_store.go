package hashgraph

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru"

	"github.com/quiltnetworks/quilt/common"
	"github.com/quiltnetworks/quilt/peers"
)

type InmemStore struct {
	cacheSize              int
	eventCache             *lru.Cache
	roundCache             *lru.Cache
	consensusCache         *common.RollingIndex
	totConsensusEvents     int
	participantEventsCache *ParticipantEventsCache
	peerSetHistory         *PeerSetHistory
	lastRound              int
}

func NewInmemStore(genesisPeers *peers.PeerSet, cacheSize int) *InmemStore {
	eventCache, _ := lru.New(cacheSize)
	roundCache, _ := lru.New(cacheSize)
	return &InmemStore{
		cacheSize:              cacheSize,
		eventCache:             eventCache,
		roundCache:             roundCache,
		consensusCache:         common.NewRollingIndex(cacheSize),
		participantEventsCache: NewParticipantEventsCache(cacheSize),
		peerSetHistory:         NewPeerSetHistory(genesisPeers),
		lastRound:              0,
	}
}

func (s *InmemStore) CacheSize() int {
	return s.cacheSize
}

func (s *InmemStore) GetEvent(key string) (Event, error) {
	res, ok := s.eventCache.Get(key)
	if !ok {
		return Event{}, common.NewStoreErr(common.KeyNotFound, key)
	}
	return res.(Event), nil
}

func (s *InmemStore) SetEvent(event Event) error {
	key := event.Hex()
	_, err := s.GetEvent(key)
	if err != nil && !common.Is(err, common.KeyNotFound) {
		return err
	}
	if common.Is(err, common.KeyNotFound) {
		if err := s.participantEventsCache.Set(event.Creator(), key, event.Index()); err != nil {
			return err
		}
	}
	s.eventCache.Add(key, event)
	return nil
}

func (s *InmemStore) ParticipantEvents(participant string, skip int) ([]string, error) {
	return s.participantEventsCache.Get(participant, skip)
}

func (s *InmemStore) ParticipantEvent(participant string, index int) (string, error) {
	return s.participantEventsCache.GetItem(participant, index)
}

func (s *InmemStore) LastEventFrom(participant string) (string, error) {
	return s.participantEventsCache.GetLast(participant)
}

func (s *InmemStore) KnownEvents() map[int]int {
	known := make(map[int]int)
	rep := s.RepertoireByPubKey()
	for p, peer := range rep {
		known[peer.ID] = -1
		if lastIndex, ok := s.participantEventsCache.Known()[p]; ok {
			known[peer.ID] = lastIndex
		}
	}
	return known
}

func (s *InmemStore) ConsensusEvents() []string {
	lastWindow, _ := s.consensusCache.GetLastWindow()
	res := make([]string, len(lastWindow))
	for i, item := range lastWindow {
		res[i] = item.(string)
	}
	return res
}

func (s *InmemStore) ConsensusEventsSince(skip int) ([]string, error) {
	items, err := s.consensusCache.Get(skip)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, item := range items {
		res[i] = item.(string)
	}
	return res, nil
}

func (s *InmemStore) ConsensusEventsCount() int {
	return s.totConsensusEvents
}

func (s *InmemStore) AddConsensusEvent(event Event) error {
	if err := s.consensusCache.Set(event.Hex(), s.totConsensusEvents); err != nil {
		return err
	}
	s.totConsensusEvents++
	return nil
}

func (s *InmemStore) GetRound(r int) (*RoundInfo, error) {
	res, ok := s.roundCache.Get(r)
	if !ok {
		return nil, common.NewStoreErr(common.KeyNotFound, strconv.Itoa(r))
	}
	return res.(*RoundInfo), nil
}

func (s *InmemStore) SetRound(r int, round *RoundInfo) error {
	s.roundCache.Add(r, round)
	if r > s.lastRound {
		s.lastRound = r
	}
	return nil
}

func (s *InmemStore) LastRound() int {
	return s.lastRound
}

func (s *InmemStore) RoundWitnesses(r int) []string {
	round, err := s.GetRound(r)
	if err != nil {
		return []string{}
	}
	return round.Witnesses()
}

func (s *InmemStore) RoundEvents(r int) int {
	round, err := s.GetRound(r)
	if err != nil {
		return 0
	}
	return len(round.Events)
}

func (s *InmemStore) GetPeerSet(round int) (*peers.PeerSet, error) {
	return s.peerSetHistory.Effective(round)
}

func (s *InmemStore) SetPeerSet(round int, peerSet *peers.PeerSet) error {
	return s.peerSetHistory.Install(round, peerSet)
}

func (s *InmemStore) RepertoireByPubKey() map[string]*peers.Peer {
	return s.peerSetHistory.Repertoire()
}

func (s *InmemStore) RepertoireByID() map[int]*peers.Peer {
	return s.peerSetHistory.RepertoireByID()
}

func (s *InmemStore) Close() error {
	return nil
}
