package hashgraph

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/quiltnetworks/quilt/common"
	"github.com/quiltnetworks/quilt/peers"
)

// FirstRound is the round assigned to events with no parents.
const FirstRound = 1

type Key struct {
	x string
	y string
}

type pendingRound struct {
	Index   int
	Decided bool
}

// OrderedEvent is an entry of the consensus log.
type OrderedEvent struct {
	Digest             string
	RoundReceived      int
	ConsensusTimestamp time.Time
	OrderIndex         int
}

// Hashgraph derives a total order of events from the gossip DAG. There is no
// leader and no extra voting traffic: rounds, witnesses, fame, and order are
// all computed locally from event ancestry.
type Hashgraph struct {
	Store              Store     //store of Events, Rounds, and PeerSets
	UndeterminedEvents []string  //[index] => hash . FIFO queue of Events whose consensus order is not yet determined
	PendingRounds      []*pendingRound //FIFO queue of Rounds which have not been processed yet

	LastConsensusRound      *int //index of last consensus round
	LastCommitedRoundEvents int  //number of events in round before LastConsensusRound
	ConsensusTransactions   int  //number of consensus transactions
	PendingLoadedEvents     int  //number of loaded events that are not yet committed

	commitCh         chan []Event //channel for committing ordered events
	topologicalIndex int          //counter used to order events in topological order
	coinRoundFreq    int

	ancestorCache           *lru.Cache
	selfAncestorCache       *lru.Cache
	oldestSelfAncestorCache *lru.Cache
	stronglySeeCache        *lru.Cache
	roundCache              *lru.Cache
	witnessCache            *lru.Cache

	logger *logrus.Entry
}

func NewHashgraph(store Store, commitCh chan []Event, config *Config) *Hashgraph {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		config.Logger = logrus.NewEntry(log)
	}

	cacheSize := store.CacheSize()
	ancestorCache, _ := lru.New(cacheSize)
	selfAncestorCache, _ := lru.New(cacheSize)
	oldestSelfAncestorCache, _ := lru.New(cacheSize)
	stronglySeeCache, _ := lru.New(cacheSize)
	roundCache, _ := lru.New(cacheSize)
	witnessCache, _ := lru.New(cacheSize)

	return &Hashgraph{
		Store:                   store,
		commitCh:                commitCh,
		coinRoundFreq:           config.CoinRoundFreq,
		ancestorCache:           ancestorCache,
		selfAncestorCache:       selfAncestorCache,
		oldestSelfAncestorCache: oldestSelfAncestorCache,
		stronglySeeCache:        stronglySeeCache,
		roundCache:              roundCache,
		witnessCache:            witnessCache,
		UndeterminedEvents:      []string{},
		PendingRounds:           []*pendingRound{},
		logger:                  config.Logger,
	}
}

func (h *Hashgraph) creatorID(pubKeyHex string) (int, bool) {
	peer, ok := h.Store.RepertoireByPubKey()[pubKeyHex]
	if !ok {
		return 0, false
	}
	return peer.ID, true
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//ancestry

//true if y is an ancestor of x
func (h *Hashgraph) Ancestor(x, y string) bool {
	if c, ok := h.ancestorCache.Get(Key{x, y}); ok {
		return c.(bool)
	}
	a := h.ancestor(x, y)
	h.ancestorCache.Add(Key{x, y}, a)
	return a
}

func (h *Hashgraph) ancestor(x, y string) bool {
	if x == "" || y == "" {
		return false
	}
	if x == y {
		return true
	}
	ex, err := h.Store.GetEvent(x)
	if err != nil {
		return false
	}
	ey, err := h.Store.GetEvent(y)
	if err != nil {
		return false
	}

	eyCreator, ok := h.creatorID(ey.Creator())
	if !ok {
		return false
	}
	la, ok := ex.lastAncestors[eyCreator]

	return ok && la.index >= ey.Index()
}

//true if y is a self-ancestor of x
func (h *Hashgraph) SelfAncestor(x, y string) bool {
	if c, ok := h.selfAncestorCache.Get(Key{x, y}); ok {
		return c.(bool)
	}
	a := h.selfAncestor(x, y)
	h.selfAncestorCache.Add(Key{x, y}, a)
	return a
}

func (h *Hashgraph) selfAncestor(x, y string) bool {
	if x == "" || y == "" {
		return false
	}
	if x == y {
		return true
	}
	ex, err := h.Store.GetEvent(x)
	if err != nil {
		return false
	}
	ey, err := h.Store.GetEvent(y)
	if err != nil {
		return false
	}
	return ex.Creator() == ey.Creator() && ex.Index() >= ey.Index()
}

//true if x sees y. Seeing and ancestry coincide because forks are rejected at
//insertion, so the fork clause of the definition never triggers.
func (h *Hashgraph) See(x, y string) bool {
	return h.Ancestor(x, y)
}

//OldestSelfAncestorToSee returns the oldest self-ancestor of x that sees y.
func (h *Hashgraph) OldestSelfAncestorToSee(x, y string) string {
	if c, ok := h.oldestSelfAncestorCache.Get(Key{x, y}); ok {
		return c.(string)
	}
	res := h.oldestSelfAncestorToSee(x, y)
	h.oldestSelfAncestorCache.Add(Key{x, y}, res)
	return res
}

func (h *Hashgraph) oldestSelfAncestorToSee(x, y string) string {
	ex, err := h.Store.GetEvent(x)
	if err != nil {
		return ""
	}
	ey, err := h.Store.GetEvent(y)
	if err != nil {
		return ""
	}

	exCreator, ok := h.creatorID(ex.Creator())
	if !ok {
		return ""
	}
	a, ok := ey.firstDescendants[exCreator]
	if !ok || a.index > ex.Index() {
		return ""
	}
	return a.hash
}

//true if x strongly sees y within the given peer-set: the paths from x to y
//pass through events whose creators hold a supermajority of the weight.
func (h *Hashgraph) StronglySee(x, y string, peerSet *peers.PeerSet) bool {
	if c, ok := h.stronglySeeCache.Get(Key{x, y}); ok {
		return c.(bool)
	}
	ss := h.stronglySee(x, y, peerSet)
	h.stronglySeeCache.Add(Key{x, y}, ss)
	return ss
}

func (h *Hashgraph) stronglySee(x, y string, peerSet *peers.PeerSet) bool {
	ex, err := h.Store.GetEvent(x)
	if err != nil {
		return false
	}
	ey, err := h.Store.GetEvent(y)
	if err != nil {
		return false
	}

	c := 0
	for id, peer := range peerSet.ByID {
		fd, fdKnown := ey.firstDescendants[id]
		la, laKnown := ex.lastAncestors[id]
		if fdKnown && laKnown && la.index >= fd.index {
			c += peer.Weight
		}
	}

	return c >= peerSet.SuperMajority()
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//rounds and witnesses

func (h *Hashgraph) parentRound(x string) int {
	ex, err := h.Store.GetEvent(x)
	if err != nil {
		return -1
	}

	res := 0
	if sp := ex.SelfParent(); sp != "" {
		res = h.Round(sp)
	}
	if op := ex.OtherParent(); op != "" {
		if opRound := h.Round(op); opRound > res {
			res = opRound
		}
	}
	return res
}

//Round returns the round of x. An event inherits the max of its parents'
//rounds, and advances one round further when it strongly sees a supermajority
//of that round's witnesses.
func (h *Hashgraph) Round(x string) int {
	if c, ok := h.roundCache.Get(x); ok {
		return c.(int)
	}
	r := h.round(x)
	h.roundCache.Add(x, r)
	return r
}

func (h *Hashgraph) round(x string) int {
	round := h.parentRound(x)
	if round < FirstRound {
		round = FirstRound
	}
	if h.roundInc(x, round) {
		round++
	}
	return round
}

func (h *Hashgraph) roundInc(x string, round int) bool {
	peerSet, err := h.Store.GetPeerSet(round)
	if err != nil {
		return false
	}

	c := 0
	for _, w := range h.Store.RoundWitnesses(round) {
		if h.StronglySee(x, w, peerSet) {
			ww, err := h.Store.GetEvent(w)
			if err != nil {
				continue
			}
			c += peerSet.WeightOf(ww.Creator())
		}
	}

	return c >= peerSet.SuperMajority()
}

//true if x is a witness: its creator's first event of its round
func (h *Hashgraph) Witness(x string) bool {
	if c, ok := h.witnessCache.Get(x); ok {
		return c.(bool)
	}
	w := h.witness(x)
	h.witnessCache.Add(x, w)
	return w
}

func (h *Hashgraph) witness(x string) bool {
	ex, err := h.Store.GetEvent(x)
	if err != nil {
		return false
	}

	sp := ex.SelfParent()
	if sp == "" {
		return true
	}
	return h.Round(x) > h.Round(sp)
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//event insertion

//InsertEvent attempts to insert an Event into the hashgraph. It verifies the
//signature, checks the ancestry, detects forks, and updates the event's
//ancestry coordinates. setWireInfo should be true for events that were not
//received over the wire.
func (h *Hashgraph) InsertEvent(event Event, setWireInfo bool) error {
	if err := h.validateEvent(&event); err != nil {
		return err
	}

	event.topologicalIndex = h.topologicalIndex
	h.topologicalIndex++

	if setWireInfo {
		if err := h.setWireInfo(&event); err != nil {
			return err
		}
	}

	if err := h.initEventCoordinates(&event); err != nil {
		return err
	}

	if err := h.Store.SetEvent(event); err != nil {
		return errors.Wrapf(err, "storing event %s", event.Hex())
	}

	if err := h.updateAncestorFirstDescendant(event); err != nil {
		return err
	}

	h.UndeterminedEvents = append(h.UndeterminedEvents, event.Hex())

	if event.IsLoaded() {
		h.PendingLoadedEvents++
	}

	return nil
}

func (h *Hashgraph) validateEvent(event *Event) error {
	if _, err := h.Store.GetEvent(event.Hex()); err == nil {
		return NewValidationError(DuplicateEvent, event.Hex())
	}

	ok, err := event.Verify()
	if err != nil || !ok {
		return NewValidationError(InvalidSignature, event.Hex())
	}

	if _, ok := h.Store.RepertoireByPubKey()[event.Creator()]; !ok {
		return NewValidationError(UnknownCreator, event.Hex())
	}

	lastKnown, err := h.Store.LastEventFrom(event.Creator())
	if err != nil {
		return err
	}

	selfParent := event.SelfParent()
	if selfParent == "" {
		//first event of its creator; a second parentless event is a fork
		if lastKnown != "" {
			return NewValidationError(ForkDetected, event.Hex())
		}
		if event.Index() != 0 {
			return NewValidationError(SkippedEventIndex, event.Hex())
		}
	} else {
		selfParentEvent, err := h.Store.GetEvent(selfParent)
		if err != nil {
			return NewValidationError(UnknownSelfParent, event.Hex())
		}
		if selfParentEvent.Creator() != event.Creator() {
			return NewValidationError(WrongCreator, event.Hex())
		}
		//the self-parent must be the creator's last known event, otherwise
		//the creator has branched its own history
		if selfParent != lastKnown {
			return NewValidationError(ForkDetected, event.Hex())
		}
		if event.Index() != selfParentEvent.Index()+1 {
			return NewValidationError(SkippedEventIndex, event.Hex())
		}
	}

	if otherParent := event.OtherParent(); otherParent != "" {
		if _, err := h.Store.GetEvent(otherParent); err != nil {
			return NewValidationError(UnknownOtherParent, event.Hex())
		}
	}

	return nil
}

func (h *Hashgraph) setWireInfo(event *Event) error {
	selfParentIndex := -1
	otherParentCreatorID := -1
	otherParentIndex := -1

	creatorID, ok := h.creatorID(event.Creator())
	if !ok {
		return NewValidationError(UnknownCreator, event.Hex())
	}

	if sp := event.SelfParent(); sp != "" {
		selfParent, err := h.Store.GetEvent(sp)
		if err != nil {
			return err
		}
		selfParentIndex = selfParent.Index()
	}

	if op := event.OtherParent(); op != "" {
		otherParent, err := h.Store.GetEvent(op)
		if err != nil {
			return err
		}
		opCreatorID, ok := h.creatorID(otherParent.Creator())
		if !ok {
			return NewValidationError(UnknownCreator, otherParent.Hex())
		}
		otherParentCreatorID = opCreatorID
		otherParentIndex = otherParent.Index()
	}

	event.SetWireInfo(selfParentIndex,
		otherParentCreatorID,
		otherParentIndex,
		creatorID)

	return nil
}

//initEventCoordinates merges the parents' last-ancestor vectors and seeds the
//event's own coordinates. Coordinates make ancestry queries O(members)
//instead of a DAG walk.
func (h *Hashgraph) initEventCoordinates(event *Event) error {
	event.lastAncestors = CoordinatesMap{}
	event.firstDescendants = CoordinatesMap{}

	if sp := event.SelfParent(); sp != "" {
		selfParent, err := h.Store.GetEvent(sp)
		if err != nil {
			return err
		}
		event.lastAncestors = selfParent.lastAncestors.Copy()
	}

	if op := event.OtherParent(); op != "" {
		otherParent, err := h.Store.GetEvent(op)
		if err != nil {
			return err
		}
		for id, c := range otherParent.lastAncestors {
			if cur, ok := event.lastAncestors[id]; !ok || cur.index < c.index {
				event.lastAncestors[id] = c
			}
		}
	}

	creatorID, ok := h.creatorID(event.Creator())
	if !ok {
		return NewValidationError(UnknownCreator, event.Hex())
	}

	self := EventCoordinates{
		index: event.Index(),
		hash:  event.Hex(),
	}
	event.firstDescendants[creatorID] = self
	event.lastAncestors[creatorID] = self

	return nil
}

//updateAncestorFirstDescendant records the new event as the first descendant
//of each of its ancestors, provided they don't already have one
func (h *Hashgraph) updateAncestorFirstDescendant(event Event) error {
	creatorID, ok := h.creatorID(event.Creator())
	if !ok {
		return NewValidationError(UnknownCreator, event.Hex())
	}

	coord := EventCoordinates{
		index: event.Index(),
		hash:  event.Hex(),
	}

	for _, la := range event.lastAncestors {
		ah := la.hash
		for ah != "" {
			a, err := h.Store.GetEvent(ah)
			if err != nil {
				break
			}
			if _, ok := a.firstDescendants[creatorID]; ok {
				break
			}
			a.firstDescendants[creatorID] = coord
			if err := h.Store.SetEvent(a); err != nil {
				return err
			}
			ah = a.SelfParent()
		}
	}

	return nil
}

//ReadWireInfo rebuilds a full Event from its compact wire representation,
//resolving parent indexes against the local store.
func (h *Hashgraph) ReadWireInfo(wevent WireEvent) (*Event, error) {
	selfParent := ""
	otherParent := ""
	var err error

	creator, ok := h.Store.RepertoireByID()[wevent.Body.CreatorID]
	if !ok {
		return nil, NewValidationError(UnknownCreator, strconv.Itoa(wevent.Body.CreatorID))
	}
	creatorBytes, err := creator.PubKeyBytes()
	if err != nil {
		return nil, err
	}

	if wevent.Body.SelfParentIndex >= 0 {
		selfParent, err = h.Store.ParticipantEvent(creator.PubKeyHex, wevent.Body.SelfParentIndex)
		if err != nil {
			return nil, err
		}
	}
	if wevent.Body.OtherParentIndex >= 0 {
		otherParentCreator, ok := h.Store.RepertoireByID()[wevent.Body.OtherParentCreatorID]
		if !ok {
			return nil, NewValidationError(UnknownCreator, strconv.Itoa(wevent.Body.OtherParentCreatorID))
		}
		otherParent, err = h.Store.ParticipantEvent(otherParentCreator.PubKeyHex, wevent.Body.OtherParentIndex)
		if err != nil {
			return nil, err
		}
	}

	body := EventBody{
		Transactions: wevent.Body.Transactions,
		Parents:      []string{selfParent, otherParent},
		Creator:      creatorBytes,
		Timestamp:    wevent.Body.Timestamp,
		Index:        wevent.Body.Index,

		selfParentIndex:      wevent.Body.SelfParentIndex,
		otherParentCreatorID: wevent.Body.OtherParentCreatorID,
		otherParentIndex:     wevent.Body.OtherParentIndex,
		creatorID:            wevent.Body.CreatorID,
	}

	event := &Event{
		Body:      body,
		Signature: wevent.Signature,
	}

	return event, nil
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//consensus methods

//DivideRounds assigns a round and witness flag to every event that does not
//have one yet, and queues newly touched rounds for fame deciding.
func (h *Hashgraph) DivideRounds() error {
	for _, hash := range h.UndeterminedEvents {
		ev, err := h.Store.GetEvent(hash)
		if err != nil {
			return err
		}

		if ev.round != nil {
			continue
		}

		roundNumber := h.Round(hash)
		if roundNumber < FirstRound {
			return NewInconsistentStateError("round of %s is %d", hash, roundNumber)
		}

		ev.SetRound(roundNumber)
		if err := h.Store.SetEvent(ev); err != nil {
			return err
		}

		h.queuePendingRound(roundNumber)

		roundInfo, err := h.Store.GetRound(roundNumber)
		if err != nil {
			if !common.Is(err, common.KeyNotFound) {
				return err
			}
			roundInfo = NewRoundInfo()
		}
		roundInfo.AddEvent(hash, h.Witness(hash))
		if err := h.Store.SetRound(roundNumber, roundInfo); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hashgraph) queuePendingRound(roundNumber int) {
	if h.LastConsensusRound != nil && roundNumber <= *h.LastConsensusRound {
		//round already processed; a late event landing here can still receive
		//a consensus order, but its round needs no further deciding
		return
	}
	for _, p := range h.PendingRounds {
		if p.Index == roundNumber {
			return
		}
	}
	h.PendingRounds = append(h.PendingRounds, &pendingRound{Index: roundNumber})
	sort.Slice(h.PendingRounds, func(i, j int) bool {
		return h.PendingRounds[i].Index < h.PendingRounds[j].Index
	})
}

//DecideFame runs the virtual election for every witness of every pending
//round: votes are derived from the ancestry, collected by the witnesses of
//later rounds, and every coinRoundFreq'th voting round falls back to a coin
//flip based on the voter's own hash.
func (h *Hashgraph) DecideFame() error {
	//[x][y] => y's vote for x
	votes := make(map[string]map[string]bool)

	for _, pRound := range h.PendingRounds {
		if pRound.Decided {
			continue
		}
		roundIndex := pRound.Index

		roundInfo, err := h.Store.GetRound(roundIndex)
		if err != nil {
			return err
		}

		for _, x := range roundInfo.Witnesses() {
			if roundInfo.IsDecided(x) {
				continue
			}
		VOTE_LOOP:
			for j := roundIndex + 1; j <= h.Store.LastRound(); j++ {
				for _, y := range h.Store.RoundWitnesses(j) {
					diff := j - roundIndex
					if diff == 1 {
						h.setVote(votes, y, x, h.See(y, x))
						continue
					}

					jPrevPeers, err := h.Store.GetPeerSet(j - 1)
					if err != nil {
						return err
					}

					//count the votes of the witnesses of the previous round
					//that y strongly sees
					yays := 0
					nays := 0
					for _, w := range h.Store.RoundWitnesses(j - 1) {
						if !h.StronglySee(y, w, jPrevPeers) {
							continue
						}
						we, err := h.Store.GetEvent(w)
						if err != nil {
							return err
						}
						weight := jPrevPeers.WeightOf(we.Creator())
						if votes[w][x] {
							yays += weight
						} else {
							nays += weight
						}
					}
					v := false
					t := nays
					if yays >= nays {
						v = true
						t = yays
					}

					if diff%h.coinRoundFreq != 0 {
						//normal round
						if t >= jPrevPeers.SuperMajority() {
							if err := roundInfo.SetFame(x, v); err != nil {
								return err
							}
							h.setVote(votes, y, x, v)
							break VOTE_LOOP
						}
						h.setVote(votes, y, x, v)
					} else {
						//coin round
						if t >= jPrevPeers.SuperMajority() {
							h.setVote(votes, y, x, v)
						} else {
							h.setVote(votes, y, x, middleBit(y))
						}
					}
				}
			}
		}

		if err := h.Store.SetRound(roundIndex, roundInfo); err != nil {
			return err
		}

		if roundInfo.WitnessesDecided() {
			pRound.Decided = true
			h.logger.WithFields(logrus.Fields{
				"round":            roundIndex,
				"famous_witnesses": len(roundInfo.FamousWitnesses()),
				"witnesses":        len(roundInfo.Witnesses()),
			}).Debug("Round decided")
		}
	}

	return nil
}

func (h *Hashgraph) setVote(votes map[string]map[string]bool, voter, candidate string, vote bool) {
	if votes[voter] == nil {
		votes[voter] = make(map[string]bool)
	}
	votes[voter][candidate] = vote
}

//decidedFrontier is the greatest round such that it and every round below it
//is decided. Rounds are consumed for ordering strictly in increasing order,
//even when a later round's election terminates first.
func (h *Hashgraph) decidedFrontier() int {
	frontier := FirstRound - 1
	if h.LastConsensusRound != nil {
		frontier = *h.LastConsensusRound
	}
	for _, p := range h.PendingRounds {
		if p.Index != frontier+1 || !p.Decided {
			break
		}
		frontier++
	}
	return frontier
}

//DecideRoundReceived assigns roundReceived and a consensus timestamp to every
//undetermined event seen by all the famous witnesses of a decided round. The
//consensus timestamp is the median of the timestamps of the events by which
//each famous witness's creator first saw the event.
func (h *Hashgraph) DecideRoundReceived() error {
	frontier := h.decidedFrontier()

	for _, x := range h.UndeterminedEvents {
		r := h.Round(x)

		for i := r; i <= frontier; i++ {
			tr, err := h.Store.GetRound(i)
			if err != nil {
				if common.Is(err, common.KeyNotFound) {
					break
				}
				return err
			}

			fws := tr.FamousWitnesses()
			if len(fws) == 0 {
				continue
			}

			//set of famous witnesses that see x
			s := []string{}
			for _, w := range fws {
				if h.See(w, x) {
					s = append(s, w)
				}
			}

			if len(s) < len(fws) {
				continue
			}

			ex, err := h.Store.GetEvent(x)
			if err != nil {
				return err
			}
			ex.SetRoundReceived(i)

			t := []string{}
			for _, a := range s {
				t = append(t, h.OldestSelfAncestorToSee(a, x))
			}

			ex.consensusTimestamp, err = h.medianTimestamp(t)
			if err != nil {
				return err
			}

			if err := h.Store.SetEvent(ex); err != nil {
				return err
			}

			break
		}
	}

	return nil
}

//FindOrder moves the events that received a round into the consensus log,
//sorted by round received, consensus timestamp, and whitened signature.
func (h *Hashgraph) FindOrder() error {
	if err := h.DecideRoundReceived(); err != nil {
		return err
	}

	newConsensusEvents := []Event{}
	newUndeterminedEvents := []string{}
	for _, x := range h.UndeterminedEvents {
		ex, err := h.Store.GetEvent(x)
		if err != nil {
			return err
		}
		if ex.roundReceived != nil {
			newConsensusEvents = append(newConsensusEvents, ex)
		} else {
			newUndeterminedEvents = append(newUndeterminedEvents, x)
		}
	}
	h.UndeterminedEvents = newUndeterminedEvents

	rounds := map[int]*RoundInfo{}
	for _, e := range newConsensusEvents {
		rr := *e.roundReceived
		if _, ok := rounds[rr]; !ok {
			round, err := h.Store.GetRound(rr)
			if err != nil {
				return err
			}
			rounds[rr] = round
		}
	}

	sorter := NewConsensusSorter(newConsensusEvents, rounds)
	sort.Sort(sorter)

	for _, e := range newConsensusEvents {
		if err := h.Store.AddConsensusEvent(e); err != nil {
			return errors.Wrapf(err, "appending %s to the consensus log", e.Hex())
		}
		h.ConsensusTransactions += len(e.Transactions())
		if e.IsLoaded() {
			h.PendingLoadedEvents--
		}
	}

	if h.commitCh != nil && len(newConsensusEvents) > 0 {
		h.commitCh <- newConsensusEvents
	}

	//pop the decided prefix of the pending-round queue
	processed := 0
	for _, p := range h.PendingRounds {
		if !p.Decided {
			break
		}
		h.setLastConsensusRound(p.Index)
		processed++
	}
	h.PendingRounds = h.PendingRounds[processed:]

	if len(newConsensusEvents) > 0 {
		h.logger.WithFields(logrus.Fields{
			"events": len(newConsensusEvents),
			"total":  h.Store.ConsensusEventsCount(),
		}).Debug("Consensus events")
	}

	return nil
}

func (h *Hashgraph) setLastConsensusRound(i int) {
	if h.LastConsensusRound == nil {
		h.LastConsensusRound = new(int)
	}
	*h.LastConsensusRound = i
	h.LastCommitedRoundEvents = h.Store.RoundEvents(i - 1)
}

func (h *Hashgraph) medianTimestamp(eventHashes []string) (time.Time, error) {
	events := []Event{}
	for _, x := range eventHashes {
		ex, err := h.Store.GetEvent(x)
		if err != nil {
			return time.Time{}, err
		}
		events = append(events, ex)
	}
	if len(events) == 0 {
		return time.Time{}, NewInconsistentStateError("no events for median timestamp")
	}
	sort.Sort(ByTimestamp(events))
	return events[len(events)/2].Body.Timestamp, nil
}

//RunConsensus runs one full pass of the consensus pipeline.
func (h *Hashgraph) RunConsensus() error {
	if err := h.DivideRounds(); err != nil {
		return err
	}
	if err := h.DecideFame(); err != nil {
		return err
	}
	return h.FindOrder()
}

//PollConsensus returns the consensus log entries with order index strictly
//greater than cursor. Pass -1 to read from the beginning. A cursor that has
//fallen off the back of the cache window yields a TooLate error.
func (h *Hashgraph) PollConsensus(cursor int) ([]OrderedEvent, error) {
	hashes, err := h.Store.ConsensusEventsSince(cursor)
	if err != nil {
		return nil, err
	}

	res := make([]OrderedEvent, 0, len(hashes))
	for i, hash := range hashes {
		ev, err := h.Store.GetEvent(hash)
		if err != nil {
			return nil, err
		}
		if ev.roundReceived == nil {
			return nil, NewInconsistentStateError("consensus event %s has no round received", hash)
		}
		res = append(res, OrderedEvent{
			Digest:             hash,
			RoundReceived:      *ev.roundReceived,
			ConsensusTimestamp: ev.consensusTimestamp,
			OrderIndex:         cursor + 1 + i,
		})
	}

	return res, nil
}

//Known returns the index of the last known event per participant ID.
func (h *Hashgraph) Known() map[int]int {
	return h.Store.KnownEvents()
}

func (h *Hashgraph) Stats() map[string]string {
	lastConsensusRound := "nil"
	if h.LastConsensusRound != nil {
		lastConsensusRound = strconv.Itoa(*h.LastConsensusRound)
	}
	return map[string]string{
		"last_consensus_round": lastConsensusRound,
		"last_round":           strconv.Itoa(h.Store.LastRound()),
		"consensus_events":     strconv.Itoa(h.Store.ConsensusEventsCount()),
		"consensus_txs":        strconv.Itoa(h.ConsensusTransactions),
		"undetermined_events":  strconv.Itoa(len(h.UndeterminedEvents)),
		"pending_loaded":       strconv.Itoa(h.PendingLoadedEvents),
	}
}

func (h *Hashgraph) String() string {
	stats := h.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + stats[k]
	}
	return strings.Join(parts, " ")
}

//middleBit extracts the middle bit of an event hash. Used as the coin flip of
//coin rounds: unpredictable at event-creation time, yet identical on every
//replica.
func middleBit(ehex string) bool {
	hash, err := hex.DecodeString(strings.TrimPrefix(ehex, "0x"))
	if err != nil || len(hash) == 0 {
		return false
	}
	return hash[len(hash)/2]&1 == 1
}
