package hashgraph

import (
	"github.com/quiltnetworks/quilt/common"
)

// ParticipantEventsCache maps a participant's public key to the rolling window
// of hashes of the events it created, ordered by index.
type ParticipantEventsCache struct {
	size              int
	participantEvents map[string]*common.RollingIndex
}

func NewParticipantEventsCache(size int) *ParticipantEventsCache {
	return &ParticipantEventsCache{
		size:              size,
		participantEvents: make(map[string]*common.RollingIndex),
	}
}

func (pec *ParticipantEventsCache) rollingIndex(participant string) *common.RollingIndex {
	ri, ok := pec.participantEvents[participant]
	if !ok {
		ri = common.NewRollingIndex(pec.size)
		pec.participantEvents[participant] = ri
	}
	return ri
}

//Get returns a participant's event hashes with index strictly greater than
//skipIndex.
func (pec *ParticipantEventsCache) Get(participant string, skipIndex int) ([]string, error) {
	items, err := pec.rollingIndex(participant).Get(skipIndex)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, item := range items {
		res[i] = item.(string)
	}
	return res, nil
}

func (pec *ParticipantEventsCache) GetItem(participant string, index int) (string, error) {
	item, err := pec.rollingIndex(participant).GetItem(index)
	if err != nil {
		return "", err
	}
	return item.(string), nil
}

//GetLast returns the hash of the participant's last event, or an empty string
//if it has not created any.
func (pec *ParticipantEventsCache) GetLast(participant string) (string, error) {
	last, err := pec.rollingIndex(participant).GetLast()
	if err != nil {
		if common.Is(err, common.KeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return last.(string), nil
}

func (pec *ParticipantEventsCache) Set(participant string, hash string, index int) error {
	return pec.rollingIndex(participant).Set(hash, index)
}

//Known returns the index of the last event per participant.
func (pec *ParticipantEventsCache) Known() map[string]int {
	known := make(map[string]int)
	for p, ri := range pec.participantEvents {
		_, lastIndex := ri.GetLastWindow()
		known[p] = lastIndex
	}
	return known
}
