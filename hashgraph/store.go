package hashgraph

import (
	"github.com/quiltnetworks/quilt/peers"
)

type Store interface {
	CacheSize() int
	GetEvent(string) (Event, error)
	SetEvent(Event) error
	ParticipantEvents(string, int) ([]string, error)
	ParticipantEvent(string, int) (string, error)
	//LastEventFrom returns the hash of the participant's last known event, or
	//an empty string if the participant has not created any.
	LastEventFrom(string) (string, error)
	KnownEvents() map[int]int
	ConsensusEvents() []string
	ConsensusEventsSince(int) ([]string, error)
	ConsensusEventsCount() int
	AddConsensusEvent(Event) error
	GetRound(int) (*RoundInfo, error)
	SetRound(int, *RoundInfo) error
	LastRound() int
	RoundWitnesses(int) []string
	RoundEvents(int) int
	GetPeerSet(int) (*peers.PeerSet, error)
	SetPeerSet(int, *peers.PeerSet) error
	RepertoireByPubKey() map[string]*peers.Peer
	RepertoireByID() map[int]*peers.Peer
	Close() error
}
