package hashgraph

import (
	"reflect"
	"sort"
	"testing"
)

func TestRoundInfoFame(t *testing.T) {
	round := NewRoundInfo()

	round.AddEvent("w0", true)
	round.AddEvent("w1", true)
	round.AddEvent("x0", false)

	if round.WitnessesDecided() {
		t.Fatal("round with undefined fame should not be decided")
	}

	if err := round.SetFame("w0", true); err != nil {
		t.Fatal(err)
	}
	if err := round.SetFame("w1", false); err != nil {
		t.Fatal(err)
	}

	if !round.WitnessesDecided() {
		t.Fatal("round should be decided")
	}

	famous := round.FamousWitnesses()
	if !reflect.DeepEqual(famous, []string{"w0"}) {
		t.Fatalf("famous witnesses should be [w0], not %v", famous)
	}

	witnesses := round.Witnesses()
	sort.Strings(witnesses)
	if !reflect.DeepEqual(witnesses, []string{"w0", "w1"}) {
		t.Fatalf("witnesses should be [w0 w1], not %v", witnesses)
	}

	//setting the same value twice is fine
	if err := round.SetFame("w0", true); err != nil {
		t.Fatal(err)
	}

	//reversing a decision is fatal
	err := round.SetFame("w0", false)
	if !IsInconsistentStateErr(err) {
		t.Fatalf("fame reversal should be an inconsistent state error, got %v", err)
	}
}

func TestRoundInfoMarshal(t *testing.T) {
	round := NewRoundInfo()
	round.AddEvent("0xAA", true)
	round.AddEvent("0xBB", false)
	round.SetFame("0xAA", true)

	raw, err := round.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	newRound := NewRoundInfo()
	if err := newRound.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(round.Events, newRound.Events) {
		t.Fatalf("round events should be %#v, not %#v", round.Events, newRound.Events)
	}
}

func TestPseudoRandomNumber(t *testing.T) {
	round := NewRoundInfo()
	round.AddEvent("0x0A", true)
	round.AddEvent("0x06", true)
	round.SetFame("0x0A", true)
	round.SetFame("0x06", true)

	//0x0A XOR 0x06 = 0x0C
	if prn := round.PseudoRandomNumber(); prn.Int64() != 0x0C {
		t.Fatalf("pseudo random number should be 12, not %d", prn.Int64())
	}

	//not-famous witnesses do not contribute
	round.AddEvent("0xFF", true)
	round.SetFame("0xFF", false)
	if prn := round.PseudoRandomNumber(); prn.Int64() != 0x0C {
		t.Fatalf("pseudo random number should still be 12, not %d", prn.Int64())
	}
}
