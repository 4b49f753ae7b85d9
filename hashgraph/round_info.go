package hashgraph

import (
	"math/big"
	"strings"

	"github.com/ugorji/go/codec"
)

type Trilean int

const (
	Undefined Trilean = iota
	True
	False
)

var trileans = []string{"Undefined", "True", "False"}

func (t Trilean) String() string {
	return trileans[t]
}

type RoundEvent struct {
	Witness bool
	Famous  Trilean
}

type RoundInfo struct {
	Events map[string]RoundEvent
}

func NewRoundInfo() *RoundInfo {
	return &RoundInfo{
		Events: make(map[string]RoundEvent),
	}
}

func (r *RoundInfo) AddEvent(x string, witness bool) {
	_, ok := r.Events[x]
	if !ok {
		r.Events[x] = RoundEvent{
			Witness: witness,
		}
	}
}

//SetFame records a witness's fame. Once set, fame is immutable; a reversal
//means the voting procedure is broken and is reported as fatal.
func (r *RoundInfo) SetFame(x string, f bool) error {
	e, ok := r.Events[x]
	if !ok {
		e = RoundEvent{
			Witness: true,
		}
	}

	famous := False
	if f {
		famous = True
	}

	if e.Famous != Undefined && e.Famous != famous {
		return NewInconsistentStateError("fame of %s reversed from %v to %v", x, e.Famous, famous)
	}

	e.Famous = famous
	r.Events[x] = e
	return nil
}

//return true if no witnesses' fame is left undefined
func (r *RoundInfo) WitnessesDecided() bool {
	for _, e := range r.Events {
		if e.Witness && e.Famous == Undefined {
			return false
		}
	}
	return true
}

//return witnesses
func (r *RoundInfo) Witnesses() []string {
	res := []string{}
	for x, e := range r.Events {
		if e.Witness {
			res = append(res, x)
		}
	}
	return res
}

//return famous witnesses
func (r *RoundInfo) FamousWitnesses() []string {
	res := []string{}
	for x, e := range r.Events {
		if e.Witness && e.Famous == True {
			res = append(res, x)
		}
	}
	return res
}

func (r *RoundInfo) IsDecided(witness string) bool {
	w, ok := r.Events[witness]
	return ok && w.Witness && w.Famous != Undefined
}

//PseudoRandomNumber XORs the hashes of the round's famous witnesses. No
//member controls all famous witnesses, so no member controls the result.
func (r *RoundInfo) PseudoRandomNumber() *big.Int {
	res := new(big.Int)
	for x, e := range r.Events {
		if e.Witness && e.Famous == True {
			s, ok := new(big.Int).SetString(strings.TrimPrefix(x, "0x"), 16)
			if !ok {
				continue
			}
			res = res.Xor(res, s)
		}
	}
	return res
}

func (r *RoundInfo) Marshal() ([]byte, error) {
	b := []byte{}
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoderBytes(&b, jh)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *RoundInfo) Unmarshal(data []byte) error {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoderBytes(data, jh)
	return dec.Decode(r)
}
