package hashgraph

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationCode identifies why an event was refused admission.
type ValidationCode int

const (
	InvalidSignature ValidationCode = iota
	UnknownCreator
	UnknownSelfParent
	UnknownOtherParent
	WrongCreator
	ForkDetected
	SkippedEventIndex
	DuplicateEvent
)

var validationMessages = map[ValidationCode]string{
	InvalidSignature:   "invalid signature",
	UnknownCreator:     "unknown creator",
	UnknownSelfParent:  "self-parent not known",
	UnknownOtherParent: "other-parent not known",
	WrongCreator:       "self-parent has a different creator",
	ForkDetected:       "self-parent is not the creator's last known event",
	SkippedEventIndex:  "event index skips the creator's sequence",
	DuplicateEvent:     "event already inserted",
}

// ValidationError is returned when an event is rejected at admission. It is
// recoverable: the event is discarded and the hashgraph is left untouched.
type ValidationError struct {
	Code ValidationCode
	Hash string
}

func NewValidationError(code ValidationCode, hash string) ValidationError {
	return ValidationError{Code: code, Hash: hash}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s (%s)", validationMessages[e.Code], e.Hash)
}

func IsValidationErr(err error) bool {
	_, ok := errors.Cause(err).(ValidationError)
	return ok
}

// InconsistentStateError signals a broken internal invariant: a fame
// reversal, a round regression, or derived state that should exist but does
// not. It is fatal to the local replica and must never be swallowed.
type InconsistentStateError struct {
	msg string
}

func NewInconsistentStateError(format string, args ...interface{}) InconsistentStateError {
	return InconsistentStateError{msg: fmt.Sprintf(format, args...)}
}

func (e InconsistentStateError) Error() string {
	return e.msg
}

func IsInconsistentStateErr(err error) bool {
	_, ok := errors.Cause(err).(InconsistentStateError)
	return ok
}
