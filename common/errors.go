package common

import (
	"fmt"

	"github.com/pkg/errors"
)

type StoreErrType uint32

const (
	KeyNotFound StoreErrType = iota
	TooLate
	PassedIndex
	SkippedIndex
	NoPeerSet
)

type StoreErr struct {
	errType StoreErrType
	key     string
}

func NewStoreErr(errType StoreErrType, key string) StoreErr {
	return StoreErr{
		errType: errType,
		key:     key,
	}
}

func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case TooLate:
		m = "Too Late"
	case PassedIndex:
		m = "Passed Index"
	case SkippedIndex:
		m = "Skipped Index"
	case NoPeerSet:
		m = "No PeerSet"
	}
	return fmt.Sprintf("%s, %s", e.key, m)
}

//Is reports whether err is a StoreErr of the given type, looking through any
//context added with pkg/errors.
func Is(err error, t StoreErrType) bool {
	storeErr, ok := errors.Cause(err).(StoreErr)
	return ok && storeErr.errType == t
}
