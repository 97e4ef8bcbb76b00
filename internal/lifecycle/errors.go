package lifecycle

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNormalization   = errors.New("normalization error")
	ErrStoreWrite      = errors.New("store write error")
	ErrLookup          = errors.New("lookup error")
	ErrDispatch        = errors.New("dispatch error")
	ErrMetricsEmission = errors.New("metrics emission error")
	ErrSinkWrite       = errors.New("sink write error")
)

// Error carries the replay context of a failure
type Error struct {
	Kind       error
	InstanceID string
	EventKind  string
	EventTime  string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: instance=%s kind=%s time=%s", e.Kind, e.InstanceID, e.EventKind, e.EventTime)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind
func NewError(kind error, instanceID, eventKind, eventTime string, err error) *Error {
	return &Error{
		Kind:       kind,
		InstanceID: instanceID,
		EventKind:  eventKind,
		EventTime:  eventTime,
		Err:        err,
	}
}
