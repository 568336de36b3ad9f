package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a directly requested entity (activity, plan,
// definition) does not exist. Lookup failures during reference resolution are
// recovered instead and never surface through this error.
var ErrNotFound = errors.New("entity not found")

// BadInputError reports malformed client input. The message identifies the
// offending element so that API handlers can forward it as-is.
type BadInputError struct {
	Msg string
}

func (e BadInputError) Error() string {
	return e.Msg
}

func BadInputf(format string, args ...interface{}) error {
	return BadInputError{Msg: fmt.Sprintf(format, args...)}
}
