package ovpn

import (
	"errors"
	"fmt"
)

// ErrNoRemotesAvailable — у клиентского профиля не осталось ни одного remote.
var ErrNoRemotesAvailable = errors.New("no remotes available")

// MalformedEntityError is returned for input that never passed validation. The
// renderer does not repair or default such data.
type MalformedEntityError struct {
	Entity string
	Err    error
}

func (e *MalformedEntityError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Entity, e.Err)
}

func (e *MalformedEntityError) Unwrap() error { return e.Err }
