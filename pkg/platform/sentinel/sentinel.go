// Package sentinel holds the record-level facts every store reports.
//
// Stores wrap these with the record identity (fmt.Errorf("entity %s: %w", id,
// ErrNotFound)); services turn them into coded errors through Messages so each
// module chooses its own client-facing wording. Input validation never goes
// through here; it is coded with pkg/domain-errors from the start.
package sentinel

import (
	"errors"

	dErrors "amlguard/pkg/domain-errors"
)

var (
	// ErrNotFound: no record carries the requested ID.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness rule would break (registration number, active
	// list address, enabled rule priority, record ID) or a compare-and-swap
	// lost its race.
	ErrConflict = errors.New("conflict")
)

// Messages is the wording a module reports for each sentinel.
type Messages struct {
	NotFound string
	Conflict string
}

// Coded returns the coded error for a wrapped sentinel, or nil when err
// carries none.
func (m Messages) Coded(err error) *dErrors.Error {
	switch {
	case errors.Is(err, ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, m.NotFound)
	case errors.Is(err, ErrConflict):
		return dErrors.New(dErrors.CodeConflict, m.Conflict)
	default:
		return nil
	}
}
