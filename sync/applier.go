package sync

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// malformedRowError wraps a wire row that failed to decode. Pulls skip
// these rows by design. Any other apply failure is a store error: the row
// was valid and must not be lost, so the cycle has to fail and hold the
// watermark until the write goes through.
type malformedRowError struct{ err error }

func (e malformedRowError) Error() string { return e.err.Error() }
func (e malformedRowError) Unwrap() error { return e.err }

// IsMalformedRow reports whether an apply failure is a decode rejection
// rather than a store failure.
func IsMalformedRow(err error) bool {
	var m malformedRowError
	return errors.As(err, &m)
}

// Applier lands remote-origin rows in the local store. The pull phase and
// the realtime listener both funnel through it, so the dirty-flag guard is
// enforced in exactly one place.
type Applier struct{}

// Apply decodes a wire row and upserts it locally. A malformed row is an
// error for the caller to log and skip; it never reaches the store. With
// force set the dirty guard is bypassed (recovery pulls only).
func (Applier) Apply(table string, raw json.RawMessage, force bool) error {
	switch table {
	case models.TableMonths:
		m, err := monthFromRaw(raw)
		if err != nil {
			return malformedRowError{err}
		}
		return database.ApplyRemoteMonth(m, force)
	case models.TableBudgets:
		b, err := budgetFromRaw(raw)
		if err != nil {
			return malformedRowError{err}
		}
		return database.ApplyRemoteBudget(b, force)
	case models.TableTransactions:
		t, err := transactionFromRaw(raw)
		if err != nil {
			return malformedRowError{err}
		}
		return database.ApplyRemoteTransaction(t, force)
	case models.TableBonds:
		b, err := bondFromRaw(raw)
		if err != nil {
			return malformedRowError{err}
		}
		return database.ApplyRemoteBond(b, force)
	default:
		return malformedRowError{fmt.Errorf("unknown table %q", table)}
	}
}

// Delete removes a local row after a remote-origin deletion. No tombstone
// is logged: the deletion already happened on the backend.
func (Applier) Delete(table, id string) error {
	return database.PurgeRow(table, id)
}
