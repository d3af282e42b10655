package fsm

import (
	"context"
	"database/sql"
	"errors"
)

// Status constants used by the booking state machine.
const (
	StatusPending               = "pending"
	StatusAssigned              = "assigned"
	StatusStarted               = "started"
	StatusCompleted             = "completed"
	StatusWithdrawBefore24      = "withdrawbefore24"
	StatusWithdrawAfter24       = "withdrawafter24"
	StatusTimedOut              = "timedout"
	StatusNotCarriedOutCustomer = "not_carried_out_customer"
)

var transitions = map[string]map[string]struct{}{
	StatusPending: {
		StatusAssigned:              {},
		StatusWithdrawBefore24:      {},
		StatusWithdrawAfter24:       {},
		StatusTimedOut:              {},
		StatusNotCarriedOutCustomer: {},
	},
	StatusAssigned: {
		StatusStarted:          {},
		StatusPending:          {},
		StatusWithdrawBefore24: {},
		StatusWithdrawAfter24:  {},
		StatusTimedOut:         {},
	},
	StatusStarted: {
		StatusCompleted:             {},
		StatusNotCarriedOutCustomer: {},
	},
	StatusCompleted: {
		StatusTimedOut: {},
	},
	StatusTimedOut: {
		StatusPending:  {},
		StatusAssigned: {},
	},
	StatusWithdrawBefore24: {
		StatusPending: {},
	},
	StatusWithdrawAfter24: {
		StatusTimedOut: {},
		StatusPending:  {},
	},
	StatusNotCarriedOutCustomer: {},
}

// IsValid reports whether the value is one of the known booking statuses.
func IsValid(status string) bool {
	if status == StatusNotCarriedOutCustomer {
		return true
	}
	_, ok := transitions[status]
	return ok
}

// CanTransition returns whether the booking can transition from the current status to the target status.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Apply updates a job status using optimistic validation. The conditional
// WHERE clause guarantees exactly one winner when two callers race on the
// same transition.
func Apply(ctx context.Context, tx *sql.Tx, jobID int, fromStatus, toStatus string) error {
	if !CanTransition(fromStatus, toStatus) {
		return errors.New("invalid status transition")
	}
	res, err := tx.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE id = ? AND status = ?`, toStatus, jobID, fromStatus)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
