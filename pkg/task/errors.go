package task

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task with ID %d not found", e.ID)
}

// IsNotFoundError checks if an error is a task NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// TxErrorKind classifies transaction submission failures.
type TxErrorKind string

const (
	// TxRejected covers signer refusal and node rejection before broadcast.
	TxRejected TxErrorKind = "rejected"
	// TxReverted covers on-chain reverts, e.g. calling from a non-owner.
	TxReverted TxErrorKind = "reverted"
)

// TxError is surfaced to the user as a single failure message with the raw
// revert reason passed through when the node supplied one. It is never
// retried automatically; no optimistic state exists to roll back.
type TxError struct {
	Kind   TxErrorKind
	Hash   string
	Reason string
	Err    error
}

func (e *TxError) Error() string {
	msg := "transaction " + string(e.Kind)
	if e.Hash != "" {
		msg += " (" + e.Hash + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TxError) Unwrap() error { return e.Err }

func IsTxError(err error) bool {
	var te *TxError
	return errors.As(err, &te)
}

// MetadataSyncError records a metadata patch or create that failed after its
// transaction confirmed. The on-chain effect stands; the divergence is
// acknowledged and repaired later, never rolled back.
type MetadataSyncError struct {
	TaskID int64
	Err    error
}

func (e *MetadataSyncError) Error() string {
	return fmt.Sprintf("metadata out of sync for task %d: %v", e.TaskID, e.Err)
}

func (e *MetadataSyncError) Unwrap() error { return e.Err }
