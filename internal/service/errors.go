package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies ledger and event store failures.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindAlreadyApproved    Kind = "already_approved"
	KindInvalidTransition  Kind = "invalid_transition"
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindPersistenceFailure Kind = "persistence_failure"
	KindOperationFailed    Kind = "operation_failed"
)

// Error is the structured error returned by the services in this package.
// Two errors match under errors.Is when their kinds are equal and, if the
// target carries a message, the messages are equal too.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Kind sentinels match any error of that kind.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
	ErrOperationFailed    = &Error{Kind: KindOperationFailed}
)

var (
	// ErrProfileNotFound is returned when a profile id does not exist.
	ErrProfileNotFound = &Error{Kind: KindNotFound, Message: "profile not found"}
	// ErrSubmissionNotFound is returned when an activity submission does not exist.
	ErrSubmissionNotFound = &Error{Kind: KindNotFound, Message: "submission not found"}
	// ErrAttendanceNotFound is returned when an attendance check does not exist.
	ErrAttendanceNotFound = &Error{Kind: KindNotFound, Message: "attendance check not found"}
	// ErrAlreadyApproved signals an idempotent approval. It is informational:
	// Approve reports it through ApprovalResponse.Signal, never as an error.
	ErrAlreadyApproved = &Error{Kind: KindAlreadyApproved, Message: "submission already approved"}
	ErrNotAStudent     = &Error{Kind: KindInvalidTransition, Message: "profile is not a student"}
	ErrThemeLocked     = &Error{Kind: KindInvalidTransition, Message: "theme is locked at the current level"}
	// ErrAttendanceAlreadyRecorded is returned for a duplicate day or, with the weekly rule, a duplicate week.
	ErrAttendanceAlreadyRecorded = &Error{Kind: KindConflict, Message: "attendance already recorded"}
	ErrForbidden                 = &Error{Kind: KindInvalidTransition, Message: "actor may not perform this action"}
)

// KindOf extracts the kind of err, or an empty kind when err is not structured.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func validationError(op string, err error) error {
	return newError(KindValidation, op, "invalid request", err)
}

// classifyPersistence maps a storage error onto the taxonomy. Structured
// errors pass through; everything unrecognised is treated as transient.
func classifyPersistence(op string, err error) error {
	if err == nil {
		return nil
	}

	var structured *Error
	if errors.As(err, &structured) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(KindNotFound, op, "record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return newError(KindConflict, op, "conflicting record", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newError(KindOperationFailed, op, "unit of work aborted", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01", strings.HasPrefix(pgErr.Code, "08"):
			return newError(KindPersistenceFailure, op, fmt.Sprintf("transient database error %s", pgErr.Code), err)
		case strings.HasPrefix(pgErr.Code, "23"):
			return newError(KindConflict, op, "constraint violated", err)
		default:
			return newError(KindOperationFailed, op, fmt.Sprintf("database error %s", pgErr.Code), err)
		}
	}

	return newError(KindPersistenceFailure, op, "storage unavailable", err)
}

func isRetryable(err error) bool {
	return KindOf(err) == KindPersistenceFailure
}
