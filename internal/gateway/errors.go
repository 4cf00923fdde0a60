package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownKind = errors.New("unknown command kind")
	ErrRoomInUse   = errors.New("room has open reservations")
)

type FieldProblem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned before any write is attempted.
type ValidationError struct {
	Kind     Kind
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, "; "))
}

func invalid(kind Kind, field, reason string) *ValidationError {
	return &ValidationError{Kind: kind, Problems: []FieldProblem{{Field: field, Reason: reason}}}
}

func fromValidator(kind Kind, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Kind: kind}
	for _, fe := range verrs {
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		out.Problems = append(out.Problems, FieldProblem{Field: fe.Field(), Reason: reason})
	}
	return out
}

// TransitionError rejects a lifecycle move outside the allowed set.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot move from %q to %q", e.Entity, e.ID, e.From, e.To)
}

// PartialWriteError reports a two-write command whose second write failed
// after the first was acknowledged. Nothing is rolled back.
type PartialWriteError struct {
	Completed string // collection/id of the acknowledged write
	Failed    string // collection/id of the failed write
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %s applied, %s failed: %v", e.Completed, e.Failed, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
