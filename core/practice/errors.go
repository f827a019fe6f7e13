package practice

import (
	"errors"
	"fmt"
)

type MendErrorKind string

const (
	KindNotEnrolled        MendErrorKind = "NotEnrolled"
	KindInsufficientPoints MendErrorKind = "InsufficientPoints"
	KindDateAlreadyLogged  MendErrorKind = "DateAlreadyLogged"
	KindInvalidMendDate    MendErrorKind = "InvalidMendDate"
)

// MendError is returned when a streak mend is refused.
// Required and Available are only set for KindInsufficientPoints.
type MendError struct {
	Kind      MendErrorKind
	Message   string
	Required  int
	Available int
}

func (e *MendError) Error() string {
	return e.Message
}

// Is matches any *MendError of the same Kind.
func (e *MendError) Is(target error) bool {
	t, ok := target.(*MendError)
	return ok && t.Kind == e.Kind
}

var (
	// errors
	ErrNotEnrolled        = &MendError{Kind: KindNotEnrolled, Message: "you are not enrolled in this classroom"}
	ErrInsufficientPoints = &MendError{Kind: KindInsufficientPoints, Message: "not enough points"}
	ErrDateAlreadyLogged  = &MendError{Kind: KindDateAlreadyLogged, Message: "already practiced on this date"}
	ErrInvalidMendDate    = &MendError{Kind: KindInvalidMendDate, Message: "can only mend past missed days"}

	ErrMendConflict = errors.New("streak was mended concurrently, please try again")
	ErrFutureDate   = errors.New("cannot log riyaaz for future dates")

	errMendRace = errors.New("mend count changed")
)

func insufficientPointsError(available int) *MendError {
	return &MendError{
		Kind:      KindInsufficientPoints,
		Message:   fmt.Sprintf("You need %d points to mend a streak. You have %d available points.", MendCost, available),
		Required:  MendCost,
		Available: available,
	}
}
