package identity

import (
	"errors"
	"fmt"
)

// Kind classifies the outcome of an enrollment or recognition call.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidImage
	KindDuplicatePerson
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindInvalidImage:
		return "invalid_image"
	case KindDuplicatePerson:
		return "duplicate_person"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "internal_error"
	}
}

var (
	ErrInvalidImage    = errors.New("invalid image")
	ErrDuplicatePerson = errors.New("person already exists")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Error carries the outcome kind of a failed operation together with its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against the sentinel for its kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidImage:
		return e.Kind == KindInvalidImage
	case ErrDuplicatePerson:
		return e.Kind == KindDuplicatePerson
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	}
	return false
}

// KindOf reports the outcome kind of err. Errors that carry no kind are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrInvalidImage):
		return KindInvalidImage
	case errors.Is(err, ErrDuplicatePerson):
		return KindDuplicatePerson
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	}
	return KindInternal
}

func fail(op string, kind Kind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func internal(op, format string, args ...any) error {
	return &Error{Kind: KindInternal, Op: op, Err: fmt.Errorf(format, args...)}
}
