package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindPrecondition
	KindRemote
	KindPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindRemote:
		return "remote"
	case KindPartialFailure:
		return "partial_failure"
	default:
		return "internal"
	}
}

// Error is a business-level failure that is reported to the user as a message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error    { return newf(KindValidation, format, args...) }
func Authorization(format string, args ...any) error { return newf(KindAuthorization, format, args...) }
func NotFound(format string, args ...any) error      { return newf(KindNotFound, format, args...) }
func Precondition(format string, args ...any) error  { return newf(KindPrecondition, format, args...) }

// RemoteError is a non-success outcome from one of the external APIs.
// Status is 0 when the request never produced a response.
type RemoteError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Service)
	if e.Status != 0 {
		fmt.Fprintf(&b, " error: %d %s", e.Status, e.Body)
	} else {
		b.WriteString(" request failed")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// PartialFailureError reports an aborted saga. Completed steps stay done.
type PartialFailureError struct {
	Step         string
	Completed    []string
	NotAttempted []string
	Err          error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// KindOf classifies err. The outermost classified error wins, so a saga
// failure caused by a remote call reports KindPartialFailure.
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case *RemoteError:
			return KindRemote
		case *PartialFailureError:
			return KindPartialFailure
		}
		err = errors.Unwrap(err)
	}
	return KindInternal
}

func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Remote returns the first RemoteError in err's chain.
func Remote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
