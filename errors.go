package ftp

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// NotInitializedError is returned when an operation is invoked on a session
// that has not completed its connect pipeline, or has already been closed.
type NotInitializedError struct {
	Op string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("ftp: %s: session not ready", e.Op)
}

// TransportError wraps a failure from the underlying socket: connect,
// accept, read, write, or TLS handshake.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ftp: %s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedReplyError is returned when the reply reader cannot frame a
// reply, or the leading three bytes of a line are not a decimal status
// code.
type MalformedReplyError struct {
	Line string
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("ftp: malformed reply: %q", e.Line)
}

// UnexpectedStatusError is returned when a protocol exchange completes with
// a well-formed but unexpected reply code. The original reply text is
// carried for caller inspection.
type UnexpectedStatusError struct {
	Expected int
	Got      int
	Message  string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("ftp: expected code %d, got %d: %s", e.Expected, e.Got, e.Message)
}

// ParseError is returned when a structured payload (PASV, EPSV, PWD, MDTM,
// SIZE, MLST) does not match its grammar.
type ParseError struct {
	Kind  string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ftp: cannot parse %s %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FeatureUnsupportedError is returned when an operation requires a
// FEAT-advertised capability the server did not report.
type FeatureUnsupportedError struct {
	Feature string
}

func (e *FeatureUnsupportedError) Error() string {
	return fmt.Sprintf("ftp: server does not advertise %s", e.Feature)
}

// CaptureError surfaces a primary protocol or transport failure alongside
// any errors encountered while tearing down resources in response to it.
// The primary cause remains reachable through errors.As/errors.Is via
// Unwrap; Error() renders every cause, primary and auxiliary, the way
// hashicorp/go-multierror does.
type CaptureError struct {
	Primary   error
	Auxiliary []error
}

func (e *CaptureError) Error() string {
	merr := multierror.Append(new(multierror.Error), e.Primary)
	merr = multierror.Append(merr, e.Auxiliary...)
	return merr.Error()
}

func (e *CaptureError) Unwrap() error { return e.Primary }

// capture folds a primary error and any teardown errors observed while
// responding to it into a single error. Nil teardown errors are dropped.
// Returns nil only when primary is nil and no teardown error occurred.
func capture(primary error, teardown ...error) error {
	var aux []error
	for _, err := range teardown {
		if err != nil {
			aux = append(aux, err)
		}
	}
	if primary == nil {
		if len(aux) == 0 {
			return nil
		}
		primary, aux = aux[0], aux[1:]
	}
	if len(aux) == 0 {
		return primary
	}
	return &CaptureError{Primary: primary, Auxiliary: aux}
}
