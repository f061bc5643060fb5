package spank

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/gospank/internal/spankapi"
)

// Errno is re-exported so plugin authors can inspect the native status code
// carried by an APIError.
type Errno = spankapi.Errno

// NulByteError reports a string that cannot cross the C boundary because it
// contains an embedded NUL byte.
type NulByteError struct {
	// Value is the offending string.
	Value string
}

// Error implements the error interface.
func (e *NulByteError) Error() string {
	return fmt.Sprintf("string %q cannot be converted to a C string", e.Value)
}

// EnvExistsError reports a refusal to overwrite an existing environment
// variable when overwrite was not requested.
type EnvExistsError struct {
	// Name is the variable that already exists.
	Name string
}

// Error implements the error interface.
func (e *EnvExistsError) Error() string {
	return fmt.Sprintf("environment variable %s exists and overwrite was not set", e.Name)
}

// IDNotFoundError reports a lookup parameterized by a task or job id that
// the host does not know about.
type IDNotFoundError struct {
	// ID is the id that was queried.
	ID uint32
}

// Error implements the error interface.
func (e *IDNotFoundError) Error() string {
	return fmt.Sprintf("could not find id %d", e.ID)
}

// PIDNotFoundError reports a lookup parameterized by a process id that the
// host does not know about.
type PIDNotFoundError struct {
	// PID is the process id that was queried.
	PID int32
}

// Error implements the error interface.
func (e *PIDNotFoundError) Error() string {
	return fmt.Sprintf("could not find pid %d", e.PID)
}

// UTF8Error reports a byte sequence received from the host that is not
// valid UTF-8.
type UTF8Error struct {
	// Value is a lossy rendering of the offending bytes.
	Value string
}

// Error implements the error interface.
func (e *UTF8Error) Error() string {
	return fmt.Sprintf("cannot parse %q as UTF-8", e.Value)
}

// OverflowError reports a size that exceeds the range of the native integer
// the ABI expects.
type OverflowError struct {
	// Count is the value that did not fit.
	Count int
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("count %d overflows the native argument range", e.Count)
}

// APIError wraps a non-success status returned by a native SPANK call. The
// message for the status code is rendered through the host's strerror at
// construction time.
type APIError struct {
	// Fn is the native function that failed, e.g. "spank_getenv".
	Fn string

	// Code is the native status code.
	Code Errno

	// Reason is the host's rendering of Code.
	Reason string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("error calling SPANK API function %s: %s", e.Fn, e.Reason)
}

// newAPIError builds an APIError for a failed native call, rendering the
// status code through the host.
func newAPIError(api spankapi.API, fn string, code spankapi.Errno) *APIError {
	return &APIError{Fn: fn, Code: code, Reason: api.Strerror(code)}
}

// IsEnvExists reports whether err is an EnvExistsError.
func IsEnvExists(err error) bool {
	var envErr *EnvExistsError
	return errors.As(err, &envErr)
}

// IsNotFound reports whether err is an id or pid lookup failure.
func IsNotFound(err error) bool {
	var idErr *IDNotFoundError
	var pidErr *PIDNotFoundError
	return errors.As(err, &idErr) || errors.As(err, &pidErr)
}

// APICode extracts the native status code from err, if err carries one.
func APICode(err error) (Errno, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return spankapi.Success, false
}
