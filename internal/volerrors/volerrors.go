// Package volerrors defines the error taxonomy shared by every volume
// and container operation, and the single translation point where those
// errors become control-socket response codes.
//
// Every error here is a terminal sentinel checked with errors.Is at the
// control-socket boundary. None of them wrap a deep call chain that
// would benefit from stack-trace-carrying errors, so the package stays
// on the stdlib errors package rather than reaching for a third-party
// errors library (see DESIGN.md).
package volerrors

import (
	"errors"

	"github.com/kvold/vold/internal/responsecode"
)

var (
	ErrBusy                 = errors.New("busy")
	ErrNotMounted           = errors.New("not mounted")
	ErrNoDevice             = errors.New("no such device")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnsupportedFS        = errors.New("unsupported filesystem")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInternal             = errors.New("internal error")
	ErrKernelEvent          = errors.New("malformed kernel event")
	ErrNotHandled           = errors.New("not handled by any volume")
	ErrNoMedia              = errors.New("no media")
)

// ToResponseCode maps a volerrors sentinel (or a passthrough error) to
// the numeric response code and the "include errno" flag the control
// socket attaches to its reply, mirroring
// ResponseCode::convertFromErrno() in the original vold.
func ToResponseCode(err error) (code int, includeErrno bool) {
	switch {
	case err == nil:
		return responsecode.CommandOkay, false
	case errors.Is(err, ErrBusy):
		return responsecode.OperationFailed, true
	case errors.Is(err, ErrNotMounted):
		return responsecode.OperationFailed, true
	case errors.Is(err, ErrNoDevice):
		return responsecode.OperationFailed, true
	case errors.Is(err, ErrInvalidArgument):
		return responsecode.CommandSyntaxError, false
	case errors.Is(err, ErrUnsupportedFS):
		return responsecode.OperationFailed, true
	case errors.Is(err, ErrPermissionDenied):
		return responsecode.CommandNoPermission, false
	case errors.Is(err, ErrNoMedia):
		return responsecode.VolumeMountFailedNoMedia, false
	case errors.Is(err, ErrKernelEvent):
		return responsecode.OperationFailed, false
	default:
		return responsecode.OperationFailed, true
	}
}
