package volerrors

import (
	"errors"
	"testing"

	"github.com/kvold/vold/internal/responsecode"
)

func TestToResponseCode(t *testing.T) {
	cases := []struct {
		name             string
		err              error
		wantCode         int
		wantIncludeErrno bool
	}{
		{"nil", nil, responsecode.CommandOkay, false},
		{"busy", ErrBusy, responsecode.OperationFailed, true},
		{"not mounted", ErrNotMounted, responsecode.OperationFailed, true},
		{"no device", ErrNoDevice, responsecode.OperationFailed, true},
		{"invalid argument", ErrInvalidArgument, responsecode.CommandSyntaxError, false},
		{"unsupported fs", ErrUnsupportedFS, responsecode.OperationFailed, true},
		{"permission denied", ErrPermissionDenied, responsecode.CommandNoPermission, false},
		{"no media", ErrNoMedia, responsecode.VolumeMountFailedNoMedia, false},
		{"kernel event", ErrKernelEvent, responsecode.OperationFailed, false},
		{"unknown passthrough", errors.New("boom"), responsecode.OperationFailed, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, includeErrno := ToResponseCode(tc.err)
			if code != tc.wantCode || includeErrno != tc.wantIncludeErrno {
				t.Errorf("ToResponseCode(%v) = (%d, %v), want (%d, %v)",
					tc.err, code, includeErrno, tc.wantCode, tc.wantIncludeErrno)
			}
		})
	}
}

func TestToResponseCodeWrappedError(t *testing.T) {
	wrapped := errors.New("mount failed: " + ErrBusy.Error())
	code, _ := ToResponseCode(wrapped)
	if code != responsecode.OperationFailed {
		t.Fatalf("unwrapped plain error got %d, want %d", code, responsecode.OperationFailed)
	}

	// errors.Is requires the chain to actually wrap the sentinel, a
	// plain string match doesn't count -- confirm a real wrapping chain
	// (errors.Join) behaves.
	realWrap := errWrap(ErrBusy)
	code, includeErrno := ToResponseCode(realWrap)
	if code != responsecode.OperationFailed || !includeErrno {
		t.Fatalf("ToResponseCode(wrapped ErrBusy) = (%d, %v), want (%d, true)", code, includeErrno, responsecode.OperationFailed)
	}
}

func errWrap(err error) error {
	return errors.Join(err)
}
