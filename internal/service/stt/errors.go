package stt

import (
	"errors"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsFatal reports whether a recognition error means the engine is
// unusable for the rest of the session (bad credentials, unsupported
// operation) rather than a transient hiccup. Fatal errors trigger a
// one-directional downgrade of the speech engine; transient ones leave
// the engine selected and the next utterance tries again.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return false
	}
	switch status.Code(err) {
	case codes.PermissionDenied,
		codes.Unauthenticated,
		codes.Unimplemented,
		codes.FailedPrecondition,
		codes.InvalidArgument:
		return true
	}
	return false
}
