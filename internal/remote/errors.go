package remote

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrMalformed is returned when a response cannot be decoded.
var ErrMalformed = errors.New("remote: malformed response")

// ApplicationError means the server received the call and rejected it.
type ApplicationError struct {
	Code    codes.Code
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application error (%s): %s", e.Code, e.Message)
}

// NetworkError means the call never got a server verdict.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Classify turns an error returned by a gRPC call into an ApplicationError
// or a NetworkError. Errors that are already classified pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var appErr *ApplicationError
	var netErr *NetworkError
	if errors.As(err, &appErr) || errors.As(err, &netErr) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		return &NetworkError{Err: err}
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &NetworkError{Err: err}
	}
	return &ApplicationError{Code: st.Code(), Message: st.Message()}
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsApplication reports whether err is a server-side rejection.
func IsApplication(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr)
}
