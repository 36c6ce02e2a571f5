package elit

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthentication matches any rejected-credentials failure. ELIT does not
// tell a bad token apart from a bad user id, so neither do we.
var ErrAuthentication = errors.New("authentication failed")

// TransportError is returned when ELIT answers with a non-2xx status.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// APIError is returned when a well-formed response carries an "error" field.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "elit api error: " + e.Message
}

// AuthenticationError wraps the TransportError of a 401/403 response.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrAuthentication, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Is reports true for ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// statusError classifies a non-success HTTP status.
func statusError(status int, body []byte) error {
	terr := &TransportError{StatusCode: status, Body: string(body)}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AuthenticationError{Err: terr}
	}
	return terr
}

// IsRejected reports whether err means ELIT refused the credentials, either
// with a 401/403 or with an "error" field in the body.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.Is(err, ErrAuthentication) || errors.As(err, &apiErr)
}
