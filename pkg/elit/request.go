package elit

import (
	"errors"
	"strconv"
	"strings"
)

// Credentials identify an ELIT customer account. They are sent in the body
// of every products request.
type Credentials struct {
	UserID int    `json:"user_id"`
	Token  string `json:"token"`
}

// ErrMissingCredentials is returned by Validate when either field is empty.
var ErrMissingCredentials = errors.New("user id and token are required")

// Validate checks that both the user id and the token are present.
func (c Credentials) Validate() error {
	if c.UserID <= 0 || strings.TrimSpace(c.Token) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// String hides the token so credentials can be logged safely.
func (c Credentials) String() string {
	masked := "****"
	if len(c.Token) > 4 {
		masked = c.Token[:2] + strings.Repeat("*", len(c.Token)-2)
	}
	return "user_id=" + strconv.Itoa(c.UserID) + " token=" + masked
}

// ParseUserID converts the textual user id used by config files and login
// forms into the integer the API expects.
func ParseUserID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, ErrMissingCredentials
	}
	return id, nil
}
