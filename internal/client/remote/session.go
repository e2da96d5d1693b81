package remote

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// session holds the bearer token and what the client can learn from it
// without the server's signing key. The token is parsed unverified purely to
// read its expiry and subject; verification is the server's job.
type session struct {
	token     string
	userID    string
	expiresAt time.Time
}

// newSession builds a session from a login response. The exp and sub claims,
// when readable, take precedence over the advertised expiresIn/userID.
func newSession(token, userID string, expiresIn int64) session {
	s := session{
		token:     token,
		userID:    userID,
		expiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return s
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		s.expiresAt = exp.Time
	}
	if sub, err := parsed.Claims.GetSubject(); err == nil && sub != "" {
		s.userID = sub
	}
	return s
}

// valid reports whether the session holds a token that has not expired.
func (s session) valid() bool {
	return s.token != "" && time.Now().Before(s.expiresAt)
}
