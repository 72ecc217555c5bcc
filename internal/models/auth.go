package models

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller. Subject is the opaque identity used as the student id.
// ExpiresAt is the expiry of the presented token; zero when the issuer did not state one.
type Principal struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiredAt reports whether the token behind the principal is no longer valid at now.
func (p *Principal) ExpiredAt(now time.Time) bool {
	return p != nil && !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// StudentID returns the identifier scoping all period data.
func (p *Principal) StudentID() string {
	if p == nil {
		return ""
	}
	return p.Subject
}

// StudentClaims is the payload of locally signed development tokens.
type StudentClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// GoogleTokenInfo mirrors the fields read from Google's tokeninfo endpoint.
type GoogleTokenInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Audience      string `json:"aud"`
	Expiry        string `json:"exp"`
	ExpiresIn     string `json:"expires_in"`
	Error         string `json:"error"`
	ErrorDesc     string `json:"error_description"`
}

// ExpiresAt resolves the token expiry from exp, falling back to expires_in counted from now.
// The zero time means neither field was usable.
func (i GoogleTokenInfo) ExpiresAt(now time.Time) time.Time {
	if exp, err := strconv.ParseInt(i.Expiry, 10, 64); err == nil && exp > 0 {
		return time.Unix(exp, 0).UTC()
	}
	if secs, err := strconv.ParseInt(i.ExpiresIn, 10, 64); err == nil && secs >= 0 {
		return now.Add(time.Duration(secs) * time.Second)
	}
	return time.Time{}
}
