package domain

import (
	"net/url"
	"strings"
)

// Credentials carries the bearer token and base address for a semantic-layer
// deployment. Values are immutable once constructed and safe to share across
// concurrent executions.
type Credentials struct {
	token string
	host  string
}

// NewCredentials validates and constructs Credentials. The host must be an
// absolute http(s) URL; a trailing slash is stripped.
func NewCredentials(token, host string) (Credentials, error) {
	if token == "" {
		return Credentials{}, ErrValidation("credentials: token is required")
	}
	if host == "" {
		return Credentials{}, ErrValidation("credentials: host is required")
	}
	u, err := url.Parse(host)
	if err != nil {
		return Credentials{}, ErrValidation("credentials: host %q is not a valid URL: %v", host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Credentials{}, ErrValidation("credentials: host %q must use http or https", host)
	}
	if u.Host == "" {
		return Credentials{}, ErrValidation("credentials: host %q has no authority", host)
	}
	return Credentials{token: token, host: strings.TrimRight(host, "/")}, nil
}

// Token returns the bearer token.
func (c Credentials) Token() string { return c.token }

// Host returns the base address without a trailing slash.
func (c Credentials) Host() string { return c.host }
