package store

import "fmt"

// Grant is an access level on a database
type Grant string

const (
	GrantReadWrite Grant = "rw"
	GrantReadOnly  Grant = "ro"
	GrantNone      Grant = "none"
)

// ParseGrant validates an access level string
func ParseGrant(s string) (Grant, error) {
	switch g := Grant(s); g {
	case GrantReadWrite, GrantReadOnly, GrantNone:
		return g, nil
	default:
		return "", fmt.Errorf("invalid grant %q (expected rw, ro or none)", s)
	}
}

func (g Grant) String() string {
	return string(g)
}
