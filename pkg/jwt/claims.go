package jwt

import "github.com/golang-jwt/jwt/v5"

// Claims are the dashboard bearer token claims. Competitions lists the
// competition ids the holder may manage; "*" grants all.
type Claims struct {
	jwt.RegisteredClaims
	Role         string   `json:"role"`
	Competitions []string `json:"competitions,omitempty"`
}

type Role string

const (
	RoleViewer   Role = "viewer"
	RoleDelegate Role = "delegate"
	RoleAdmin    Role = "admin"
)

// CanWrite reports whether the role may change documents.
func (c *Claims) CanWrite() bool {
	return Role(c.Role) == RoleDelegate || Role(c.Role) == RoleAdmin
}

// CanAccess reports whether the token covers competitionID.
func (c *Claims) CanAccess(competitionID string) bool {
	if Role(c.Role) == RoleAdmin {
		return true
	}
	for _, id := range c.Competitions {
		if id == "*" || id == competitionID {
			return true
		}
	}
	return false
}
