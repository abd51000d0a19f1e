package session

import (
	"time"

	"warden/authority"

	"github.com/fundwit/go-commons/types"
)

type Context struct {
	Token    string                `json:"token"`
	Identity Identity              `json:"identity"`
	Perms    authority.Permissions `json:"perms"`
	RoleIDs  []types.ID            `json:"roleIds"`

	SigningTime time.Time `json:"-"`
}

type Identity struct {
	ID        types.ID `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Superuser bool     `json:"superuser"`
}

// Authorized is the single authorization predicate applied by every protected
// endpoint: a request is allowed when the required permission is held, or when
// the acting user is a superuser.
func (c *Context) Authorized(requiredPermission string) bool {
	if c == nil {
		return false
	}
	return c.Identity.Superuser || c.Perms.HasPermission(requiredPermission)
}
