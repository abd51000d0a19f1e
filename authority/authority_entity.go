package authority

import (
	"strings"

	"github.com/fundwit/go-commons/types"
)

type Permissions []string

func (c Permissions) HasPermission(name string) bool {
	for _, v := range c {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// Authorities is the effective authorization state of a user: the role ids directly
// assigned to the user and the union of permission names reachable through them.
// A user without role assignments has empty (not nil) lists.
type Authorities struct {
	RoleIDs     []types.ID  `json:"roleIds"`
	Permissions Permissions `json:"permissions"`
}
