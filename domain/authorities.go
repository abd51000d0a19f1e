package domain

import (
	"warden/authority"
	"warden/persistence"

	"github.com/fundwit/go-commons/types"
)

var LoadAuthoritiesFunc = LoadAuthorities

// LoadAuthorities resolves a user's effective authorization state by traversing
// user -> roles -> permissions. A user without role assignments resolves to empty
// lists, not an error. Superuser short-circuiting is deliberately NOT applied
// here, callers consult Identity.Superuser through the Context predicate.
func LoadAuthorities(ds *persistence.DataSourceManager, uid types.ID) (*authority.Authorities, error) {
	db := ds.GormDB()

	var userRoles []UserRole
	if err := db.Where("user_id = ?", uid).Find(&userRoles).Error; err != nil {
		return nil, err
	}
	roleIDs := make([]types.ID, 0, len(userRoles))
	for _, ur := range userRoles {
		roleIDs = append(roleIDs, ur.RoleID)
	}

	names, err := EffectivePermissionNames(db, roleIDs)
	if err != nil {
		return nil, err
	}
	return &authority.Authorities{RoleIDs: roleIDs, Permissions: names}, nil
}
