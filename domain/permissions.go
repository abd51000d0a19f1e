package domain

import (
	"time"

	"warden/bizerror"
	"warden/common"
	"warden/persistence"
	"warden/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type PermissionCreation struct {
	GroupID     types.ID `json:"groupId" binding:"required"`
	Description string   `json:"description" binding:"required"`
}

type PermissionUpdating struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PermissionAssignment struct {
	PermissionIDs []types.ID `json:"permissionIds"`
}

// RolePermissionDetail is the assignment view of a role: the role name and the ids
// of the permissions currently assigned to it.
type RolePermissionDetail struct {
	RoleName      string     `json:"roleName"`
	PermissionIDs []types.ID `json:"permissionIds"`
}

type PermissionManagerTraits interface {
	CreatePermission(c *PermissionCreation, sec *session.Context) (*Permission, error)
	UpdatePermission(id types.ID, u *PermissionUpdating, sec *session.Context) error
	DeletePermission(id types.ID, sec *session.Context) error
	QueryPermissions(sec *session.Context) (*[]Permission, error)
	AssignToRole(roleID types.ID, a *PermissionAssignment, sec *session.Context) error
	AssignedPermissions(roleID types.ID, sec *session.Context) (*RolePermissionDetail, error)
}

type PermissionManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewPermissionManager(ds *persistence.DataSourceManager) *PermissionManager {
	return &PermissionManager{dataSource: ds, idWorker: sonyflake.NewSonyflake(sonyflake.Settings{})}
}

// CreatePermission derives the permission name deterministically from the owning
// group name and the description: Slugify(groupName + " " + description). The
// derived name must be globally unique.
func (m *PermissionManager) CreatePermission(c *PermissionCreation, sec *session.Context) (*Permission, error) {
	if !sec.Authorized("permission.add") {
		return nil, bizerror.ErrForbidden
	}

	permission := Permission{
		ID: common.NextId(m.idWorker), Description: c.Description, GroupID: c.GroupID,
		CreatedBy: sec.Identity.ID, CreateTime: time.Now().Round(time.Millisecond),
	}
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		group := PermissionGroup{}
		if err := tx.Where("id = ?", c.GroupID).First(&group).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		permission.Name = Slugify(group.Name + " " + c.Description)

		var count int
		if err := tx.Model(&Permission{}).Where("name = ?", permission.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &bizerror.ErrFieldViolation{Field: "description", Message: "permission is duplicate, please choose another name"}
		}

		return tx.Create(&permission).Error
	})
	if err != nil {
		return nil, err
	}
	return &permission, nil
}

func (m *PermissionManager) UpdatePermission(id types.ID, u *PermissionUpdating, sec *session.Context) error {
	if !sec.Authorized("permission.edit") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		permission := Permission{}
		if err := tx.Where("id = ?", id).First(&permission).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}

		changes := map[string]interface{}{}
		if u.Name != "" && u.Name != permission.Name {
			var count int
			if err := tx.Model(&Permission{}).Where("name = ? AND id <> ?", u.Name, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return &bizerror.ErrFieldViolation{Field: "name", Message: "permission is duplicate, please choose another name"}
			}
			changes["name"] = u.Name
		}
		if u.Description != "" {
			changes["description"] = u.Description
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(&Permission{}).Where("id = ?", id).Updates(changes).Error
	})
}

// DeletePermission removes the permission and any role assignments referencing it
// in the same transaction, so no dangling assignment rows survive.
func (m *PermissionManager) DeletePermission(id types.ID, sec *session.Context) error {
	if !sec.Authorized("permission.delete") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		permission := Permission{}
		if err := tx.Where("id = ?", id).First(&permission).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if err := tx.Where("permission_id = ?", id).Delete(&RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Permission{}).Error
	})
}

func (m *PermissionManager) QueryPermissions(sec *session.Context) (*[]Permission, error) {
	if !sec.Authorized("permission.view") {
		return nil, bizerror.ErrForbidden
	}

	var permissions []Permission
	db := m.dataSource.GormDB()
	if err := db.Order("name ASC").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return &permissions, nil
}

// AssignToRole replaces the role's whole permission set: all existing assignment
// rows are cleared, then the given set is inserted, both inside one transaction.
// Duplicate ids in the request are silently deduplicated.
func (m *PermissionManager) AssignToRole(roleID types.ID, a *PermissionAssignment, sec *session.Context) error {
	if !sec.Authorized("roles-access") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		role := Role{}
		if err := tx.Where("id = ?", roleID).First(&role).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		return replaceRolePermissionsTx(tx, roleID, a.PermissionIDs)
	})
}

func replaceRolePermissionsTx(tx *gorm.DB, roleID types.ID, permissionIDs []types.ID) error {
	if err := tx.Where("role_id = ?", roleID).Delete(&RolePermission{}).Error; err != nil {
		return err
	}
	seen := map[types.ID]bool{}
	for _, pid := range permissionIDs {
		if seen[pid] {
			continue
		}
		seen[pid] = true
		if err := tx.Create(&RolePermission{RoleID: roleID, PermissionID: pid}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *PermissionManager) AssignedPermissions(roleID types.ID, sec *session.Context) (*RolePermissionDetail, error) {
	if !sec.Authorized("roles-access") {
		return nil, bizerror.ErrForbidden
	}

	db := m.dataSource.GormDB()
	role := Role{}
	if err := db.Where("id = ?", roleID).First(&role).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}

	var assignments []RolePermission
	if err := db.Where("role_id = ?", roleID).Find(&assignments).Error; err != nil {
		return nil, err
	}
	detail := RolePermissionDetail{RoleName: role.Name, PermissionIDs: []types.ID{}}
	for _, a := range assignments {
		detail.PermissionIDs = append(detail.PermissionIDs, a.PermissionID)
	}
	return &detail, nil
}

// EffectivePermissionNames returns the union of permission names reachable from the
// given role ids, duplicates collapsed.
func EffectivePermissionNames(db *gorm.DB, roleIDs []types.ID) ([]string, error) {
	if len(roleIDs) == 0 {
		return []string{}, nil
	}

	var assignments []RolePermission
	if err := db.Where("role_id IN (?)", roleIDs).Find(&assignments).Error; err != nil {
		return nil, err
	}
	seen := map[types.ID]bool{}
	var permissionIDs []types.ID
	for _, a := range assignments {
		if !seen[a.PermissionID] {
			seen[a.PermissionID] = true
			permissionIDs = append(permissionIDs, a.PermissionID)
		}
	}
	if len(permissionIDs) == 0 {
		return []string{}, nil
	}

	var permissions []Permission
	if err := db.Where("id IN (?)", permissionIDs).Find(&permissions).Error; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(permissions))
	for _, p := range permissions {
		names = append(names, p.Name)
	}
	return names, nil
}
