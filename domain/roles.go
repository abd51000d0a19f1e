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

type RoleCreation struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	RoleGroupID types.ID `json:"roleGroupId" binding:"required"`
}

type RoleUpdating struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// PermissionIDs replaces the role's whole permission set when present.
	PermissionIDs *[]types.ID `json:"permissionIds"`
}

type RoleGroupCreation struct {
	Name string `json:"name" binding:"required"`
}

// RoleGroupDetail is the presentation view of a role group: the group plus the
// roles mapped into it, optionally excluding roles the acting user already holds.
type RoleGroupDetail struct {
	RoleGroup
	Roles []Role `json:"roles"`
}

type RoleManagerTraits interface {
	CreateRole(c *RoleCreation, sec *session.Context) (*Role, error)
	UpdateRole(id types.ID, u *RoleUpdating, sec *session.Context) error
	DeleteRole(id types.ID, sec *session.Context) error
	QueryRoles(sec *session.Context) (*[]Role, error)
	CreateRoleGroup(c *RoleGroupCreation, sec *session.Context) (*RoleGroup, error)
	DeleteRoleGroup(id types.ID, sec *session.Context) error
	QueryRoleGroups(excludeOwnRoles bool, sec *session.Context) (*[]RoleGroupDetail, error)
}

type RoleManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewRoleManager(ds *persistence.DataSourceManager) *RoleManager {
	return &RoleManager{dataSource: ds, idWorker: sonyflake.NewSonyflake(sonyflake.Settings{})}
}

// CreateRole creates the role and its role-group mapping in one transaction, the
// two rows commit or roll back together.
func (m *RoleManager) CreateRole(c *RoleCreation, sec *session.Context) (*Role, error) {
	if !sec.Authorized("role.add") {
		return nil, bizerror.ErrForbidden
	}

	role := Role{
		ID: common.NextId(m.idWorker), Name: c.Name, Description: c.Description,
		CreatedBy: sec.Identity.ID, CreateTime: time.Now().Round(time.Millisecond),
	}
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&Role{}).Where("name = ?", c.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &bizerror.ErrFieldViolation{Field: "name", Message: "role name already exists"}
		}

		roleGroup := RoleGroup{}
		if err := tx.Where("id = ?", c.RoleGroupID).First(&roleGroup).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}

		if err := tx.Create(&role).Error; err != nil {
			return err
		}
		return tx.Create(&RoleGroupMap{RoleID: role.ID, RoleGroupID: c.RoleGroupID}).Error
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (m *RoleManager) UpdateRole(id types.ID, u *RoleUpdating, sec *session.Context) error {
	if !sec.Authorized("role.edit") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		role := Role{}
		if err := tx.Where("id = ?", id).First(&role).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}

		changes := map[string]interface{}{}
		if u.Name != "" && u.Name != role.Name {
			var count int
			if err := tx.Model(&Role{}).Where("name = ? AND id <> ?", u.Name, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return &bizerror.ErrFieldViolation{Field: "name", Message: "role name already exists"}
			}
			changes["name"] = u.Name
		}
		if u.Description != "" {
			changes["description"] = u.Description
		}
		if len(changes) > 0 {
			if err := tx.Model(&Role{}).Where("id = ?", id).Updates(changes).Error; err != nil {
				return err
			}
		}

		if u.PermissionIDs != nil {
			return replaceRolePermissionsTx(tx, id, *u.PermissionIDs)
		}
		return nil
	})
}

// DeleteRole refuses to remove a role that still has permissions assigned. On
// success the role, its role-group mapping and its user assignments are removed
// together.
func (m *RoleManager) DeleteRole(id types.ID, sec *session.Context) error {
	if !sec.Authorized("role.delete") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		role := Role{}
		if err := tx.Where("id = ?", id).First(&role).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}

		var count int
		if err := tx.Model(&RolePermission{}).Where("role_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return bizerror.ErrHasPermissions
		}

		if err := tx.Where("id = ?", id).Delete(&Role{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&RoleGroupMap{}).Error; err != nil {
			return err
		}
		return tx.Where("role_id = ?", id).Delete(&UserRole{}).Error
	})
}

func (m *RoleManager) QueryRoles(sec *session.Context) (*[]Role, error) {
	if !sec.Authorized("role.view") {
		return nil, bizerror.ErrForbidden
	}

	var roles []Role
	db := m.dataSource.GormDB()
	if err := db.Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return &roles, nil
}

func (m *RoleManager) CreateRoleGroup(c *RoleGroupCreation, sec *session.Context) (*RoleGroup, error) {
	if !sec.Authorized("role.add") {
		return nil, bizerror.ErrForbidden
	}

	roleGroup := RoleGroup{
		ID: common.NextId(m.idWorker), Name: c.Name, CreateTime: time.Now().Round(time.Millisecond),
	}
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&RoleGroup{}).Where("name = ?", c.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &bizerror.ErrFieldViolation{Field: "name", Message: "role group name already exists"}
		}
		return tx.Create(&roleGroup).Error
	})
	if err != nil {
		return nil, err
	}
	return &roleGroup, nil
}

// DeleteRoleGroup refuses to remove a group while any role is still mapped to it.
func (m *RoleManager) DeleteRoleGroup(id types.ID, sec *session.Context) error {
	if !sec.Authorized("role.delete") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		roleGroup := RoleGroup{}
		if err := tx.Where("id = ?", id).First(&roleGroup).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}

		var count int
		if err := tx.Model(&RoleGroupMap{}).Where("role_group_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return bizerror.ErrNotEmpty
		}

		return tx.Where("id = ?", id).Delete(&RoleGroup{}).Error
	})
}

// QueryRoleGroups lists every role group with the roles mapped into it. With
// excludeOwnRoles set, roles the acting user already holds are filtered out, which
// is the shape used when presenting roles still available to assign.
func (m *RoleManager) QueryRoleGroups(excludeOwnRoles bool, sec *session.Context) (*[]RoleGroupDetail, error) {
	if !sec.Authorized("role.view") {
		return nil, bizerror.ErrForbidden
	}

	db := m.dataSource.GormDB()
	heldRoles := map[types.ID]bool{}
	if excludeOwnRoles {
		var userRoles []UserRole
		if err := db.Where("user_id = ?", sec.Identity.ID).Find(&userRoles).Error; err != nil {
			return nil, err
		}
		for _, ur := range userRoles {
			heldRoles[ur.RoleID] = true
		}
	}

	var groups []RoleGroup
	if err := db.Order("name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}

	details := make([]RoleGroupDetail, 0, len(groups))
	for _, g := range groups {
		var mappings []RoleGroupMap
		if err := db.Where("role_group_id = ?", g.ID).Find(&mappings).Error; err != nil {
			return nil, err
		}
		roleIDs := make([]types.ID, 0, len(mappings))
		for _, mapping := range mappings {
			if !heldRoles[mapping.RoleID] {
				roleIDs = append(roleIDs, mapping.RoleID)
			}
		}

		roles := []Role{}
		if len(roleIDs) > 0 {
			if err := db.Where("id IN (?)", roleIDs).Order("name ASC").Find(&roles).Error; err != nil {
				return nil, err
			}
		}
		details = append(details, RoleGroupDetail{RoleGroup: g, Roles: roles})
	}
	return &details, nil
}
