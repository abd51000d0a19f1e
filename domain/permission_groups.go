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

type PermissionGroupCreation struct {
	Name     string   `json:"name" binding:"required"`
	ParentID types.ID `json:"parentId"`
}

type PermissionGroupUpdating struct {
	Name string `json:"name" binding:"required"`
}

type GroupManagerTraits interface {
	CreateGroup(c *PermissionGroupCreation, sec *session.Context) (*PermissionGroup, error)
	UpdateGroup(id types.ID, u *PermissionGroupUpdating, sec *session.Context) error
	DeleteGroup(id types.ID, sec *session.Context) error
	QueryGroups(parentID types.ID, sec *session.Context) (*[]PermissionGroup, error)
}

type GroupManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewGroupManager(ds *persistence.DataSourceManager) *GroupManager {
	return &GroupManager{dataSource: ds, idWorker: sonyflake.NewSonyflake(sonyflake.Settings{})}
}

// CreateGroup appends a node to the permission forest. The new node becomes the last
// sibling: its ordinal is the current maximum ordinal of the sibling set plus one.
func (m *GroupManager) CreateGroup(c *PermissionGroupCreation, sec *session.Context) (*PermissionGroup, error) {
	if !sec.Authorized("permission.add") {
		return nil, bizerror.ErrForbidden
	}

	group := PermissionGroup{
		ID: common.NextId(m.idWorker), Name: c.Name, ParentID: c.ParentID,
		CreatedBy: sec.Identity.ID, CreateTime: time.Now().Round(time.Millisecond),
	}
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		if c.ParentID != 0 {
			parent := PermissionGroup{}
			if err := tx.Where("id = ?", c.ParentID).First(&parent).Error; err != nil {
				if gorm.IsRecordNotFoundError(err) {
					return bizerror.ErrNotFound
				}
				return err
			}
		}

		var count int
		if err := tx.Model(&PermissionGroup{}).Where("name = ? AND parent_id = ?", c.Name, c.ParentID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &bizerror.ErrFieldViolation{Field: "name", Message: "permission group name already exists"}
		}

		maxOrdinal, err := maxSiblingOrdinal(tx, c.ParentID)
		if err != nil {
			return err
		}
		group.Ordinal = maxOrdinal + 1

		return tx.Create(&group).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func maxSiblingOrdinal(tx *gorm.DB, parentID types.ID) (int, error) {
	row := tx.Model(&PermissionGroup{}).Where("parent_id = ?", parentID).
		Select("MAX(ordinal)").Row()
	var max *int
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (m *GroupManager) UpdateGroup(id types.ID, u *PermissionGroupUpdating, sec *session.Context) error {
	if !sec.Authorized("permission.edit") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		group := PermissionGroup{}
		if err := tx.Where("id = ?", id).First(&group).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		return tx.Model(&PermissionGroup{}).Where("id = ?", id).Update("name", u.Name).Error
	})
}

// DeleteGroup removes a node only when it is a leaf: no child groups and no
// permissions directly assigned. There is no cascading delete.
func (m *GroupManager) DeleteGroup(id types.ID, sec *session.Context) error {
	if !sec.Authorized("permission.delete") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		group := PermissionGroup{}
		if err := tx.Where("id = ?", id).First(&group).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}

		var childCount int
		if err := tx.Model(&PermissionGroup{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return err
		}
		if childCount > 0 {
			return bizerror.ErrNotEmpty
		}

		var permCount int
		if err := tx.Model(&Permission{}).Where("group_id = ?", id).Count(&permCount).Error; err != nil {
			return err
		}
		if permCount > 0 {
			return bizerror.ErrHasPermissions
		}

		return tx.Where("id = ?", id).Delete(&PermissionGroup{}).Error
	})
}

// QueryGroups lists the children of the given parent ordered by ordinal; a zero
// parent id lists the root nodes.
func (m *GroupManager) QueryGroups(parentID types.ID, sec *session.Context) (*[]PermissionGroup, error) {
	if !sec.Authorized("permission.view") {
		return nil, bizerror.ErrForbidden
	}

	var groups []PermissionGroup
	db := m.dataSource.GormDB()
	if err := db.Where("parent_id = ?", parentID).Order("ordinal ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return &groups, nil
}
