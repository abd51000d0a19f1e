package domain

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

type Role struct {
	ID          types.ID  `json:"id" gorm:"primary_key"`
	Name        string    `json:"name" gorm:"unique_index"`
	Description string    `json:"description"`
	CreatedBy   types.ID  `json:"createdBy"`
	CreateTime  time.Time `json:"createTime"`
}

type RoleGroup struct {
	ID         types.ID  `json:"id" gorm:"primary_key"`
	Name       string    `json:"name" gorm:"unique_index"`
	CreateTime time.Time `json:"createTime"`
}

type Permission struct {
	ID          types.ID  `json:"id" gorm:"primary_key"`
	Name        string    `json:"name" gorm:"unique_index"`
	Description string    `json:"description"`
	GroupID     types.ID  `json:"groupId" gorm:"index"`
	CreatedBy   types.ID  `json:"createdBy"`
	CreateTime  time.Time `json:"createTime"`
}

// PermissionGroup is a node of the permission category forest. A node with a zero
// ParentID is a root. Nodes are never re-parented, they only appear on create and
// disappear on delete.
type PermissionGroup struct {
	ID         types.ID  `json:"id" gorm:"primary_key"`
	Name       string    `json:"name"`
	ParentID   types.ID  `json:"parentId" gorm:"index"`
	Ordinal    int       `json:"ordinal"`
	CreatedBy  types.ID  `json:"createdBy"`
	CreateTime time.Time `json:"createTime"`
}

type RolePermission struct {
	RoleID       types.ID `json:"roleId" gorm:"primary_key;auto_increment:false"`
	PermissionID types.ID `json:"permissionId" gorm:"primary_key;auto_increment:false"`
}

type RoleGroupMap struct {
	RoleID      types.ID `json:"roleId" gorm:"primary_key;auto_increment:false"`
	RoleGroupID types.ID `json:"roleGroupId" gorm:"primary_key;auto_increment:false"`
}

type UserRole struct {
	UserID types.ID `json:"userId" gorm:"primary_key;auto_increment:false"`
	RoleID types.ID `json:"roleId" gorm:"primary_key;auto_increment:false"`
}
