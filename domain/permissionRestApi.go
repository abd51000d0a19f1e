package domain

import (
	"errors"
	"net/http"

	"warden/common"
	"warden/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterPermissionsHandler(r *gin.Engine, m PermissionManagerTraits, middleWares ...gin.HandlerFunc) {
	// group: "", version: v1, resource: permissions
	g := r.Group("/v1/permissions", middleWares...)

	handler := &permissionHandler{permissionManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.PUT(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

// RegisterRolePermissionsHandler wires the assignment view under the role
// resource: reading and replacing the permission set of one role.
func RegisterRolePermissionsHandler(r *gin.Engine, m PermissionManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/roles/:id/permissions", middleWares...)

	handler := &permissionHandler{permissionManager: m, validator: validator.New()}

	g.GET("", handler.handleAssigned)
	g.POST("", handler.handleAssign)
}

type permissionHandler struct {
	permissionManager PermissionManagerTraits
	validator         *validator.Validate
}

func (h *permissionHandler) handleCreate(c *gin.Context) {
	creation := PermissionCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	permission, err := h.permissionManager.CreatePermission(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, permission)
}

func (h *permissionHandler) handleQuery(c *gin.Context) {
	permissions, err := h.permissionManager.QueryPermissions(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, permissions)
}

func (h *permissionHandler) handleUpdate(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	updating := PermissionUpdating{}
	err = c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.permissionManager.UpdatePermission(parsedId, &updating, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *permissionHandler) handleDelete(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	if err = h.permissionManager.DeletePermission(parsedId, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *permissionHandler) handleAssign(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	assignment := PermissionAssignment{}
	err = c.ShouldBindBodyWith(&assignment, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.permissionManager.AssignToRole(parsedId, &assignment, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *permissionHandler) handleAssigned(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	detail, err := h.permissionManager.AssignedPermissions(parsedId, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}
