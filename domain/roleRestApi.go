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

func RegisterRolesHandler(r *gin.Engine, m RoleManagerTraits, middleWares ...gin.HandlerFunc) {
	// group: "", version: v1, resource: roles
	g := r.Group("/v1/roles", middleWares...)

	handler := &roleHandler{roleManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.PUT(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

func RegisterRoleGroupsHandler(r *gin.Engine, m RoleManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/role-groups", middleWares...)

	handler := &roleHandler{roleManager: m, validator: validator.New()}

	g.GET("", handler.handleQueryGroups)
	g.POST("", handler.handleCreateGroup)
	g.DELETE(":id", handler.handleDeleteGroup)
}

type roleHandler struct {
	roleManager RoleManagerTraits
	validator   *validator.Validate
}

type roleGroupQuery struct {
	ExcludeOwnRoles bool `form:"excludeOwnRoles"`
}

func (h *roleHandler) handleCreate(c *gin.Context) {
	creation := RoleCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	role, err := h.roleManager.CreateRole(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, role)
}

func (h *roleHandler) handleQuery(c *gin.Context) {
	roles, err := h.roleManager.QueryRoles(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, roles)
}

func (h *roleHandler) handleUpdate(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	updating := RoleUpdating{}
	err = c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.roleManager.UpdateRole(parsedId, &updating, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *roleHandler) handleDelete(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	if err = h.roleManager.DeleteRole(parsedId, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *roleHandler) handleCreateGroup(c *gin.Context) {
	creation := RoleGroupCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	roleGroup, err := h.roleManager.CreateRoleGroup(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, roleGroup)
}

func (h *roleHandler) handleQueryGroups(c *gin.Context) {
	query := roleGroupQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	details, err := h.roleManager.QueryRoleGroups(query.ExcludeOwnRoles, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, details)
}

func (h *roleHandler) handleDeleteGroup(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	if err = h.roleManager.DeleteRoleGroup(parsedId, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}
