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

func RegisterPermissionGroupsHandler(r *gin.Engine, m GroupManagerTraits, middleWares ...gin.HandlerFunc) {
	// group: "", version: v1, resource: permission-groups
	g := r.Group("/v1/permission-groups", middleWares...)

	handler := &permissionGroupHandler{groupManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.PUT(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

type permissionGroupHandler struct {
	groupManager GroupManagerTraits
	validator    *validator.Validate
}

type permissionGroupQuery struct {
	ParentID types.ID `form:"parentId"`
}

func (h *permissionGroupHandler) handleCreate(c *gin.Context) {
	creation := PermissionGroupCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	group, err := h.groupManager.CreateGroup(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, group)
}

func (h *permissionGroupHandler) handleQuery(c *gin.Context) {
	query := permissionGroupQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	groups, err := h.groupManager.QueryGroups(query.ParentID, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, groups)
}

func (h *permissionGroupHandler) handleUpdate(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	updating := PermissionGroupUpdating{}
	err = c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.groupManager.UpdateGroup(parsedId, &updating, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *permissionGroupHandler) handleDelete(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	if err = h.groupManager.DeleteGroup(parsedId, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}
