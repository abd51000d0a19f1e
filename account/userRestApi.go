package account

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

func RegisterUsersHandler(r *gin.Engine, m UserManagerTraits, middleWares ...gin.HandlerFunc) {
	// group: "", version: v1, resource: users
	g := r.Group("/v1/users", middleWares...)

	handler := &userHandler{userManager: m, validator: validator.New()}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.GET(":id", handler.handleDetail)
	g.PUT(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

type userHandler struct {
	userManager UserManagerTraits
	validator   *validator.Validate
}

func (h *userHandler) handleCreate(c *gin.Context) {
	creation := UserCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.validator.Struct(creation); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	info, err := h.userManager.CreateUser(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, info)
}

func (h *userHandler) handleQuery(c *gin.Context) {
	query := UserQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	users, err := h.userManager.QueryUsers(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: users.List, Total: users.Total})
}

func (h *userHandler) handleDetail(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	detail, err := h.userManager.UserDetail(parsedId, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *userHandler) handleUpdate(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	updating := UserUpdating{}
	err = c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.userManager.UpdateUser(parsedId, &updating, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *userHandler) handleDelete(c *gin.Context) {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	if err = h.userManager.DeleteUser(parsedId, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusNoContent, nil)
}
