package sessions

import (
	"net/http"

	"warden/bizerror"
	"warden/common"
	"warden/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterSessionsHandler wires the unauthenticated session lifecycle routes:
// login and refresh.
func RegisterSessionsHandler(r *gin.Engine, m SessionManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/sessions", middleWares...)

	handler := &sessionHandler{sessionManager: m, validator: validator.New()}

	g.POST("", handler.handleLogin)
	g.POST("refreshes", handler.handleRefresh)
}

// RegisterSessionHandler wires the authenticated routes of the current session:
// detail and logout.
func RegisterSessionHandler(r *gin.Engine, m SessionManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session", middleWares...)

	handler := &sessionHandler{sessionManager: m, validator: validator.New()}

	g.GET("", handler.handleDetail)
	g.DELETE("", handler.handleLogout)
}

type sessionHandler struct {
	sessionManager SessionManagerTraits
	validator      *validator.Validate
}

func (h *sessionHandler) handleLogin(c *gin.Context) {
	login := LoginRequest{}
	err := c.ShouldBindBodyWith(&login, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(login); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	tokens, err := h.sessionManager.Login(&login)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *sessionHandler) handleRefresh(c *gin.Context) {
	refresh := RefreshRequest{}
	err := c.ShouldBindBodyWith(&refresh, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	body, err := h.sessionManager.Refresh(&refresh)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, body)
}

func (h *sessionHandler) handleDetail(c *gin.Context) {
	sec := session.FindSecurityContext(c)
	if sec == nil {
		panic(bizerror.ErrUnauthenticated)
	}
	c.JSON(http.StatusOK, sec)
}

func (h *sessionHandler) handleLogout(c *gin.Context) {
	sec := session.FindSecurityContext(c)
	if sec == nil {
		panic(bizerror.ErrUnauthenticated)
	}

	if err := h.sessionManager.Logout(sec.Identity.ID); err != nil {
		panic(err)
	}
	session.ContextCache.Delete(sec.Token)
	c.JSON(http.StatusNoContent, nil)
}
