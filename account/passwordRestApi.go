package account

import (
	"net/http"

	"warden/common"
	"warden/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterPasswordsHandler wires the authenticated change-password route. The
// recovery routes are registered separately because they work without a session.
func RegisterPasswordsHandler(r *gin.Engine, m PasswordManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session-users", middleWares...)

	handler := &passwordHandler{passwordManager: m, validator: validator.New()}

	g.PUT("password", handler.handleChange)
}

func RegisterPasswordRecoveriesHandler(r *gin.Engine, m PasswordManagerTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/password-recoveries", middleWares...)

	handler := &passwordHandler{passwordManager: m, validator: validator.New()}

	g.POST("", handler.handleRecoveryRequest)
	g.POST("resets", handler.handleReset)
}

type passwordHandler struct {
	passwordManager PasswordManagerTraits
	validator       *validator.Validate
}

func (h *passwordHandler) handleChange(c *gin.Context) {
	change := PasswordChange{}
	err := c.ShouldBindBodyWith(&change, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.passwordManager.ChangePassword(&change, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *passwordHandler) handleRecoveryRequest(c *gin.Context) {
	recovery := PasswordRecovery{}
	err := c.ShouldBindBodyWith(&recovery, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(recovery); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.passwordManager.RequestPasswordReset(&recovery); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *passwordHandler) handleReset(c *gin.Context) {
	reset := PasswordReset{}
	err := c.ShouldBindBodyWith(&reset, binding.JSON)
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}

	if err = h.passwordManager.ResetPassword(&reset); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{})
}
