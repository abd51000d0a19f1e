package testinfra

import (
	"net/http"
	"net/http/httptest"

	"warden/authority"
	"warden/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// ExecuteRequest runs the request through the router and returns status, body and
// headers.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, http.Header) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code, w.Body.String(), w.Header()
}

// BuildSecCtx builds an authenticated security context holding the given
// permissions.
func BuildSecCtx(uid types.ID, perms ...string) *session.Context {
	return &session.Context{
		Token:    "test-token-" + uid.String(),
		Identity: session.Identity{ID: uid, Email: "user" + uid.String() + "@test.com"},
		Perms:    authority.Permissions(perms),
	}
}

// BuildSuperuserSecCtx builds a security context of a superuser without any
// explicit permission.
func BuildSuperuserSecCtx(uid types.ID) *session.Context {
	return &session.Context{
		Token:    "test-token-" + uid.String(),
		Identity: session.Identity{ID: uid, Email: "root" + uid.String() + "@test.com", Superuser: true},
	}
}
