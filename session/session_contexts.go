package session

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ContextCache holds verified access tokens mapped to their resolved security
// context, so repeated requests within a token's lifetime skip re-resolving the
// permission set on every call.
var ContextCache = cache.New(5*time.Minute, 1*time.Minute)

const KeySecCtx = "SecCtx"

func FindSecurityContext(ctx *gin.Context) *Context {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return nil
	}
	secCtx, ok := value.(*Context)
	if !ok || secCtx.Token == "" {
		return nil
	}
	return secCtx
}

func SaveSecurityContext(ctx *gin.Context, secCtx *Context) {
	if secCtx != nil && secCtx.Token != "" {
		ctx.Set(KeySecCtx, secCtx)
	}
}
