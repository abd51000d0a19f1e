package sessions

import (
	"strings"
	"time"

	"warden/account"
	"warden/bizerror"
	"warden/domain"
	"warden/persistence"
	"warden/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// BearerAuthFilter verifies the Authorization header and attaches the resolved
// security context to the request. A missing token is unauthenticated, a token
// that fails verification is forbidden. Verified tokens are cached for their
// remaining lifetime so the permission set is not re-resolved on every request.
func BearerAuthFilter(ds *persistence.DataSourceManager, tokenConfig *session.TokenConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			panic(bizerror.ErrUnauthenticated)
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			panic(bizerror.ErrUnauthenticated)
		}

		if value, found := session.ContextCache.Get(token); found {
			if secCtx, ok := value.(*session.Context); ok {
				session.SaveSecurityContext(ctx, secCtx)
				ctx.Next()
				return
			}
		}

		secCtx, err := resolveSecurityContext(ds, tokenConfig, token)
		if err != nil {
			panic(err)
		}
		session.SaveSecurityContext(ctx, secCtx)
		ctx.Next()
	}
}

func resolveSecurityContext(ds *persistence.DataSourceManager, tokenConfig *session.TokenConfig,
	token string) (*session.Context, error) {
	claims, err := tokenConfig.DecodeAccessToken(token)
	if err != nil {
		return nil, bizerror.ErrForbidden
	}
	uid, err := types.ParseID(claims.Subject)
	if err != nil {
		return nil, bizerror.ErrForbidden
	}

	user := account.User{}
	if err := ds.GormDB().Where("id = ?", uid).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}

	authorities, err := domain.LoadAuthoritiesFunc(ds, uid)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	secCtx := &session.Context{
		Token: token,
		Identity: session.Identity{
			ID: user.ID, Email: user.Email, Name: user.DisplayName(), Superuser: user.IsSuperuser,
		},
		Perms: authorities.Permissions, RoleIDs: authorities.RoleIDs, SigningTime: now,
	}
	if claims.ExpiresAt != nil {
		if ttl := claims.ExpiresAt.Sub(now); ttl > 0 {
			session.ContextCache.Set(token, secCtx, ttl)
		}
	}
	return secCtx, nil
}
