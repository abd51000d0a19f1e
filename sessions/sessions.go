package sessions

import (
	"errors"
	"time"

	"warden/account"
	"warden/bizerror"
	"warden/common"
	"warden/credential"
	"warden/domain"
	"warden/notify"
	"warden/persistence"
	"warden/session"

	"github.com/fundwit/go-commons/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const stalePasswordAge = 30 * 24 * time.Hour

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type AccessTokenBody struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

type SessionManagerTraits interface {
	Login(r *LoginRequest) (*TokenPair, error)
	Refresh(r *RefreshRequest) (*AccessTokenBody, error)
	Logout(uid types.ID) error
}

type SessionManager struct {
	dataSource  *persistence.DataSourceManager
	tokenConfig *session.TokenConfig
	publisher   notify.Publisher
	idWorker    *sonyflake.Sonyflake
}

func NewSessionManager(ds *persistence.DataSourceManager, tokenConfig *session.TokenConfig,
	publisher notify.Publisher) *SessionManager {
	return &SessionManager{
		dataSource: ds, tokenConfig: tokenConfig, publisher: publisher,
		idWorker: sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

// Login verifies the credentials and account state, then issues a fresh token
// pair. The stored session row is replaced, a second login invalidates the
// refresh token of the first. Unknown emails and wrong passwords collapse into
// the same invalid-credentials outcome.
func (m *SessionManager) Login(r *LoginRequest) (*TokenPair, error) {
	db := m.dataSource.GormDB()
	now := time.Now()

	user := account.User{}
	if err := db.Where("email = ?", r.Email).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			m.publisher.Publish(notify.TopicLogging, notify.EventLoginFailed, map[string]string{"email": r.Email})
			return nil, bizerror.ErrInvalidCredentials
		}
		return nil, err
	}
	if !credential.Verify(r.Password, user.Secret) {
		m.publisher.Publish(notify.TopicLogging, notify.EventLoginFailed, map[string]string{"email": r.Email})
		return nil, bizerror.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, bizerror.ErrInactiveAccount
	}
	if user.ExpiryDate != nil && user.ExpiryDate.Before(now) && !user.IsSuperuser {
		return nil, bizerror.ErrAccountExpired
	}

	subject := user.ID.String()
	accessToken, err := m.tokenConfig.IssueAccessToken(subject, user.Email, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.tokenConfig.IssueRefreshToken(subject, now)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&LoggedInUser{}).Error; err != nil {
			return err
		}
		record := LoggedInUser{
			ID: common.NextId(m.idWorker), UserID: user.ID, RefreshToken: refreshToken, SignTime: now,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}

	if user.LastChangedPasswordTime != nil && now.Sub(*user.LastChangedPasswordTime) > stalePasswordAge &&
		!user.NeedsToChangePassword {
		if err := db.Model(&account.User{}).Where("id = ?", user.ID).
			Update("needs_to_change_password", true).Error; err != nil {
			common.Log.Warnf("failed to flag stale password for user %d: %v", user.ID, err)
		}
	}

	authorities, err := domain.LoadAuthoritiesFunc(m.dataSource, user.ID)
	if err != nil {
		return nil, err
	}
	secCtx := &session.Context{
		Token: accessToken,
		Identity: session.Identity{
			ID: user.ID, Email: user.Email, Name: user.DisplayName(), Superuser: user.IsSuperuser,
		},
		Perms: authorities.Permissions, RoleIDs: authorities.RoleIDs, SigningTime: now,
	}
	session.ContextCache.Set(accessToken, secCtx, m.tokenConfig.AccessExpiration)

	m.publisher.Publish(notify.TopicLogging, notify.EventLoginSucceeded, map[string]string{"email": user.Email})
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: "bearer"}, nil
}

// Refresh trades a valid refresh token for a new access token. The refresh token
// itself is never rotated here, and it must match the stored session row: a token
// displaced by a later login no longer refreshes anything.
func (m *SessionManager) Refresh(r *RefreshRequest) (*AccessTokenBody, error) {
	claims, err := m.tokenConfig.DecodeRefreshToken(r.RefreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, bizerror.ErrUnauthenticated
		}
		return nil, bizerror.ErrForbidden
	}

	uid, err := types.ParseID(claims.Subject)
	if err != nil {
		return nil, bizerror.ErrForbidden
	}

	db := m.dataSource.GormDB()
	user := account.User{}
	if err := db.Where("id = ?", uid).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}

	record := LoggedInUser{}
	if err := db.Where("user_id = ?", uid).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrForbidden
		}
		return nil, err
	}
	if record.RefreshToken != r.RefreshToken {
		return nil, bizerror.ErrForbidden
	}

	accessToken, err := m.tokenConfig.IssueAccessToken(uid.String(), user.Email, time.Now())
	if err != nil {
		return nil, err
	}
	return &AccessTokenBody{AccessToken: accessToken, TokenType: "bearer"}, nil
}

// Logout drops the session row. Logging out without an active session is a no-op.
func (m *SessionManager) Logout(uid types.ID) error {
	db := m.dataSource.GormDB()
	return db.Where("user_id = ?", uid).Delete(&LoggedInUser{}).Error
}
