package account

import (
	"time"

	"warden/bizerror"
	"warden/credential"
	"warden/notify"
	"warden/persistence"
	"warden/session"

	"github.com/jinzhu/gorm"
)

type PasswordChange struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type PasswordRecovery struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordReset struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type PasswordManagerTraits interface {
	ChangePassword(p *PasswordChange, sec *session.Context) error
	RequestPasswordReset(p *PasswordRecovery) error
	ResetPassword(p *PasswordReset) error
}

type PasswordManager struct {
	dataSource    *persistence.DataSourceManager
	historyKeeper credential.HistoryKeeperTraits
	tokenConfig   *session.TokenConfig
	publisher     notify.Publisher
}

func NewPasswordManager(ds *persistence.DataSourceManager, tokenConfig *session.TokenConfig,
	publisher notify.Publisher) *PasswordManager {
	return &PasswordManager{
		dataSource: ds, historyKeeper: credential.NewHistoryKeeper(ds),
		tokenConfig: tokenConfig, publisher: publisher,
	}
}

// ChangePassword lets the acting user replace their own password. Checks run in a
// fixed order: old password match, policy, confirmation, reuse. The replaced hash
// goes to the history table in the same transaction that overwrites the secret.
func (m *PasswordManager) ChangePassword(p *PasswordChange, sec *session.Context) error {
	if sec == nil || sec.Identity.ID == 0 {
		return bizerror.ErrUnauthenticated
	}

	db := m.dataSource.GormDB()
	user := User{}
	if err := db.Where("id = ?", sec.Identity.ID).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return bizerror.ErrNotFound
		}
		return err
	}

	if !credential.Verify(p.OldPassword, user.Secret) {
		return &bizerror.ErrFieldViolation{Field: "oldPassword", Message: "old password does not match"}
	}
	if err := m.validateNewPassword(&user, p.NewPassword, p.ConfirmPassword); err != nil {
		return err
	}

	if err := m.overwriteSecret(&user, p.NewPassword); err != nil {
		return err
	}
	m.publisher.Publish(notify.TopicLogging, notify.EventPasswordChanged,
		map[string]string{"email": user.Email})
	return nil
}

// RequestPasswordReset issues a reset token for the account and hands it to the
// email notification channel. The token never appears in the response body.
func (m *PasswordManager) RequestPasswordReset(p *PasswordRecovery) error {
	db := m.dataSource.GormDB()
	user := User{}
	if err := db.Where("email = ?", p.Email).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return bizerror.ErrNotFound
		}
		return err
	}

	token, err := m.tokenConfig.IssueResetToken(user.Email, time.Now())
	if err != nil {
		return err
	}
	m.publisher.Publish(notify.TopicEmails, notify.EventPasswordResetRequested,
		map[string]string{"email": user.Email, "resetToken": token})
	return nil
}

// ResetPassword consumes a reset token. Expired, tampered or otherwise undecodable
// tokens all collapse into the same invalid-token outcome.
func (m *PasswordManager) ResetPassword(p *PasswordReset) error {
	email, err := m.tokenConfig.DecodeResetToken(p.Token)
	if err != nil || email == "" {
		return bizerror.ErrInvalidToken
	}

	db := m.dataSource.GormDB()
	user := User{}
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return bizerror.ErrNotFound
		}
		return err
	}
	if !user.IsActive {
		return bizerror.ErrInactiveAccount
	}

	if err := m.validateNewPassword(&user, p.NewPassword, p.ConfirmPassword); err != nil {
		return err
	}
	if err := m.overwriteSecret(&user, p.NewPassword); err != nil {
		return err
	}
	m.publisher.Publish(notify.TopicLogging, notify.EventPasswordChanged,
		map[string]string{"email": user.Email})
	return nil
}

func (m *PasswordManager) validateNewPassword(user *User, newPassword, confirmPassword string) error {
	if !credential.CheckPolicy(newPassword) {
		return &bizerror.ErrFieldViolation{Field: "newPassword",
			Message: "password must be at least 8 characters and contain only lowercase, uppercase, digit and $@_ characters, with at least one of each"}
	}
	if newPassword != confirmPassword {
		return &bizerror.ErrFieldViolation{Field: "confirmPassword", Message: "passwords do not match"}
	}

	// The current secret counts as used too, a "change" to the same password is a reuse.
	if credential.Verify(newPassword, user.Secret) {
		return &bizerror.ErrFieldViolation{Field: "newPassword", Message: "this password is already used"}
	}
	used, err := m.historyKeeper.HasBeenUsed(user.ID, newPassword)
	if err != nil {
		return err
	}
	if used {
		return &bizerror.ErrFieldViolation{Field: "newPassword", Message: "this password is already used"}
	}
	return nil
}

func (m *PasswordManager) overwriteSecret(user *User, newPassword string) error {
	hashed, err := credential.Hash(newPassword)
	if err != nil {
		return err
	}
	now := time.Now().Round(time.Millisecond)
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		if err := m.historyKeeper.AppendTx(tx, user.ID, user.Secret); err != nil {
			return err
		}
		return tx.Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"secret":                     hashed,
			"needs_to_change_password":   false,
			"last_changed_password_time": &now,
			"last_updated_time":          &now,
		}).Error
	})
}
