package credential

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

// PasswordHistory is an append-only log of a user's previous password hashes,
// used to reject password reuse without any history window.
type PasswordHistory struct {
	ID         types.ID  `json:"id" gorm:"primary_key"`
	UserID     types.ID  `json:"userId" gorm:"index"`
	Secret     string    `json:"-"`
	CreateTime time.Time `json:"createTime"`
}

func (PasswordHistory) TableName() string {
	return "password_histories"
}
