package sessions

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

// LoggedInUser is the single active session row of a user. The unique index on
// user_id enforces at most one refresh token per user at any moment.
type LoggedInUser struct {
	ID           types.ID  `json:"id" gorm:"primary_key"`
	UserID       types.ID  `json:"userId" gorm:"unique_index"`
	RefreshToken string    `json:"-" gorm:"type:text"`
	SignTime     time.Time `json:"signTime"`
}

func (r *LoggedInUser) TableName() string {
	return "logged_in_users"
}
