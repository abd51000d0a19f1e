package account

import (
	"strings"
	"time"

	"warden/authority"

	"github.com/fundwit/go-commons/types"
)

type User struct {
	ID         types.ID `json:"id" gorm:"primary_key"`
	EmployeeID int      `json:"employeeId" gorm:"index"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email" gorm:"unique_index"`
	Secret     string   `json:"-"`

	IsActive     bool   `json:"isActive"`
	IsSuperuser  bool   `json:"isSuperuser"`
	ContactPhone string `json:"contactPhone"`

	NeedsToChangePassword   bool       `json:"needsToChangePassword"`
	ExpiryDate              *time.Time `json:"expiryDate"`
	LastChangedPasswordTime *time.Time `json:"lastChangedPasswordTime"`
	LastUpdatedTime         *time.Time `json:"lastUpdatedTime"`
	LastUpdatedBy           types.ID   `json:"lastUpdatedBy"`
	FailedAttempts          int        `json:"failedAttempts"`
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserInfo is the outward projection of a user record, without the secret.
type UserInfo struct {
	ID           types.ID   `json:"id"`
	EmployeeID   int        `json:"employeeId"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	IsActive     bool       `json:"isActive"`
	IsSuperuser  bool       `json:"isSuperuser"`
	ContactPhone string     `json:"contactPhone"`
	ExpiryDate   *time.Time `json:"expiryDate"`

	NeedsToChangePassword bool `json:"needsToChangePassword"`
}

// UserDetail augments UserInfo with the resolved authorization state. The
// augmentable attributes are explicit typed fields, built by construction.
type UserDetail struct {
	UserInfo
	RoleIDs     []types.ID            `json:"roleIds"`
	Permissions authority.Permissions `json:"permissions"`
}

func infoOf(u *User) UserInfo {
	return UserInfo{
		ID: u.ID, EmployeeID: u.EmployeeID, FirstName: u.FirstName, LastName: u.LastName,
		Email: u.Email, IsActive: u.IsActive, IsSuperuser: u.IsSuperuser,
		ContactPhone: u.ContactPhone, ExpiryDate: u.ExpiryDate,
		NeedsToChangePassword: u.NeedsToChangePassword,
	}
}
