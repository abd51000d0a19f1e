package account

import (
	"os"

	"warden/common"
	"warden/credential"
	"warden/persistence"

	"github.com/sony/sonyflake"
)

// BootstrapSuperuser creates the initial superuser from INITIAL_ADMIN_EMAIL and
// INITIAL_ADMIN_PASSWORD when no account with that email exists yet. Without the
// env variables the bootstrap is skipped, an already provisioned database is left
// untouched.
func BootstrapSuperuser(ds *persistence.DataSourceManager) error {
	email := os.Getenv("INITIAL_ADMIN_EMAIL")
	password := os.Getenv("INITIAL_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	db := ds.GormDB()
	var count int
	if err := db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := credential.Hash(password)
	if err != nil {
		return err
	}
	idWorker := sonyflake.NewSonyflake(sonyflake.Settings{})
	user := User{
		ID: common.NextId(idWorker), FirstName: "Admin", Email: email, Secret: hashed,
		IsActive: true, IsSuperuser: true, NeedsToChangePassword: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	common.Log.Infof("bootstrapped initial superuser %s", email)
	return nil
}
