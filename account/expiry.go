package account

import (
	"time"

	"warden/common"
	"warden/persistence"
)

// SweepExpiredUsers deactivates every user whose expiry date has passed, clearing
// the date and forcing a password change on the next activation. A failure on one
// user is logged and the sweep moves on. Returns the number of users swept.
func SweepExpiredUsers(ds *persistence.DataSourceManager) int {
	db := ds.GormDB()

	var users []User
	if err := db.Where("expiry_date IS NOT NULL AND expiry_date < ?", time.Now()).Find(&users).Error; err != nil {
		common.Log.Errorf("failed to load expired users: %v", err)
		return 0
	}

	swept := 0
	for i := range users {
		u := &users[i]
		err := db.Model(&User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
			"is_active":                false,
			"needs_to_change_password": true,
			"expiry_date":              nil,
		}).Error
		if err != nil {
			common.Log.Errorf("failed to sweep expired user %d: %v", u.ID, err)
			continue
		}
		swept++
	}
	if swept > 0 {
		common.Log.Infof("expiry sweep deactivated %d users", swept)
	}
	return swept
}
