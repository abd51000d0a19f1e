package account_test

import (
	"testing"

	"warden/account"
	"warden/credential"
	"warden/testinfra"

	. "github.com/onsi/gomega"
)

func TestBootstrapSuperuser(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should create the initial superuser once", func(t *testing.T) {
		testDatabase := testinfra.StartSqliteTestDatabase("warden_bootstrap")
		defer testinfra.StopSqliteTestDatabase(testDatabase)
		Expect(testDatabase.DS.GormDB().AutoMigrate(&account.User{}).Error).To(BeNil())

		t.Setenv("INITIAL_ADMIN_EMAIL", "root@b.com")
		t.Setenv("INITIAL_ADMIN_PASSWORD", "Root123$x")

		Expect(account.BootstrapSuperuser(testDatabase.DS)).To(BeNil())
		Expect(account.BootstrapSuperuser(testDatabase.DS)).To(BeNil())

		var users []account.User
		Expect(testDatabase.DS.GormDB().Find(&users).Error).To(BeNil())
		Expect(len(users)).To(Equal(1))
		Expect(users[0].IsSuperuser).To(BeTrue())
		Expect(users[0].IsActive).To(BeTrue())
		Expect(users[0].NeedsToChangePassword).To(BeTrue())
		Expect(credential.Verify("Root123$x", users[0].Secret)).To(BeTrue())
	})

	t.Run("should skip when env variables are absent", func(t *testing.T) {
		testDatabase := testinfra.StartSqliteTestDatabase("warden_bootstrap")
		defer testinfra.StopSqliteTestDatabase(testDatabase)
		Expect(testDatabase.DS.GormDB().AutoMigrate(&account.User{}).Error).To(BeNil())

		t.Setenv("INITIAL_ADMIN_EMAIL", "")
		t.Setenv("INITIAL_ADMIN_PASSWORD", "")

		Expect(account.BootstrapSuperuser(testDatabase.DS)).To(BeNil())
		var count int
		Expect(testDatabase.DS.GormDB().Model(&account.User{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
	})
}
