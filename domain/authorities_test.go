package domain_test

import (
	"warden/domain"
	"warden/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoadAuthorities", func() {
	var testDatabase *testinfra.TestDatabase
	BeforeEach(func() {
		testDatabase = testinfra.StartSqliteTestDatabase("warden_authorities")
		Expect(testDatabase.DS.GormDB().AutoMigrate(
			&domain.Permission{}, &domain.RolePermission{}, &domain.UserRole{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopSqliteTestDatabase(testDatabase)
	})

	It("should resolve roles and the union of their permissions", func() {
		db := testDatabase.DS.GormDB()
		Expect(db.Create(&domain.Permission{ID: 101, Name: "user-management-create-user"}).Error).To(BeNil())
		Expect(db.Create(&domain.Permission{ID: 102, Name: "roles-access"}).Error).To(BeNil())
		Expect(db.Create(&domain.RolePermission{RoleID: 20, PermissionID: 101}).Error).To(BeNil())
		Expect(db.Create(&domain.RolePermission{RoleID: 21, PermissionID: 101}).Error).To(BeNil())
		Expect(db.Create(&domain.RolePermission{RoleID: 21, PermissionID: 102}).Error).To(BeNil())
		Expect(db.Create(&domain.UserRole{UserID: 7, RoleID: 20}).Error).To(BeNil())
		Expect(db.Create(&domain.UserRole{UserID: 7, RoleID: 21}).Error).To(BeNil())

		authorities, err := domain.LoadAuthorities(testDatabase.DS, 7)
		Expect(err).To(BeNil())
		Expect(authorities.RoleIDs).To(ConsistOf(types.ID(20), types.ID(21)))
		Expect([]string(authorities.Permissions)).To(ConsistOf("user-management-create-user", "roles-access"))
	})

	It("should resolve empty lists for a user without roles", func() {
		authorities, err := domain.LoadAuthorities(testDatabase.DS, 7)
		Expect(err).To(BeNil())
		Expect(authorities.RoleIDs).To(Equal([]types.ID{}))
		Expect([]string(authorities.Permissions)).To(Equal([]string{}))
	})
})
