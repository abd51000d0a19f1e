package domain_test

import (
	"warden/bizerror"
	"warden/domain"
	"warden/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("PermissionManager", func() {
	var (
		testDatabase *testinfra.TestDatabase
		manager      *domain.PermissionManager
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartSqliteTestDatabase("warden_permissions")
		Expect(testDatabase.DS.GormDB().AutoMigrate(
			&domain.PermissionGroup{}, &domain.Permission{}, &domain.Role{},
			&domain.RolePermission{}).Error).To(BeNil())
		manager = domain.NewPermissionManager(testDatabase.DS)

		Expect(testDatabase.DS.GormDB().Create(
			&domain.PermissionGroup{ID: 1, Name: "User Management"}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopSqliteTestDatabase(testDatabase)
	})

	Describe("CreatePermission", func() {
		It("should derive the name from the group name and description", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			permission, err := manager.CreatePermission(
				&domain.PermissionCreation{GroupID: 1, Description: "Create User"}, sec)
			Expect(err).To(BeNil())
			Expect(permission.Name).To(Equal("user-management-create-user"))
			Expect(permission.Description).To(Equal("Create User"))
			Expect(permission.GroupID).To(Equal(types.ID(1)))
		})

		It("should reject a derived name that already exists", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			_, err := manager.CreatePermission(&domain.PermissionCreation{GroupID: 1, Description: "Create User"}, sec)
			Expect(err).To(BeNil())

			// a different description producing the same slug collides too
			_, err = manager.CreatePermission(&domain.PermissionCreation{GroupID: 1, Description: "create   user"}, sec)
			violation, ok := err.(*bizerror.ErrFieldViolation)
			Expect(ok).To(BeTrue())
			Expect(violation.Field).To(Equal("description"))
		})

		It("should reject an unknown group", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			_, err := manager.CreatePermission(&domain.PermissionCreation{GroupID: 404, Description: "x"}, sec)
			Expect(err).To(Equal(bizerror.ErrNotFound))
		})

		It("should be blocked when user lack of permission", func() {
			_, err := manager.CreatePermission(&domain.PermissionCreation{GroupID: 1, Description: "x"},
				testinfra.BuildSecCtx(1))
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})
	})

	Describe("DeletePermission", func() {
		It("should remove role assignments referencing the permission", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add", "permission.delete")
			permission, err := manager.CreatePermission(
				&domain.PermissionCreation{GroupID: 1, Description: "Create User"}, sec)
			Expect(err).To(BeNil())
			Expect(testDatabase.DS.GormDB().Create(&domain.Role{ID: 20, Name: "admin"}).Error).To(BeNil())
			Expect(testDatabase.DS.GormDB().Create(
				&domain.RolePermission{RoleID: 20, PermissionID: permission.ID}).Error).To(BeNil())

			Expect(manager.DeletePermission(permission.ID, sec)).To(BeNil())

			var count int
			Expect(testDatabase.DS.GormDB().Model(&domain.RolePermission{}).
				Where("permission_id = ?", permission.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
		})
	})

	Describe("AssignToRole", func() {
		var role domain.Role
		BeforeEach(func() {
			role = domain.Role{ID: 20, Name: "admin"}
			Expect(testDatabase.DS.GormDB().Create(&role).Error).To(BeNil())
		})

		It("should replace the whole assignment set", func() {
			sec := testinfra.BuildSecCtx(1, "roles-access")
			Expect(manager.AssignToRole(role.ID,
				&domain.PermissionAssignment{PermissionIDs: []types.ID{101, 102}}, sec)).To(BeNil())
			Expect(manager.AssignToRole(role.ID,
				&domain.PermissionAssignment{PermissionIDs: []types.ID{102, 103}}, sec)).To(BeNil())

			detail, err := manager.AssignedPermissions(role.ID, sec)
			Expect(err).To(BeNil())
			Expect(detail.RoleName).To(Equal("admin"))
			Expect(detail.PermissionIDs).To(Equal([]types.ID{102, 103}))
		})

		It("should deduplicate the requested set", func() {
			sec := testinfra.BuildSecCtx(1, "roles-access")
			Expect(manager.AssignToRole(role.ID,
				&domain.PermissionAssignment{PermissionIDs: []types.ID{101, 101, 102}}, sec)).To(BeNil())

			detail, err := manager.AssignedPermissions(role.ID, sec)
			Expect(err).To(BeNil())
			Expect(detail.PermissionIDs).To(Equal([]types.ID{101, 102}))
		})

		It("should clear the set when given an empty list", func() {
			sec := testinfra.BuildSecCtx(1, "roles-access")
			Expect(manager.AssignToRole(role.ID,
				&domain.PermissionAssignment{PermissionIDs: []types.ID{101}}, sec)).To(BeNil())
			Expect(manager.AssignToRole(role.ID, &domain.PermissionAssignment{}, sec)).To(BeNil())

			detail, err := manager.AssignedPermissions(role.ID, sec)
			Expect(err).To(BeNil())
			Expect(detail.PermissionIDs).To(BeEmpty())
		})

		It("should reject an unknown role", func() {
			sec := testinfra.BuildSecCtx(1, "roles-access")
			err := manager.AssignToRole(404, &domain.PermissionAssignment{PermissionIDs: []types.ID{101}}, sec)
			Expect(err).To(Equal(bizerror.ErrNotFound))
		})
	})

	Describe("EffectivePermissionNames", func() {
		It("should union permissions across roles without duplicates", func() {
			db := testDatabase.DS.GormDB()
			Expect(db.Create(&domain.Permission{ID: 101, Name: "p1"}).Error).To(BeNil())
			Expect(db.Create(&domain.Permission{ID: 102, Name: "p2"}).Error).To(BeNil())
			Expect(db.Create(&domain.Permission{ID: 103, Name: "p3"}).Error).To(BeNil())
			Expect(db.Create(&domain.RolePermission{RoleID: 20, PermissionID: 101}).Error).To(BeNil())
			Expect(db.Create(&domain.RolePermission{RoleID: 20, PermissionID: 102}).Error).To(BeNil())
			Expect(db.Create(&domain.RolePermission{RoleID: 21, PermissionID: 102}).Error).To(BeNil())
			Expect(db.Create(&domain.RolePermission{RoleID: 21, PermissionID: 103}).Error).To(BeNil())

			names, err := domain.EffectivePermissionNames(db, []types.ID{20, 21})
			Expect(err).To(BeNil())
			Expect(names).To(ConsistOf("p1", "p2", "p3"))
		})

		It("should return an empty list for no roles", func() {
			names, err := domain.EffectivePermissionNames(testDatabase.DS.GormDB(), nil)
			Expect(err).To(BeNil())
			Expect(names).To(Equal([]string{}))
		})
	})
})
