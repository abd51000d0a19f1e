package domain_test

import (
	"warden/bizerror"
	"warden/domain"
	"warden/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("RoleManager", func() {
	var (
		testDatabase *testinfra.TestDatabase
		manager      *domain.RoleManager
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartSqliteTestDatabase("warden_roles")
		Expect(testDatabase.DS.GormDB().AutoMigrate(
			&domain.Role{}, &domain.RoleGroup{}, &domain.RoleGroupMap{},
			&domain.RolePermission{}, &domain.UserRole{}).Error).To(BeNil())
		manager = domain.NewRoleManager(testDatabase.DS)

		Expect(testDatabase.DS.GormDB().Create(&domain.RoleGroup{ID: 1, Name: "builtin"}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopSqliteTestDatabase(testDatabase)
	})

	Describe("CreateRole", func() {
		It("should create the role and its group mapping together", func() {
			sec := testinfra.BuildSecCtx(1, "role.add")
			role, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())
			Expect(role.ID).ToNot(BeZero())
			Expect(role.CreatedBy).To(Equal(sec.Identity.ID))

			mapping := domain.RoleGroupMap{}
			Expect(testDatabase.DS.GormDB().Where("role_id = ?", role.ID).First(&mapping).Error).To(BeNil())
			Expect(mapping.RoleGroupID).To(Equal(types.ID(1)))
		})

		It("should reject a duplicate role name", func() {
			sec := testinfra.BuildSecCtx(1, "role.add")
			_, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())

			_, err = manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			violation, ok := err.(*bizerror.ErrFieldViolation)
			Expect(ok).To(BeTrue())
			Expect(violation.Field).To(Equal("name"))
		})

		It("should reject an unknown role group", func() {
			sec := testinfra.BuildSecCtx(1, "role.add")
			_, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 404}, sec)
			Expect(err).To(Equal(bizerror.ErrNotFound))
		})

		It("should be blocked when user lack of permission", func() {
			_, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1},
				testinfra.BuildSecCtx(1))
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})
	})

	Describe("UpdateRole", func() {
		It("should replace the permission set when given", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.edit")
			role, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())

			permissionIDs := []types.ID{101, 102}
			Expect(manager.UpdateRole(role.ID,
				&domain.RoleUpdating{Name: "administrator", PermissionIDs: &permissionIDs}, sec)).To(BeNil())

			updated := domain.Role{}
			Expect(testDatabase.DS.GormDB().Where("id = ?", role.ID).First(&updated).Error).To(BeNil())
			Expect(updated.Name).To(Equal("administrator"))
			var count int
			Expect(testDatabase.DS.GormDB().Model(&domain.RolePermission{}).
				Where("role_id = ?", role.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(Equal(2))
		})

		It("should leave the permission set untouched when absent", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.edit")
			role, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())
			Expect(testDatabase.DS.GormDB().Create(
				&domain.RolePermission{RoleID: role.ID, PermissionID: 101}).Error).To(BeNil())

			Expect(manager.UpdateRole(role.ID, &domain.RoleUpdating{Description: "ops"}, sec)).To(BeNil())

			var count int
			Expect(testDatabase.DS.GormDB().Model(&domain.RolePermission{}).
				Where("role_id = ?", role.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})
	})

	Describe("DeleteRole", func() {
		It("should refuse to delete a role with assigned permissions", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.delete")
			role, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())
			Expect(testDatabase.DS.GormDB().Create(
				&domain.RolePermission{RoleID: role.ID, PermissionID: 101}).Error).To(BeNil())

			Expect(manager.DeleteRole(role.ID, sec)).To(Equal(bizerror.ErrHasPermissions))
		})

		It("should remove the group mapping and user assignments with the role", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.delete")
			role, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())
			Expect(testDatabase.DS.GormDB().Create(
				&domain.UserRole{UserID: 7, RoleID: role.ID}).Error).To(BeNil())

			Expect(manager.DeleteRole(role.ID, sec)).To(BeNil())

			var count int
			Expect(testDatabase.DS.GormDB().Model(&domain.RoleGroupMap{}).
				Where("role_id = ?", role.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
			Expect(testDatabase.DS.GormDB().Model(&domain.UserRole{}).
				Where("role_id = ?", role.ID).Count(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
		})
	})

	Describe("DeleteRoleGroup", func() {
		It("should refuse to delete a group with mapped roles", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.delete")
			_, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())

			Expect(manager.DeleteRoleGroup(1, sec)).To(Equal(bizerror.ErrNotEmpty))
		})

		It("should delete an empty group", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.delete")
			group, err := manager.CreateRoleGroup(&domain.RoleGroupCreation{Name: "ops"}, sec)
			Expect(err).To(BeNil())

			Expect(manager.DeleteRoleGroup(group.ID, sec)).To(BeNil())
		})
	})

	Describe("QueryRoleGroups", func() {
		It("should list groups with their roles", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.view")
			role, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())

			details, err := manager.QueryRoleGroups(false, sec)
			Expect(err).To(BeNil())
			Expect(len(*details)).To(Equal(1))
			Expect((*details)[0].Name).To(Equal("builtin"))
			Expect(len((*details)[0].Roles)).To(Equal(1))
			Expect((*details)[0].Roles[0].ID).To(Equal(role.ID))
		})

		It("should exclude roles the acting user already holds", func() {
			sec := testinfra.BuildSecCtx(1, "role.add", "role.view")
			held, err := manager.CreateRole(&domain.RoleCreation{Name: "admin", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())
			other, err := manager.CreateRole(&domain.RoleCreation{Name: "viewer", RoleGroupID: 1}, sec)
			Expect(err).To(BeNil())
			Expect(testDatabase.DS.GormDB().Create(
				&domain.UserRole{UserID: sec.Identity.ID, RoleID: held.ID}).Error).To(BeNil())

			details, err := manager.QueryRoleGroups(true, sec)
			Expect(err).To(BeNil())
			Expect(len((*details)[0].Roles)).To(Equal(1))
			Expect((*details)[0].Roles[0].ID).To(Equal(other.ID))
		})
	})
})
