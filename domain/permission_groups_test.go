package domain_test

import (
	"warden/bizerror"
	"warden/domain"
	"warden/testinfra"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("GroupManager", func() {
	var (
		testDatabase *testinfra.TestDatabase
		manager      *domain.GroupManager
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartSqliteTestDatabase("warden_groups")
		Expect(testDatabase.DS.GormDB().AutoMigrate(
			&domain.PermissionGroup{}, &domain.Permission{}).Error).To(BeNil())
		manager = domain.NewGroupManager(testDatabase.DS)
	})
	AfterEach(func() {
		testinfra.StopSqliteTestDatabase(testDatabase)
	})

	Describe("CreateGroup", func() {
		It("should be blocked when user lack of permission", func() {
			sec := testinfra.BuildSecCtx(1)
			group, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(Equal(bizerror.ErrForbidden))
			Expect(group).To(BeNil())
		})

		It("should assign increasing ordinals within the sibling set", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			g1, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())
			Expect(g1.Ordinal).To(Equal(1))
			Expect(g1.ParentID).To(BeZero())
			Expect(g1.CreatedBy).To(Equal(sec.Identity.ID))

			g2, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "roles"}, sec)
			Expect(err).To(BeNil())
			Expect(g2.Ordinal).To(Equal(2))

			// ordinals are scoped per parent
			child, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "internal", ParentID: g1.ID}, sec)
			Expect(err).To(BeNil())
			Expect(child.Ordinal).To(Equal(1))
		})

		It("should reject a duplicate name among siblings", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			_, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())

			_, err = manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			violation, ok := err.(*bizerror.ErrFieldViolation)
			Expect(ok).To(BeTrue())
			Expect(violation.Field).To(Equal("name"))
		})

		It("should allow the same name under different parents", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			parent, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())

			_, err = manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users", ParentID: parent.ID}, sec)
			Expect(err).To(BeNil())
		})

		It("should reject an unknown parent", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			_, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users", ParentID: 404}, sec)
			Expect(err).To(Equal(bizerror.ErrNotFound))
		})
	})

	Describe("UpdateGroup", func() {
		It("should rename an existing group", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add", "permission.edit")
			group, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())

			Expect(manager.UpdateGroup(group.ID, &domain.PermissionGroupUpdating{Name: "accounts"}, sec)).To(BeNil())

			groups, err := manager.QueryGroups(0, testinfra.BuildSecCtx(1, "permission.view"))
			Expect(err).To(BeNil())
			Expect((*groups)[0].Name).To(Equal("accounts"))
		})

		It("should report not found for an unknown group", func() {
			sec := testinfra.BuildSecCtx(1, "permission.edit")
			Expect(manager.UpdateGroup(404, &domain.PermissionGroupUpdating{Name: "x"}, sec)).To(Equal(bizerror.ErrNotFound))
		})
	})

	Describe("DeleteGroup", func() {
		It("should refuse to delete a group with child groups", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add", "permission.delete")
			parent, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())
			_, err = manager.CreateGroup(&domain.PermissionGroupCreation{Name: "internal", ParentID: parent.ID}, sec)
			Expect(err).To(BeNil())

			Expect(manager.DeleteGroup(parent.ID, sec)).To(Equal(bizerror.ErrNotEmpty))
		})

		It("should refuse to delete a group with permissions", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add", "permission.delete")
			group, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())
			Expect(testDatabase.DS.GormDB().Create(
				&domain.Permission{ID: 10, Name: "users-view", GroupID: group.ID}).Error).To(BeNil())

			Expect(manager.DeleteGroup(group.ID, sec)).To(Equal(bizerror.ErrHasPermissions))
		})

		It("should delete a leaf group", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add", "permission.delete")
			group, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())

			Expect(manager.DeleteGroup(group.ID, sec)).To(BeNil())

			groups, err := manager.QueryGroups(0, testinfra.BuildSecCtx(1, "permission.view"))
			Expect(err).To(BeNil())
			Expect(*groups).To(BeEmpty())
		})
	})

	Describe("QueryGroups", func() {
		It("should list children of the given parent ordered by ordinal", func() {
			sec := testinfra.BuildSecCtx(1, "permission.add")
			g1, err := manager.CreateGroup(&domain.PermissionGroupCreation{Name: "users"}, sec)
			Expect(err).To(BeNil())
			_, err = manager.CreateGroup(&domain.PermissionGroupCreation{Name: "roles"}, sec)
			Expect(err).To(BeNil())
			_, err = manager.CreateGroup(&domain.PermissionGroupCreation{Name: "internal", ParentID: g1.ID}, sec)
			Expect(err).To(BeNil())

			viewer := testinfra.BuildSecCtx(2, "permission.view")
			roots, err := manager.QueryGroups(0, viewer)
			Expect(err).To(BeNil())
			Expect(len(*roots)).To(Equal(2))
			Expect((*roots)[0].Name).To(Equal("users"))
			Expect((*roots)[1].Name).To(Equal("roles"))

			children, err := manager.QueryGroups(g1.ID, viewer)
			Expect(err).To(BeNil())
			Expect(len(*children)).To(Equal(1))
			Expect((*children)[0].Name).To(Equal("internal"))
		})

		It("should allow superusers without explicit permissions", func() {
			root := testinfra.BuildSuperuserSecCtx(9)
			groups, err := manager.QueryGroups(0, root)
			Expect(err).To(BeNil())
			Expect(*groups).To(BeEmpty())
		})
	})
})
