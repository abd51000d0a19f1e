package account

import (
	"time"

	"warden/bizerror"
	"warden/common"
	"warden/credential"
	"warden/domain"
	"warden/notify"
	"warden/persistence"
	"warden/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type UserCreation struct {
	EmployeeID int    `json:"employeeId"`
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName"`
	Email      string `json:"email" binding:"required,email"`

	// Password is optional, a system password is generated when it is empty.
	Password string `json:"password"`

	IsActive     bool       `json:"isActive"`
	IsSuperuser  bool       `json:"isSuperuser"`
	ContactPhone string     `json:"contactPhone"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	RoleIDs      []types.ID `json:"roleIds"`
}

type UserUpdating struct {
	EmployeeID   *int       `json:"employeeId"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	IsActive     *bool      `json:"isActive"`
	ContactPhone string     `json:"contactPhone"`
	ExpiryDate   *time.Time `json:"expiryDate"`

	// Password left empty keeps the stored hash untouched. A non-empty password is
	// re-hashed and forces needsToChangePassword.
	Password string `json:"password"`

	// RoleIDs replaces the user's whole role set when present.
	RoleIDs *[]types.ID `json:"roleIds"`
}

type UserQuery struct {
	Page      int      `form:"page"`
	Limit     int      `form:"limit"`
	Search    string   `form:"search"`
	Sort      string   `form:"sort"`
	Direction string   `form:"direction"`
	RoleID    types.ID `form:"roleId"`
}

type UserList struct {
	List  []UserInfo `json:"list"`
	Total uint64     `json:"total"`
}

type UserManagerTraits interface {
	CreateUser(c *UserCreation, sec *session.Context) (*UserInfo, error)
	UpdateUser(id types.ID, u *UserUpdating, sec *session.Context) error
	DeleteUser(id types.ID, sec *session.Context) error
	QueryUsers(q *UserQuery, sec *session.Context) (*UserList, error)
	UserDetail(id types.ID, sec *session.Context) (*UserDetail, error)
}

type UserManager struct {
	dataSource *persistence.DataSourceManager
	publisher  notify.Publisher
	idWorker   *sonyflake.Sonyflake
}

func NewUserManager(ds *persistence.DataSourceManager, publisher notify.Publisher) *UserManager {
	return &UserManager{
		dataSource: ds, publisher: publisher,
		idWorker: sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

// CreateUser rejects duplicate emails, hashes the effective password (supplied or
// generated) and writes the user together with its role assignments in one
// transaction. The generated system password reaches the user only through the
// user-created notification.
func (m *UserManager) CreateUser(c *UserCreation, sec *session.Context) (*UserInfo, error) {
	if !sec.Authorized("user.add") {
		return nil, bizerror.ErrForbidden
	}

	systemPassword := credential.GenerateSystemPassword()
	effectivePassword := c.Password
	if effectivePassword == "" {
		effectivePassword = systemPassword
	}
	hashed, err := credential.Hash(effectivePassword)
	if err != nil {
		return nil, err
	}

	user := User{
		ID: common.NextId(m.idWorker), EmployeeID: c.EmployeeID,
		FirstName: c.FirstName, LastName: c.LastName, Email: c.Email, Secret: hashed,
		IsActive: c.IsActive, IsSuperuser: c.IsSuperuser, ContactPhone: c.ContactPhone,
		ExpiryDate: c.ExpiryDate, NeedsToChangePassword: true,
	}
	err = m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&User{}).Where("email = ?", c.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &bizerror.ErrFieldViolation{Field: "email", Message: "the user with this email already exists in the system"}
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return replaceUserRolesTx(tx, user.ID, c.RoleIDs)
	})
	if err != nil {
		return nil, err
	}

	m.publisher.Publish(notify.TopicEmails, notify.EventUserCreated,
		map[string]string{"email": user.Email, "systemPassword": systemPassword})

	info := infoOf(&user)
	return &info, nil
}

func replaceUserRolesTx(tx *gorm.DB, uid types.ID, roleIDs []types.ID) error {
	if err := tx.Where("user_id = ?", uid).Delete(&domain.UserRole{}).Error; err != nil {
		return err
	}
	seen := map[types.ID]bool{}
	for _, rid := range roleIDs {
		if rid == 0 || seen[rid] {
			continue
		}
		seen[rid] = true
		if err := tx.Create(&domain.UserRole{UserID: uid, RoleID: rid}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *UserManager) UpdateUser(id types.ID, u *UserUpdating, sec *session.Context) error {
	if !sec.Authorized("user.edit") {
		return bizerror.ErrForbidden
	}

	now := time.Now().Round(time.Millisecond)
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		user := User{}
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}

		changes := map[string]interface{}{
			"last_updated_time": &now,
			"last_updated_by":   sec.Identity.ID,
		}
		if u.FirstName != "" {
			changes["first_name"] = u.FirstName
		}
		if u.LastName != "" {
			changes["last_name"] = u.LastName
		}
		if u.ContactPhone != "" {
			changes["contact_phone"] = u.ContactPhone
		}
		if u.EmployeeID != nil {
			changes["employee_id"] = *u.EmployeeID
		}
		if u.IsActive != nil {
			changes["is_active"] = *u.IsActive
		}
		if u.ExpiryDate != nil {
			changes["expiry_date"] = u.ExpiryDate
		}
		if u.Password != "" {
			hashed, err := credential.Hash(u.Password)
			if err != nil {
				return err
			}
			changes["secret"] = hashed
			changes["needs_to_change_password"] = true
		}
		if err := tx.Model(&User{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}

		if u.RoleIDs != nil {
			return replaceUserRolesTx(tx, id, *u.RoleIDs)
		}
		return nil
	})
}

// DeleteUser removes the user and its role assignments together, a user row never
// disappears while leaving user-role rows behind.
func (m *UserManager) DeleteUser(id types.ID, sec *session.Context) error {
	if !sec.Authorized("user.delete") {
		return bizerror.ErrForbidden
	}

	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		user := User{}
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&User{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", id).Delete(&domain.UserRole{}).Error
	})
}

var sortableUserColumns = map[string]string{
	"id": "id", "email": "email", "firstName": "first_name", "lastName": "last_name",
	"employeeId": "employee_id",
}

// QueryUsers pages through users excluding the acting user, with optional LIKE
// search over names, email and employee id, whitelisted sorting, and an optional
// role filter.
func (m *UserManager) QueryUsers(q *UserQuery, sec *session.Context) (*UserList, error) {
	if !sec.Authorized("user.view") {
		return nil, bizerror.ErrForbidden
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}

	db := m.dataSource.GormDB()
	query := db.Model(&User{}).Where("id <> ?", sec.Identity.ID)
	if q.RoleID != 0 {
		var userRoles []domain.UserRole
		if err := db.Where("role_id = ?", q.RoleID).Find(&userRoles).Error; err != nil {
			return nil, err
		}
		userIDs := make([]types.ID, 0, len(userRoles))
		for _, ur := range userRoles {
			userIDs = append(userIDs, ur.UserID)
		}
		if len(userIDs) == 0 {
			return &UserList{List: []UserInfo{}, Total: 0}, nil
		}
		query = query.Where("id IN (?)", userIDs)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR employee_id LIKE ?",
			like, like, like, like)
	}

	order := "id ASC"
	if column, ok := sortableUserColumns[q.Sort]; ok {
		direction := "ASC"
		if q.Direction == "desc" || q.Direction == "DESC" {
			direction = "DESC"
		}
		order = column + " " + direction
	}

	var total int
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var users []User
	if err := query.Order(order).Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}

	list := make([]UserInfo, 0, len(users))
	for i := range users {
		list = append(list, infoOf(&users[i]))
	}
	return &UserList{List: list, Total: uint64(total)}, nil
}

// UserDetail returns the user with its resolved roles and permission names. Users
// may always read themselves, reading others needs user.view.
func (m *UserManager) UserDetail(id types.ID, sec *session.Context) (*UserDetail, error) {
	if id != sec.Identity.ID && !sec.Authorized("user.view") {
		return nil, bizerror.ErrForbidden
	}

	user := User{}
	db := m.dataSource.GormDB()
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}

	authorities, err := domain.LoadAuthoritiesFunc(m.dataSource, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{
		UserInfo: infoOf(&user), RoleIDs: authorities.RoleIDs, Permissions: authorities.Permissions,
	}, nil
}
