package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/mafunzo/core"
)

// Role claims. A fresh account carries no role until the role-selection step.
const (
	RoleProfessor = "professor"
	RoleStudent   = "student"
)

var Roles = []Role{
	{Name: "Professor", Value: RoleProfessor},
	{Name: "Student", Value: RoleStudent},
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int         `json:"id" db:"id"`
	FirstName    null.String `json:"first_name" db:"first_name"`
	LastName     null.String `json:"last_name" db:"last_name"`
	Username     string      `json:"username" db:"username"`
	Email        string      `json:"email" db:"email"`
	Role         string      `json:"role" db:"role"` // professor | student | "" (unset)
	IsActive     bool        `json:"is_active" db:"is_active"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time   `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsProfessor() bool { return u.Role == RoleProfessor }
func (u *User) IsStudent() bool   { return u.Role == RoleStudent }
func (u *User) HasRole() bool     { return u.Role != "" }

// DisplayName derives a presentable name: "First Last" when both parts are set,
// else the local part of the email, else a "Student {id}" placeholder.
func (u *User) DisplayName() string {
	if u.FirstName.Valid && u.LastName.Valid && u.FirstName.String != "" && u.LastName.String != "" {
		return u.FirstName.String + " " + u.LastName.String
	}
	if u.Email != "" {
		if at := strings.Index(u.Email, "@"); at > 0 {
			return u.Email[:at]
		}
	}
	return fmt.Sprintf("Student %d", u.ID)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username" validate:"required,min=6,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// RoleSelection defines the one-time role-selection payload.
type RoleSelection struct {
	Role string `json:"role" validate:"required,oneof=professor student"`
}

func (rs *RoleSelection) Validate(validate *validator.Validate) error {
	rs.Role = core.CleanString(rs.Role, true /* lower */)
	return validate.Struct(rs)
}

// GetFilter filters single-User lookups; fields are AND'ed when set,
// UsernameOrEmail values are OR'ed.
type GetFilter struct {
	ID              int
	UsernameOrEmail []string
}

func nullString(s string) null.String { return null.NewString(s, s != "") }
