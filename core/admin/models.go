package admin

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryaedu/tutor/core"
)

type Admin struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (a *Admin) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Admin) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// NewAdmin contains information needed to create a new Admin.
type NewAdmin struct {
	Username        string `json:"username" validate:"required,min=3,alphanum_"`
	Email           string `json:"email" validate:"omitempty,portal_email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAdmin) Validate(validate *validator.Validate) error {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	return validate.Struct(na)
}

// ChangePassword is submitted from the admin settings screen.
type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=NewPassword"`

	// set by the service; used by the password similarity policy
	Username string `json:"-"`
	Email    string `json:"-"`
}

func (cp *ChangePassword) Validate(validate *validator.Validate, adm Admin) error {
	cp.Username = adm.Username
	cp.Email = adm.Email
	return validate.Struct(cp)
}

type UpdateEmail struct {
	Email string `json:"email" validate:"required,portal_email"`
}

func (ue *UpdateEmail) Validate(validate *validator.Validate) error {
	ue.Email = core.CleanString(ue.Email, true /* lower */)
	return validate.Struct(ue)
}

type ResetPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type GetFilter struct {
	Username   string
	Email      string
	ActiveOnly bool
}
