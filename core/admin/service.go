package admin

import (
	"context"
	"net/mail"
	texttmpl "text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
)

var (
	// errors
	ErrNotFound        = errors.New("admin not found")
	ErrUsernameExists  = errors.New("an admin with this username already exists")
	ErrCurrentPassword = errors.New("current password is incorrect")

	passwordResetTmpl = texttmpl.Must(texttmpl.New("password_reset").Parse(
		`Hello {{.Data.Username}},

You're receiving this email because you requested a password reset for your {{.AppName}} admin account.

Please go to the following page and choose a new password:
{{.FrontendBaseURL}}/admin/password-reset-confirm?uid={{.Data.UID}}&token={{.Data.Token}}

If you didn't request this, you can safely ignore this email.

The {{.AppName}} team
`))
)

type (
	Repository interface {
		CountAdmins(ctx context.Context) (int, error)
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
		GetAdmin(ctx context.Context, filter GetFilter) (Admin, error)
		// UpdateAdmin persists Email, IsActive, PasswordHash and LastLogin.
		UpdateAdmin(ctx context.Context, adm Admin) (Admin, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		tokens   *tokenGenerator
	}
)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
		tokens:   newTokenGenerator([]byte(conf.SecretKey), conf.PasswordResetTimeoutDelta),
	}
}

// EnsureDefault seeds the first admin when none exists yet.
// The default credential does not go through the password policy; operators must rotate it.
func (svc *Service) EnsureDefault(ctx context.Context, dflt core.DefaultAdminConfig) (bool, error) {
	count, err := svc.repo.CountAdmins(ctx)
	if err != nil {
		return false, errors.Wrap(err, "counting admins")
	}
	if count > 0 {
		return false, nil
	}

	adm := Admin{
		Username:  core.CleanString(dflt.Username, true /* lower */),
		Email:     core.CleanString(dflt.Email, true /* lower */),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err = adm.SetPassword(dflt.Password); err != nil {
		return false, errors.Wrap(err, "hashing default password")
	}
	if _, err = svc.repo.CreateAdmin(ctx, adm); err != nil {
		return false, errors.Wrap(err, "creating default admin")
	}
	return true, nil
}

// Create expects na to be validated.
func (svc *Service) Create(ctx context.Context, na NewAdmin) (Admin, error) {
	if _, err := svc.repo.GetAdmin(ctx, GetFilter{Username: na.Username}); err == nil {
		return Admin{}, core.NewDuplicateError("username", ErrUsernameExists.Error())
	} else if errors.Cause(err) != ErrNotFound {
		return Admin{}, errors.Wrap(err, "checking username uniqueness")
	}

	adm := Admin{
		Username:  na.Username,
		Email:     na.Email,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := adm.SetPassword(na.Password); err != nil {
		return Admin{}, err
	}
	return svc.repo.CreateAdmin(ctx, adm)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (Admin, error) {
	return svc.repo.GetAdmin(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetActiveByUsername(ctx context.Context, uname string) (Admin, error) {
	return svc.repo.GetAdmin(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */), ActiveOnly: true})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Admin, error) {
	return svc.repo.GetAdmin(ctx, GetFilter{Email: core.CleanString(email, true /* lower */), ActiveOnly: true})
}

func (svc *Service) SetLastLogin(ctx context.Context, adm Admin) (Admin, error) {
	adm.LastLogin = time.Now().UTC()
	return svc.repo.UpdateAdmin(ctx, adm)
}

// SetPassword bypasses the password policy. It is used by the admin CLI.
func (svc *Service) SetPassword(ctx context.Context, uname, pwd string) error {
	adm, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	if err = adm.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateAdmin(ctx, adm)
	return err
}

func (svc *Service) ChangePassword(ctx context.Context, uname string, cp ChangePassword) error {
	adm, err := svc.GetActiveByUsername(ctx, uname)
	if err != nil {
		return err
	}
	if err = cp.Validate(svc.validate, adm); err != nil {
		return err
	}
	if adm.CheckPassword(cp.CurrentPassword) != nil {
		return core.NewValidationError(ErrCurrentPassword, core.FieldError{
			Field: "current_password",
			Error: ErrCurrentPassword.Error(),
		})
	}
	if err = adm.SetPassword(cp.NewPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateAdmin(ctx, adm)
	return err
}

func (svc *Service) UpdateEmail(ctx context.Context, uname string, ue UpdateEmail) (Admin, error) {
	if err := ue.Validate(svc.validate); err != nil {
		return Admin{}, err
	}
	adm, err := svc.GetActiveByUsername(ctx, uname)
	if err != nil {
		return Admin{}, err
	}
	adm.Email = ue.Email
	return svc.repo.UpdateAdmin(ctx, adm)
}

// RequestPasswordReset mails a password reset link to the active admin owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	adm, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(adm)
	return nil
}

func (svc *Service) sendPasswordResetMail(adm Admin) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Address: adm.Email}},
		Subject:  "Password Reset",
		Template: passwordResetTmpl,
		TemplateData: struct {
			Username, UID, Token string
		}{
			Username: adm.Username,
			UID:      EncodeUID(adm),
			Token:    svc.tokens.makeToken(adm),
		},
	})
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	if err := rp.Validate(svc.validate); err != nil {
		return err
	}

	invalidLink := core.NewValidationError(errors.New("invalid or expired reset link"))
	uname, err := decodeUID(rp.UID)
	if err != nil {
		return invalidLink
	}
	adm, err := svc.GetActiveByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalidLink
		}
		return err
	}
	if err = svc.tokens.verifyToken(adm, rp.Token); err != nil {
		return invalidLink
	}

	if err = adm.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateAdmin(ctx, adm)
	return err
}
