// Package auth authenticates administrators and students and lets students
// set their password, either on first registration or through an SMS one-time code.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/student"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotRegistered      = errors.New("mobile number not registered, please contact the admin")
	ErrAccessDisabled     = errors.New("video access is disabled for this account, please contact the admin")
	ErrPasswordNotSet     = errors.New("password not set, please register first")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP has expired, please request a new one")

	errFillAllFields = "please fill in all fields"
	errMobileFormat  = "invalid mobile number format"
)

type (
	AdminStore interface {
		GetActiveByUsername(ctx context.Context, uname string) (admin.Admin, error)
		SetLastLogin(ctx context.Context, adm admin.Admin) (admin.Admin, error)
	}

	StudentStore interface {
		GetByMobile(ctx context.Context, mobile string) (student.Student, error)
		SetLastLogin(ctx context.Context, s student.Student) (student.Student, error)
		SetPassword(ctx context.Context, s student.Student, pwd string) (student.Student, error)
		SetOTP(ctx context.Context, s student.Student, code string, expiry time.Time) (student.Student, error)
		FailOTP(ctx context.Context, s student.Student) (student.Student, error)
	}

	// Gate is the single entry point for authentication.
	Gate struct {
		admins   AdminStore
		students StudentStore
		sms      core.SMSService
		logger   core.Logger
		appName  string
		otpTTL   time.Duration

		nowFunc func() time.Time      // mockable
		otpFunc func() (string, error) // mockable
	}
)

func NewGate(conf *core.Config, admins AdminStore, students StudentStore, sms core.SMSService, logger core.Logger) *Gate {
	return &Gate{
		admins:   admins,
		students: students,
		sms:      sms,
		logger:   logger,
		appName:  conf.AppName,
		otpTTL:   conf.OTPExpirationDelta,
		nowFunc:  time.Now,
		otpFunc:  newOTP,
	}
}

func AdminIdentity(adm admin.Admin) Identity {
	return Identity{Role: RoleAdmin, ID: adm.Username, Name: adm.Username, Username: adm.Username, Email: adm.Email}
}

func StudentIdentity(s student.Student) Identity {
	return Identity{
		Role:     RoleStudent,
		ID:       s.ID,
		Name:     s.Name,
		Mobile:   s.Mobile,
		StreamID: s.StreamID,
		ClassID:  s.ClassID,
	}
}

func (g *Gate) AuthenticateAdmin(ctx context.Context, uname, pwd string) (Identity, error) {
	adm, err := g.admins.GetActiveByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) == admin.ErrNotFound {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, errors.Wrap(err, "finding admin by username")
	}
	if err = adm.CheckPassword(pwd); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	if adm, err = g.admins.SetLastLogin(ctx, adm); err != nil {
		return Identity{}, errors.Wrap(err, "setting lastLogin")
	}
	return AdminIdentity(adm), nil
}

// AuthenticateStudent checks, in order: mobile format, registration, video access, password set, password.
func (g *Gate) AuthenticateStudent(ctx context.Context, mobile, pwd string) (Identity, error) {
	mobile = core.CleanString(mobile)
	if !core.IsValidMobile(mobile) {
		return Identity{}, mobileFormatError()
	}

	s, err := g.students.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Identity{}, ErrNotRegistered
		}
		return Identity{}, errors.Wrap(err, "finding student by mobile")
	}
	if !s.VideoEnabled {
		return Identity{}, ErrAccessDisabled
	}
	if !s.HasPassword() {
		return Identity{}, ErrPasswordNotSet
	}
	if err = s.CheckPassword(pwd); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	if s, err = g.students.SetLastLogin(ctx, s); err != nil {
		return Identity{}, errors.Wrap(err, "setting lastLogin")
	}
	return StudentIdentity(s), nil
}

// RegisterStudent sets the password of a student provisioned by an admin.
// Registering again overwrites the previous password.
func (g *Gate) RegisterStudent(ctx context.Context, mobile, pwd, confirm string) error {
	mobile = core.CleanString(mobile)
	if mobile == "" || pwd == "" || confirm == "" {
		return core.NewValidationError(errors.New(errFillAllFields))
	}
	if !core.IsValidMobile(mobile) {
		return mobileFormatError()
	}
	if pwd != confirm {
		return ErrPasswordMismatch
	}

	s, err := g.students.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return ErrNotRegistered
		}
		return errors.Wrap(err, "finding student by mobile")
	}
	if _, err = g.students.SetPassword(ctx, s, pwd); err != nil {
		return errors.Wrap(err, "setting student password")
	}
	return nil
}

// RequestOTP stores a fresh one-time code on the student and texts it.
// A gateway failure is logged and reported through sent; it never fails the request.
func (g *Gate) RequestOTP(ctx context.Context, mobile string) (sent bool, err error) {
	mobile = core.CleanString(mobile)
	if !core.IsValidMobile(mobile) {
		return false, mobileFormatError()
	}

	s, err := g.students.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return false, ErrNotRegistered
		}
		return false, errors.Wrap(err, "finding student by mobile")
	}

	code, err := g.otpFunc()
	if err != nil {
		return false, errors.Wrap(err, "generating OTP")
	}
	if _, err = g.students.SetOTP(ctx, s, code, g.nowFunc().Add(g.otpTTL)); err != nil {
		return false, errors.Wrap(err, "storing OTP")
	}

	msg := core.SMSMessage{To: mobile, Body: fmt.Sprintf("Your %s OTP is: %s", g.appName, code)}
	if err = g.sms.Send(ctx, msg); err != nil {
		g.logger.Error(fmt.Sprintf("sending OTP to %s: %v", s.ID, err), err)
		return false, nil
	}
	return true, nil
}

// ResetStudentPassword sets a new password once the one-time code is verified.
// The code is single use and is dropped after student.MaxOTPAttempts wrong guesses.
func (g *Gate) ResetStudentPassword(ctx context.Context, mobile, otp, pwd, confirm string) error {
	mobile, otp = core.CleanString(mobile), core.CleanString(otp)
	if mobile == "" || otp == "" || pwd == "" || confirm == "" {
		return core.NewValidationError(errors.New(errFillAllFields))
	}
	if !core.IsValidMobile(mobile) {
		return mobileFormatError()
	}
	if pwd != confirm {
		return ErrPasswordMismatch
	}

	s, err := g.students.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return ErrNotRegistered
		}
		return errors.Wrap(err, "finding student by mobile")
	}
	if s.OTPCode == "" {
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(s.OTPCode), []byte(otp)) == 0 {
		if _, err = g.students.FailOTP(ctx, s); err != nil {
			return errors.Wrap(err, "counting failed OTP")
		}
		return ErrInvalidOTP
	}
	if g.nowFunc().After(s.OTPExpiry) {
		return ErrOTPExpired
	}
	if _, err = g.students.SetPassword(ctx, s, pwd); err != nil {
		return errors.Wrap(err, "setting student password")
	}
	return nil
}

func mobileFormatError() error {
	return core.NewValidationError(nil, core.FieldError{Field: "mobile_no", Error: errMobileFormat})
}

// newOTP returns a random 6-digit code.
func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
