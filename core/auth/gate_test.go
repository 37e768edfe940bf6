package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/student"
)

type adminStoreMock struct {
	admins map[string]admin.Admin
}

func (m *adminStoreMock) GetActiveByUsername(_ context.Context, uname string) (admin.Admin, error) {
	adm, ok := m.admins[core.CleanString(uname, true /* lower */)]
	if !ok || !adm.IsActive {
		return admin.Admin{}, admin.ErrNotFound
	}
	return adm, nil
}

func (m *adminStoreMock) SetLastLogin(_ context.Context, adm admin.Admin) (admin.Admin, error) {
	adm.LastLogin = time.Now().UTC()
	m.admins[adm.Username] = adm
	return adm, nil
}

type studentStoreMock struct {
	students map[string]student.Student // by mobile
}

func (m *studentStoreMock) GetByMobile(_ context.Context, mobile string) (student.Student, error) {
	s, ok := m.students[mobile]
	if !ok || !s.IsActive {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (m *studentStoreMock) SetLastLogin(_ context.Context, s student.Student) (student.Student, error) {
	s.LastLogin = time.Now().UTC()
	m.students[s.Mobile] = s
	return s, nil
}

func (m *studentStoreMock) SetPassword(_ context.Context, s student.Student, pwd string) (student.Student, error) {
	if err := s.SetPassword(pwd); err != nil {
		return student.Student{}, err
	}
	s.OTPCode, s.OTPExpiry, s.OTPAttempts = "", time.Time{}, 0
	m.students[s.Mobile] = s
	return s, nil
}

func (m *studentStoreMock) SetOTP(_ context.Context, s student.Student, code string, expiry time.Time) (student.Student, error) {
	s.OTPCode, s.OTPExpiry, s.OTPAttempts = code, expiry, 0
	m.students[s.Mobile] = s
	return s, nil
}

func (m *studentStoreMock) FailOTP(_ context.Context, s student.Student) (student.Student, error) {
	s.OTPAttempts++
	if s.OTPAttempts >= student.MaxOTPAttempts {
		s.OTPCode, s.OTPExpiry, s.OTPAttempts = "", time.Time{}, 0
	}
	m.students[s.Mobile] = s
	return s, nil
}

type smsMock struct {
	sent []core.SMSMessage
	err  error
}

func (m *smsMock) Send(_ context.Context, msg core.SMSMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type loggerMock struct{ errors []string }

func (l *loggerMock) Debug(string, ...interface{}) {}
func (l *loggerMock) Info(string, ...interface{})  {}
func (l *loggerMock) Warn(string, ...interface{})  {}
func (l *loggerMock) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *loggerMock) Fatal(string, ...interface{}) {}

type gateFixture struct {
	gate     *Gate
	students *studentStoreMock
	sms      *smsMock
	logger   *loggerMock
}

func newGateFixture(t *testing.T) gateFixture {
	conf := core.NewTestConfig()

	adm := admin.Admin{Username: "admin", Email: "admin@tutorial.com", IsActive: true}
	require.NoError(t, adm.SetPassword("admin123"))
	inactive := admin.Admin{Username: "ghost", IsActive: false}
	require.NoError(t, inactive.SetPassword("admin123"))

	registered := student.Student{
		ID: "STU00000001", Name: "Ravi", Mobile: "9876543210", StreamID: "S1", ClassID: "C1",
		VideoEnabled: true, IsActive: true,
	}
	require.NoError(t, registered.SetPassword("Pass@123"))
	unregistered := student.Student{ID: "STU00000002", Name: "Asha", Mobile: "9123456789", VideoEnabled: true, IsActive: true}
	disabled := student.Student{ID: "STU00000003", Name: "Kiran", Mobile: "8123456789", VideoEnabled: false, IsActive: true}
	require.NoError(t, disabled.SetPassword("Pass@123"))
	deactivated := student.Student{ID: "STU00000004", Name: "Old", Mobile: "7123456789", VideoEnabled: true, IsActive: false}
	require.NoError(t, deactivated.SetPassword("Pass@123"))

	students := &studentStoreMock{students: map[string]student.Student{
		registered.Mobile:   registered,
		unregistered.Mobile: unregistered,
		disabled.Mobile:     disabled,
		deactivated.Mobile:  deactivated,
	}}
	sms := new(smsMock)
	logger := new(loggerMock)
	admins := &adminStoreMock{admins: map[string]admin.Admin{adm.Username: adm, inactive.Username: inactive}}

	gate := NewGate(conf, admins, students, sms, logger)
	gate.otpFunc = func() (string, error) { return "123456", nil }
	return gateFixture{gate: gate, students: students, sms: sms, logger: logger}
}

func TestGate_AuthenticateAdmin(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown user", uname: "nobody", pwd: "admin123", wantErr: ErrInvalidCredentials},
		{name: "wrong password", uname: "admin", pwd: "nope", wantErr: ErrInvalidCredentials},
		{name: "inactive admin", uname: "ghost", pwd: "admin123", wantErr: ErrInvalidCredentials},
		{name: "success (case-insensitive username)", uname: " ADMIN ", pwd: "admin123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.gate.AuthenticateAdmin(context.Background(), tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, RoleAdmin, id.Role)
			assert.Equal(t, "admin", id.ID)
			assert.Equal(t, "admin@tutorial.com", id.Email)
		})
	}
}

func TestGate_AuthenticateStudent(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name        string
		mobile      string
		pwd         string
		wantErr     error
		wantInvalid bool
	}{
		{name: "bad format", mobile: "12345", pwd: "x", wantInvalid: true},
		{name: "starts with 5", mobile: "5876543210", pwd: "x", wantInvalid: true},
		{name: "not registered", mobile: "6000000000", pwd: "x", wantErr: ErrNotRegistered},
		{name: "deactivated", mobile: "7123456789", pwd: "Pass@123", wantErr: ErrNotRegistered},
		{name: "access disabled", mobile: "8123456789", pwd: "Pass@123", wantErr: ErrAccessDisabled},
		{name: "password not set", mobile: "9123456789", pwd: "Pass@123", wantErr: ErrPasswordNotSet},
		{name: "wrong password", mobile: "9876543210", pwd: "nope", wantErr: ErrInvalidCredentials},
		{name: "success", mobile: "9876543210", pwd: "Pass@123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.gate.AuthenticateStudent(context.Background(), tt.mobile, tt.pwd)
			switch {
			case tt.wantInvalid:
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "expected *core.ValidationError, got %v", err)
				assert.Equal(t, "mobile_no", vErr.Fields[0].Field)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, RoleStudent, id.Role)
				assert.Equal(t, "STU00000001", id.ID)
				assert.Equal(t, "S1", id.StreamID)
				assert.Equal(t, "C1", id.ClassID)
			}
		})
	}
}

func TestGate_RegisterStudent(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		mobile      string
		pwd         string
		confirm     string
		wantErr     error
		wantInvalid bool
	}{
		{name: "missing fields", mobile: "9123456789", pwd: "", confirm: "", wantInvalid: true},
		{name: "bad format", mobile: "912345", pwd: "a", confirm: "a", wantInvalid: true},
		{name: "mismatch before lookup", mobile: "6000000000", pwd: "a", confirm: "b", wantErr: ErrPasswordMismatch},
		{name: "unknown mobile", mobile: "6000000000", pwd: "Pass@123", confirm: "Pass@123", wantErr: ErrNotRegistered},
		{name: "success", mobile: "9123456789", pwd: "Pass@123", confirm: "Pass@123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.gate.RegisterStudent(ctx, tt.mobile, tt.pwd, tt.confirm)
			switch {
			case tt.wantInvalid:
				var vErr *core.ValidationError
				assert.True(t, errors.As(err, &vErr), "expected *core.ValidationError, got %v", err)
			default:
				assert.Equal(t, tt.wantErr, err)
			}
		})
	}

	// registration then login yields the provisioned student
	id, err := f.gate.AuthenticateStudent(ctx, "9123456789", "Pass@123")
	require.NoError(t, err)
	assert.Equal(t, "STU00000002", id.ID)
}

func TestGate_OTPFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown mobile", func(t *testing.T) {
		f := newGateFixture(t)
		_, err := f.gate.RequestOTP(ctx, "6000000000")
		assert.Equal(t, ErrNotRegistered, err)
		assert.Empty(t, f.sms.sent)
	})

	t.Run("gateway failure is not an error", func(t *testing.T) {
		f := newGateFixture(t)
		f.sms.err = core.NewExternalServiceError("fast2sms", errors.New("boom"))
		sent, err := f.gate.RequestOTP(ctx, "9876543210")
		require.NoError(t, err)
		assert.False(t, sent)
		assert.Len(t, f.logger.errors, 1)
		assert.Equal(t, "123456", f.students.students["9876543210"].OTPCode)
	})

	t.Run("reset with OTP", func(t *testing.T) {
		f := newGateFixture(t)
		sent, err := f.gate.RequestOTP(ctx, "9876543210")
		require.NoError(t, err)
		assert.True(t, sent)
		require.Len(t, f.sms.sent, 1)
		assert.Equal(t, "9876543210", f.sms.sent[0].To)
		assert.Equal(t, "Your Arya Educations OTP is: 123456", f.sms.sent[0].Body)

		assert.Equal(t, ErrInvalidOTP, f.gate.ResetStudentPassword(ctx, "9876543210", "000000", "N3w@pass", "N3w@pass"))
		assert.Equal(t, ErrPasswordMismatch, f.gate.ResetStudentPassword(ctx, "9876543210", "123456", "N3w@pass", "other"))
		require.NoError(t, f.gate.ResetStudentPassword(ctx, "9876543210", "123456", "N3w@pass", "N3w@pass"))

		// single use
		assert.Equal(t, ErrInvalidOTP, f.gate.ResetStudentPassword(ctx, "9876543210", "123456", "N3w@pass", "N3w@pass"))

		_, err = f.gate.AuthenticateStudent(ctx, "9876543210", "N3w@pass")
		assert.NoError(t, err)
	})

	t.Run("code dropped after too many wrong guesses", func(t *testing.T) {
		f := newGateFixture(t)
		_, err := f.gate.RequestOTP(ctx, "9876543210")
		require.NoError(t, err)

		for i := 0; i < student.MaxOTPAttempts-1; i++ {
			assert.Equal(t, ErrInvalidOTP, f.gate.ResetStudentPassword(ctx, "9876543210", "000000", "N3w@pass", "N3w@pass"))
		}
		assert.Equal(t, student.MaxOTPAttempts-1, f.students.students["9876543210"].OTPAttempts)
		assert.Equal(t, "123456", f.students.students["9876543210"].OTPCode)

		assert.Equal(t, ErrInvalidOTP, f.gate.ResetStudentPassword(ctx, "9876543210", "000000", "N3w@pass", "N3w@pass"))
		assert.Empty(t, f.students.students["9876543210"].OTPCode)
		assert.Equal(t, ErrInvalidOTP, f.gate.ResetStudentPassword(ctx, "9876543210", "123456", "N3w@pass", "N3w@pass"))

		_, err = f.gate.AuthenticateStudent(ctx, "9876543210", "Pass@123")
		assert.NoError(t, err)

		// a new code starts a fresh count
		_, err = f.gate.RequestOTP(ctx, "9876543210")
		require.NoError(t, err)
		assert.Zero(t, f.students.students["9876543210"].OTPAttempts)
		assert.NoError(t, f.gate.ResetStudentPassword(ctx, "9876543210", "123456", "N3w@pass", "N3w@pass"))
	})

	t.Run("expired OTP", func(t *testing.T) {
		f := newGateFixture(t)
		_, err := f.gate.RequestOTP(ctx, "9876543210")
		require.NoError(t, err)

		f.gate.nowFunc = func() time.Time { return time.Now().Add(f.gate.otpTTL + time.Minute) }
		assert.Equal(t, ErrOTPExpired, f.gate.ResetStudentPassword(ctx, "9876543210", "123456", "N3w@pass", "N3w@pass"))
	})
}

func TestNewOTP(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := newOTP()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}
