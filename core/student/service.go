package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/taxonomy"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	ErrMobileExists = errors.New("a student with this mobile number already exists")
)

// MaxOTPAttempts is the number of wrong codes a one-time password survives.
const MaxOTPAttempts = 5

type (
	Repository interface {
		// CreateStudent returns a *core.DuplicateError when the mobile number is taken
		// and core.ErrIDTaken when s.ID is.
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		// UpdateStudent persists every mutable column, credentials included.
		UpdateStudent(ctx context.Context, s Student) (Student, error)
	}

	// RefChecker validates taxonomy references.
	RefChecker interface {
		Exists(ctx context.Context, kind taxonomy.Kind, id string) (bool, error)
	}

	Service struct {
		repo Repository
		refs RefChecker
	}
)

func NewService(repo Repository, refs RefChecker) *Service {
	return &Service{repo: repo, refs: refs}
}

func (svc *Service) checkRefs(ctx context.Context, p Profile) error {
	var flds []core.FieldError
	for _, r := range []struct {
		field string
		kind  taxonomy.Kind
		id    string
	}{
		{"stream_id", taxonomy.Stream, p.StreamID},
		{"class_id", taxonomy.Class, p.ClassID},
	} {
		ok, err := svc.refs.Exists(ctx, r.kind, r.id)
		if err != nil {
			return errors.Wrapf(err, "checking %s reference", r.kind)
		}
		if !ok {
			flds = append(flds, core.FieldError{Field: r.field, Error: "unknown " + r.kind.String()})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (svc *Service) checkMobile(ctx context.Context, mobile, exclID string) error {
	s, err := svc.repo.GetStudent(ctx, GetFilter{Mobile: mobile})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "checking mobile uniqueness")
	}
	if s.ID == exclID {
		return nil
	}
	return core.NewDuplicateError("mobile_no", ErrMobileExists.Error())
}

// Create expects ns to be validated.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkRefs(ctx, ns.Profile); err != nil {
		return Student{}, err
	}
	if err := svc.checkMobile(ctx, ns.Mobile, ""); err != nil {
		return Student{}, err
	}

	enabled := true
	if ns.VideoEnabled != nil {
		enabled = *ns.VideoEnabled
	}
	now := time.Now().UTC()
	s := Student{
		VideoEnabled: enabled,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ns.Profile.applyTo(&s)
	for attempt := 1; ; attempt++ {
		s.ID = newIDFunc()
		_, err := svc.repo.CreateStudent(ctx, s)
		if err == nil {
			break
		}
		if errors.Cause(err) != core.ErrIDTaken || attempt == core.MaxIDAttempts {
			return Student{}, err
		}
	}
	return svc.Get(ctx, s.ID)
}

// Get returns a student, active or not.
func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: core.CleanString(id)})
}

// GetByMobile returns the active student registered with mobile.
func (svc *Service) GetByMobile(ctx context.Context, mobile string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{Mobile: core.CleanString(mobile), ActiveOnly: true})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter)
}

// Update expects us to be validated.
func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err = svc.checkRefs(ctx, us.Profile); err != nil {
		return Student{}, err
	}
	if err = svc.checkMobile(ctx, us.Mobile, s.ID); err != nil {
		return Student{}, err
	}

	us.Profile.applyTo(&s)
	s.VideoEnabled = us.VideoEnabled
	return svc.save(ctx, s)
}

// Deactivate soft-deletes a student. Students are never hard-deleted.
func (svc *Service) Deactivate(ctx context.Context, id string) error {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	s.IsActive = false
	_, err = svc.save(ctx, s)
	return err
}

func (svc *Service) SetVideoEnabled(ctx context.Context, id string, enabled bool) (Student, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}
	s.VideoEnabled = enabled
	return svc.save(ctx, s)
}

func (svc *Service) SetPassword(ctx context.Context, s Student, pwd string) (Student, error) {
	if err := s.SetPassword(pwd); err != nil {
		return Student{}, errors.Wrap(err, "hashing password")
	}
	s.clearOTP()
	return svc.save(ctx, s)
}

func (svc *Service) SetLastLogin(ctx context.Context, s Student) (Student, error) {
	s.LastLogin = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) SetOTP(ctx context.Context, s Student, code string, expiry time.Time) (Student, error) {
	s.OTPCode = code
	s.OTPExpiry = expiry.UTC()
	s.OTPAttempts = 0
	return svc.repo.UpdateStudent(ctx, s)
}

// FailOTP counts a wrong code against the current OTP. The code is dropped after MaxOTPAttempts failures.
func (svc *Service) FailOTP(ctx context.Context, s Student) (Student, error) {
	s.OTPAttempts++
	if s.OTPAttempts >= MaxOTPAttempts {
		s.clearOTP()
	}
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) save(ctx context.Context, s Student) (Student, error) {
	s.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateStudent(ctx, s); err != nil {
		return Student{}, err
	}
	return svc.Get(ctx, s.ID)
}
