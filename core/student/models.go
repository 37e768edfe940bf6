package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryaedu/tutor/core"
)

var newIDFunc = newID // mockable

// newID returns "STU" followed by 8 upper-case hex characters.
func newID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "STU" + strings.ToUpper(hex[:8])
}

type Student struct {
	ID           string    `json:"student_id"`
	Name         string    `json:"name"`
	Mobile       string    `json:"mobile_no"`
	CollegeName  string    `json:"college_name"`
	Address1     string    `json:"address_1"`
	Address2     string    `json:"address_2"`
	Address3     string    `json:"address_3"`
	Address4     string    `json:"address_4"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PinCode      string    `json:"pin_code"`
	DOB          string    `json:"dob"` // YYYY-MM-DD
	StreamID     string    `json:"stream_id"`
	ClassID      string    `json:"class_id"`
	VideoEnabled bool      `json:"video_enabled"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	OTPCode      string    `json:"-"`
	OTPExpiry    time.Time `json:"-"`
	OTPAttempts  int       `json:"-"` // failed verifications of the current code
	LastLogin    time.Time `json:"last_login"` // UTC
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC

	// taxonomy names; read-only
	StreamName string `json:"stream_name,omitempty"`
	ClassName  string `json:"class_name,omitempty"`
}

// HasPassword reports whether the student completed self-registration.
func (s *Student) HasPassword() bool { return len(s.PasswordHash) > 0 }

func (s *Student) clearOTP() {
	s.OTPCode = ""
	s.OTPExpiry = time.Time{}
	s.OTPAttempts = 0
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

// Profile holds the admin-editable fields of a Student.
type Profile struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Mobile      string `json:"mobile_no" validate:"required,mobile"`
	CollegeName string `json:"college_name" validate:"max=200"`
	Address1    string `json:"address_1" validate:"max=200"`
	Address2    string `json:"address_2" validate:"max=200"`
	Address3    string `json:"address_3" validate:"max=200"`
	Address4    string `json:"address_4" validate:"max=200"`
	City        string `json:"city" validate:"max=100"`
	State       string `json:"state" validate:"max=100"`
	PinCode     string `json:"pin_code" validate:"omitempty,numeric,len=6"`
	DOB         string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	StreamID    string `json:"stream_id" validate:"required"`
	ClassID     string `json:"class_id" validate:"required"`
}

func (p *Profile) clean() {
	p.Name = core.CleanString(p.Name)
	p.Mobile = core.CleanString(p.Mobile)
	p.CollegeName = core.CleanString(p.CollegeName)
	p.Address1 = core.CleanString(p.Address1)
	p.Address2 = core.CleanString(p.Address2)
	p.Address3 = core.CleanString(p.Address3)
	p.Address4 = core.CleanString(p.Address4)
	p.City = core.CleanString(p.City)
	p.State = core.CleanString(p.State)
	p.PinCode = core.CleanString(p.PinCode)
	p.DOB = core.CleanString(p.DOB)
	p.StreamID = core.CleanString(p.StreamID)
	p.ClassID = core.CleanString(p.ClassID)
}

func (p Profile) applyTo(s *Student) {
	s.Name = p.Name
	s.Mobile = p.Mobile
	s.CollegeName = p.CollegeName
	s.Address1 = p.Address1
	s.Address2 = p.Address2
	s.Address3 = p.Address3
	s.Address4 = p.Address4
	s.City = p.City
	s.State = p.State
	s.PinCode = p.PinCode
	s.DOB = p.DOB
	s.StreamID = p.StreamID
	s.ClassID = p.ClassID
}

// NewStudent contains information needed to provision a Student.
type NewStudent struct {
	Profile
	VideoEnabled *bool `json:"video_enabled"` // defaults to true
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Profile.clean()
	return validate.Struct(ns)
}

type UpdateStudent struct {
	Profile
	VideoEnabled bool `json:"video_enabled"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Profile.clean()
	return validate.Struct(us)
}

type SetVideoAccess struct {
	VideoEnabled bool `json:"video_enabled"`
}

type GetFilter struct {
	ID         string
	Mobile     string
	ActiveOnly bool
}

// QueryFilter is ANDed. Search does a case-insensitive match on name, mobile or student id.
type QueryFilter struct {
	Search          string
	StreamID        string
	ClassID         string
	IncludeInactive bool
	Ordering        []core.DBOrdering
}
