package auth

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

type Role string

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleStudent }

// Identity is the authenticated principal attached to a session.
type Identity struct {
	Role     Role   `json:"role"`
	ID       string `json:"id"` // admin username or student id
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile_no,omitempty"`
	StreamID string `json:"stream_id,omitempty"`
	ClassID  string `json:"class_id,omitempty"`
}

func (id Identity) IsAdmin() bool   { return id.Role == RoleAdmin }
func (id Identity) IsStudent() bool { return id.Role == RoleStudent }

type AdminLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StudentLogin struct {
	Mobile   string `json:"mobile_no"`
	Password string `json:"password"`
}

type Registration struct {
	Mobile          string `json:"mobile_no"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type OTPRequest struct {
	Mobile string `json:"mobile_no"`
}

type OTPPasswordReset struct {
	Mobile          string `json:"mobile_no"`
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}
