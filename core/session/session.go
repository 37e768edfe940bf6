// Package session holds the per-client navigation state: the current screen,
// the authenticated identity and the inactivity clock.
package session

import (
	"time"

	"github.com/aryaedu/tutor/core/auth"
)

// Screens
const (
	Welcome             Screen = "welcome"
	LoginSelection      Screen = "login_selection"
	AdminLogin          Screen = "admin_login"
	StudentLogin        Screen = "student_login"
	StudentRegistration Screen = "student_registration"
	AdminDashboard      Screen = "admin_dashboard"
	StudentInterface    Screen = "student_interface"
)

var (
	screens = map[Screen]struct{}{
		Welcome:             {},
		LoginSelection:      {},
		AdminLogin:          {},
		StudentLogin:        {},
		StudentRegistration: {},
		AdminDashboard:      {},
		StudentInterface:    {},
	}

	// guarded screens and the role they require
	guards = map[Screen]auth.Role{
		AdminDashboard:   auth.RoleAdmin,
		StudentInterface: auth.RoleStudent,
	}

	homes = map[auth.Role]Screen{
		auth.RoleAdmin:   AdminDashboard,
		auth.RoleStudent: StudentInterface,
	}
)

type Screen string

func (s Screen) Valid() bool {
	_, ok := screens[s]
	return ok
}

// Session is owned by one client. It is never persisted.
type Session struct {
	ID           string            `json:"-"`
	Screen       Screen            `json:"screen"`
	Identity     *auth.Identity    `json:"identity,omitempty"`
	LoginTime    time.Time         `json:"login_time,omitempty"`
	LastActivity time.Time         `json:"last_activity,omitempty"`
	LogoutArmed  bool              `json:"logout_armed"`
	Selection    map[string]string `json:"selection,omitempty"` // transient screen state, e.g. the video being watched
	CreatedAt    time.Time         `json:"-"`
	SeenAt       time.Time         `json:"-"`

	// Generation changes on every login and clear. The store rejects copies of an older generation.
	Generation uint64 `json:"-"`
}

func newSession(id string, now time.Time) Session {
	return Session{ID: id, Screen: Welcome, CreatedAt: now, SeenAt: now}
}

func (s *Session) Authenticated() bool { return s.Identity != nil }

func (s *Session) Role() auth.Role {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

// Login attaches id to the session and moves it to the role home screen.
func (s *Session) Login(id auth.Identity, now time.Time) {
	s.Identity = &id
	s.Generation++
	s.LoginTime = now
	s.LastActivity = now
	s.LogoutArmed = false
	s.Selection = nil
	s.Screen = homes[id.Role]
}

// Clear drops everything but the session id.
func (s *Session) Clear() {
	*s = Session{ID: s.ID, Screen: Welcome, CreatedAt: s.CreatedAt, SeenAt: s.SeenAt, Generation: s.Generation + 1}
}

// RequestLogout arms the logout confirmation on the first call and clears the session on the second.
// It reports whether the session was cleared.
func (s *Session) RequestLogout() bool {
	if !s.LogoutArmed {
		s.LogoutArmed = true
		return false
	}
	s.Clear()
	return true
}

func (s *Session) CancelLogout() { s.LogoutArmed = false }

// Registered moves the client to the student login screen after a successful self-registration.
func (s *Session) Registered() { s.Screen = StudentLogin }

func (s *Session) Select(key, value string) {
	if s.Selection == nil {
		s.Selection = make(map[string]string)
	}
	s.Selection[key] = value
}

func (s *Session) Unselect(key string) { delete(s.Selection, key) }

func (s Session) clone() Session {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	if s.Selection != nil {
		sel := make(map[string]string, len(s.Selection))
		for k, v := range s.Selection {
			sel[k] = v
		}
		s.Selection = sel
	}
	return s
}
