package session

import (
	"errors"
	"sync"
	"time"

	"github.com/aryaedu/tutor/core/auth"
)

// Outcomes
const (
	OutcomeOK Outcome = iota
	OutcomeUnknownScreen
	OutcomeUnauthorized
	OutcomeExpired
)

// bounds of the admin-configurable inactivity timeout
const (
	MinTimeout = 15 * time.Minute
	MaxTimeout = 120 * time.Minute
)

var (
	ErrInvalidTransition = errors.New("invalid screen transition")
	ErrTimeoutRange      = errors.New("session timeout must be between 15 and 120 minutes")

	// button transitions between unauthenticated screens
	transitions = map[Screen][]Screen{
		Welcome:             {LoginSelection},
		LoginSelection:      {AdminLogin, StudentLogin, Welcome},
		AdminLogin:          {LoginSelection},
		StudentLogin:        {StudentRegistration, LoginSelection},
		StudentRegistration: {StudentLogin},
	}
)

type Outcome int

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnknownScreen:
		return "unknown_screen"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Router is the screen state machine.
type Router struct {
	mu      sync.RWMutex
	timeout time.Duration
}

func NewRouter(timeout time.Duration) *Router {
	return &Router{timeout: timeout}
}

func (r *Router) Timeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timeout
}

// SetTimeout changes the inactivity timeout of every session, including those already logged in.
func (r *Router) SetTimeout(d time.Duration) error {
	if d < MinTimeout || d > MaxTimeout {
		return ErrTimeoutRange
	}
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
	return nil
}

// Expired reports whether an authenticated session has been idle longer than the timeout.
func (r *Router) Expired(sess *Session, now time.Time) bool {
	return sess.Authenticated() && now.Sub(sess.LastActivity) > r.Timeout()
}

// Resolve decides which screen sess renders at now, mutating sess accordingly:
// an expired session is cleared, an authenticated one has its activity clock touched.
func (r *Router) Resolve(sess *Session, now time.Time) (Screen, Outcome) {
	if r.Expired(sess, now) {
		sess.Clear()
		return Welcome, OutcomeExpired
	}
	if sess.Authenticated() {
		sess.LastActivity = now
	}

	if !sess.Screen.Valid() {
		sess.Screen = Welcome
		return Welcome, OutcomeUnknownScreen
	}
	if role, guarded := guards[sess.Screen]; guarded && sess.Role() != role {
		sess.Screen = Welcome
		return Welcome, OutcomeUnauthorized
	}
	return sess.Screen, OutcomeOK
}

// Admit guards role-specific operations the same way Resolve guards screens.
func (r *Router) Admit(sess *Session, role auth.Role, now time.Time) Outcome {
	if r.Expired(sess, now) {
		sess.Clear()
		return OutcomeExpired
	}
	if sess.Role() != role {
		return OutcomeUnauthorized
	}
	sess.LastActivity = now
	return OutcomeOK
}

// Navigate follows a button transition from the current screen.
func (r *Router) Navigate(sess *Session, to Screen) error {
	for _, next := range transitions[sess.Screen] {
		if next == to {
			sess.Screen = to
			sess.LogoutArmed = false
			return nil
		}
	}
	return ErrInvalidTransition
}

// Transitions lists the screens reachable from the current screen.
func (r *Router) Transitions(sess *Session) []Screen {
	return append([]Screen(nil), transitions[sess.Screen]...)
}
