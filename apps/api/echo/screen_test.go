package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/session"
	"github.com/aryaedu/tutor/testutil"
)

func TestHome(t *testing.T) {
	f := setup(t)
	rec := f.do(http.MethodGet, "/", "")
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, WelcomeResponse{AppName: "Arya Educations", Tagline: "Learn, Grow, Succeed", Screen: session.Welcome}),
	}, rec)
}

func TestSessionAuth(t *testing.T) {
	f := setup(t)

	unknown, err := f.app.generateToken(newSessionClaims(f.conf, session.Session{ID: "gone"}))
	require.NoError(t, err)

	tests := []httpTest{
		{
			name:     "missing token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "missing or malformed jwt"}),
		},
		{
			name:     "invalid token",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "unknown session",
			token:    unknown,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "session not found, please start a new one"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/screen", tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestScreen_Navigate(t *testing.T) {
	f := setup(t)
	token := f.newSession(t)

	rec := f.do(http.MethodGet, "/screen", token)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, ScreenResponse{
			Screen:      session.Welcome,
			Outcome:     "ok",
			Transitions: []session.Screen{session.LoginSelection},
		}),
	}, rec)

	// steps run in order on the same session
	tests := []struct {
		name       string
		action     session.Screen
		wantCode   int
		wantScreen session.Screen
	}{
		{name: "welcome to login selection", action: session.LoginSelection, wantCode: http.StatusOK, wantScreen: session.LoginSelection},
		{name: "login selection to student login", action: session.StudentLogin, wantCode: http.StatusOK, wantScreen: session.StudentLogin},
		{name: "student login to registration", action: session.StudentRegistration, wantCode: http.StatusOK, wantScreen: session.StudentRegistration},
		{name: "registration to dashboard", action: session.AdminDashboard, wantCode: http.StatusBadRequest},
		{name: "registration to student login", action: session.StudentLogin, wantCode: http.StatusOK, wantScreen: session.StudentLogin},
		{name: "student login to login selection", action: session.LoginSelection, wantCode: http.StatusOK, wantScreen: session.LoginSelection},
		{name: "login selection to admin login", action: session.AdminLogin, wantCode: http.StatusOK, wantScreen: session.AdminLogin},
		{name: "unknown screen", action: "settings", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/screen/navigate", token, marchallObj(t, NavigateRequest{Action: tt.action}))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, httpTest{
					wantCode: tt.wantCode,
					wantData: marchallObj(t, httpErr{Error: session.ErrInvalidTransition.Error()}),
				}, rec)
				return
			}
			var resp ScreenResponse
			unmarshal(t, rec, &resp)
			assert.Equal(t, tt.wantScreen, resp.Screen)
		})
	}
}

func TestScreen_Guards(t *testing.T) {
	f := setup(t)
	tx := testutil.CreateTaxonomy(t, f.taxonomyRepo, "Sci")
	testutil.CreateStudent(t, f.studentRepo, "Ravi Kumar", "9876543210", "Pass@123", tx, true, true)

	anonymous := f.newSession(t)
	adminTkn := f.adminToken(t)
	studentTkn := f.studentToken(t, "9876543210", "Pass@123")

	tests := []httpTest{
		{name: "anonymous on admin screen", method: http.MethodGet, path: "/admin/dashboard", token: anonymous, wantCode: http.StatusForbidden},
		{name: "anonymous on student screen", method: http.MethodGet, path: "/student/videos", token: anonymous, wantCode: http.StatusForbidden},
		{name: "student on admin screen", method: http.MethodGet, path: "/admin/dashboard", token: studentTkn, wantCode: http.StatusForbidden},
		{name: "admin on student screen", method: http.MethodGet, path: "/student/profile", token: adminTkn, wantCode: http.StatusForbidden},
		{name: "admin on admin screen", method: http.MethodGet, path: "/admin/dashboard", token: adminTkn, wantCode: http.StatusOK},
		{name: "student on student screen", method: http.MethodGet, path: "/student/profile", token: studentTkn, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.token)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusForbidden {
				checkCodeAndData(t, httpTest{
					wantCode: tt.wantCode,
					wantData: marchallObj(t, httpErr{Error: "unauthorized access"}),
				}, rec)
			}
		})
	}

	t.Run("authenticated screen", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/screen", studentTkn)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ScreenResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, session.StudentInterface, resp.Screen)
		require.NotNil(t, resp.Identity)
		assert.Equal(t, auth.RoleStudent, resp.Identity.Role)
		assert.Equal(t, tx.Stream.ID, resp.Identity.StreamID)
	})
}

func TestScreen_Timeout(t *testing.T) {
	f := setup(t)
	token := f.adminToken(t)

	rec := f.do(http.MethodGet, "/admin/dashboard", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	withNow(t, func() time.Time { return time.Now().Add(f.conf.Server.SessionTimeout + time.Minute) })

	t.Run("expired operation", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/admin/dashboard", token)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "session expired, please login again"}),
		}, rec)
	})

	t.Run("session cleared", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/screen", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ScreenResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, session.Welcome, resp.Screen)
		assert.Nil(t, resp.Identity)
	})
}

func TestScreen_ResolveExpired(t *testing.T) {
	f := setup(t)
	token := f.adminToken(t)

	withNow(t, func() time.Time { return time.Now().Add(f.conf.Server.SessionTimeout + time.Minute) })

	rec := f.do(http.MethodGet, "/screen", token)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, ScreenResponse{
			Screen:      session.Welcome,
			Outcome:     "expired",
			Message:     "Session expired. Please login again.",
			Transitions: []session.Screen{session.LoginSelection},
		}),
	}, rec)
}

func TestLogout(t *testing.T) {
	f := setup(t)
	token := f.adminToken(t)

	steps := []struct {
		name          string
		path          string
		wantLoggedOut bool
		wantScreen    session.Screen
	}{
		{name: "first request arms", path: "/auth/logout", wantScreen: session.AdminDashboard},
		{name: "cancel", path: "/auth/logout/cancel", wantScreen: session.AdminDashboard},
		{name: "request again arms", path: "/auth/logout", wantScreen: session.AdminDashboard},
		{name: "second request clears", path: "/auth/logout", wantLoggedOut: true, wantScreen: session.Welcome},
	}
	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, tt.path, token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var resp LogoutResponse
			unmarshal(t, rec, &resp)
			assert.Equal(t, tt.wantLoggedOut, resp.LoggedOut)
			assert.Equal(t, tt.wantScreen, resp.Screen)
		})
	}

	rec := f.do(http.MethodGet, "/admin/dashboard", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
