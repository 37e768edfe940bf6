package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/analytics"
	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/session"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	"github.com/aryaedu/tutor/core/video"
	emailsvc "github.com/aryaedu/tutor/services/email"
	smssvc "github.com/aryaedu/tutor/services/sms"
	sqlxrepos "github.com/aryaedu/tutor/storage/database/sqlx"
	"github.com/aryaedu/tutor/testutil"
)

type loggerMock struct{ errors []string }

func (l *loggerMock) Debug(string, ...interface{})       {}
func (l *loggerMock) Info(string, ...interface{})        {}
func (l *loggerMock) Warn(string, ...interface{})        {}
func (l *loggerMock) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
func (l *loggerMock) Fatal(string, ...interface{})       {}

type fixture struct {
	app     *Server
	conf    *core.Config
	mailSvc *emailsvc.ConsoleServiceMock
	smsSvc  *smssvc.ConsoleServiceMock

	adminRepo    admin.Repository
	studentRepo  student.Repository
	taxonomyRepo taxonomy.Repository
	videoRepo    video.Repository
	progressRepo progress.Repository
}

func setup(t *testing.T) fixture {
	conf := core.NewTestConfig()
	logger := &loggerMock{}

	// set up DB & repos
	db := testutil.PrepareDB(t)
	f := fixture{
		conf:         conf,
		mailSvc:      emailsvc.NewConsoleServiceMock(conf, logger),
		smsSvc:       smssvc.NewConsoleServiceMock(),
		adminRepo:    sqlxrepos.NewAdminRepository(db),
		studentRepo:  sqlxrepos.NewStudentRepository(db),
		taxonomyRepo: sqlxrepos.NewTaxonomyRepository(db),
		videoRepo:    sqlxrepos.NewVideoRepository(db),
		progressRepo: sqlxrepos.NewProgressRepository(db),
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)

	// set up services
	adminSvc := admin.NewService(conf, f.adminRepo, f.mailSvc, validate)
	taxonomySvc := taxonomy.NewService(f.taxonomyRepo)
	studentSvc := student.NewService(f.studentRepo, taxonomySvc)

	// set up server
	f.app = NewServer(&Options{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		Sessions:     session.NewStore(24 * time.Hour),
		Router:       session.NewRouter(conf.Server.SessionTimeout),
		Gate:         auth.NewGate(conf, adminSvc, studentSvc, f.smsSvc, logger),
		AdminSvc:     adminSvc,
		StudentSvc:   studentSvc,
		TaxonomySvc:  taxonomySvc,
		VideoSvc:     video.NewService(f.videoRepo, taxonomySvc),
		ProgressSvc:  progress.NewService(f.progressRepo),
		AnalyticsSvc: analytics.NewService(sqlxrepos.NewAnalyticsRepository(db)),
	})
	return f
}

// do serves one request and returns the recorder.
func (f fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

// newSession opens an anonymous session and returns its token.
func (f fixture) newSession(t *testing.T) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/session", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

// login opens a session, authenticates it with the given credentials and returns the token issued at login.
func (f fixture) login(t *testing.T, path string, creds interface{}) string {
	t.Helper()
	token := f.newSession(t)
	rec := f.do(http.MethodPost, path, token, marchallObj(t, creds))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (f fixture) adminToken(t *testing.T) string {
	t.Helper()
	testutil.CreateAdmin(t, f.adminRepo, "admin", "admin@tutorial.com", "admin123", true)
	return f.login(t, "/auth/admin/login", auth.AdminLogin{Username: "admin", Password: "admin123"})
}

func (f fixture) studentToken(t *testing.T, mobile, pwd string) string {
	t.Helper()
	return f.login(t, "/auth/student/login", auth.StudentLogin{Mobile: mobile, Password: pwd})
}

func parseClaims(t *testing.T, f fixture, token string) Claims {
	t.Helper()
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(f.conf.SecretKey), nil
	})
	require.NoError(t, err)
	return *claims
}

// withNow shifts the clock seen by the server for the rest of the test.
func withNow(t *testing.T, now func() time.Time) {
	orig := nowFunc
	nowFunc = now
	t.Cleanup(func() { nowFunc = orig })
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
