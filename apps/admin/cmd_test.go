package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	emailsvc "github.com/aryaedu/tutor/services/email"
	"github.com/aryaedu/tutor/storage/database"
	sqlxrepos "github.com/aryaedu/tutor/storage/database/sqlx"
	"github.com/aryaedu/tutor/testutil"
)

type loggerMock struct{}

func (loggerMock) Debug(string, ...interface{}) {}
func (loggerMock) Info(string, ...interface{})  {}
func (loggerMock) Warn(string, ...interface{})  {}
func (loggerMock) Error(string, ...interface{}) {}
func (loggerMock) Fatal(string, ...interface{}) {}

type fixture struct {
	cli          *commandLine
	adminRepo    admin.Repository
	studentRepo  student.Repository
	taxonomyRepo taxonomy.Repository
}

func setup(t *testing.T) fixture {
	conf := core.NewTestConfig()
	logger = loggerMock{}

	// set up DB & repos
	db := testutil.PrepareDB(t)
	f := fixture{
		adminRepo:    sqlxrepos.NewAdminRepository(db),
		studentRepo:  sqlxrepos.NewStudentRepository(db),
		taxonomyRepo: sqlxrepos.NewTaxonomyRepository(db),
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)

	// start CLI
	f.cli = &commandLine{
		db:         db,
		adminSvc:   admin.NewService(conf, f.adminRepo, emailsvc.NewConsoleServiceMock(conf, logger), validate),
		studentSvc: student.NewService(f.studentRepo, taxonomy.NewService(f.taxonomyRepo)),
		validate:   validate,
		out:        new(bytes.Buffer),
	}
	return f
}

// withPassword makes the password prompt return pwd for the rest of the test.
func withPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func() ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
	anyErr  bool
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.anyErr:
		assert.Error(t, err)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_root(t *testing.T) {
	f := setup(t)
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(tt.args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	var gotCommand string
	var gotArgs []string
	orig := migrateFunc
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		return nil
	}
	t.Cleanup(func() { migrateFunc = orig })

	tests := []struct {
		cliTest
		wantCommand string
		wantArgs    []string
	}{
		{cliTest: cliTest{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "up", args: []string{"migrate", "up"}}, wantCommand: "up", wantArgs: []string{}},
		{cliTest: cliTest{name: "up-to", args: []string{"migrate", "up-to", "2"}}, wantCommand: "up-to", wantArgs: []string{"2"}},
		{cliTest: cliTest{name: "status", args: []string{"migrate", "status"}}, wantCommand: "status", wantArgs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand, gotArgs = "", nil
			tt.check(t, f.cli.run(tt.args))
			if tt.wantCommand != "" {
				assert.Equal(t, tt.wantCommand, gotCommand)
				assert.Equal(t, tt.wantArgs, gotArgs)
			}
		})
	}

	t.Run("real database", func(t *testing.T) {
		migrateFunc = database.Migrate
		assert.NoError(t, f.cli.run([]string{"migrate", "version"}))
		assert.Error(t, f.cli.run([]string{"migrate", "lol"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no username", args: []string{"adduser"}, pwd: "S3cure!Pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--username", "ops"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "--username", "ops"}, pwd: "password", anyErr: true},
		{name: "invalid email", args: []string{"adduser", "--username", "ops", "--email", "nope"}, pwd: "S3cure!Pwd", anyErr: true},
		{name: "ok", args: []string{"adduser", "--username", "Ops", "--email", "ops@tutorial.com"}, pwd: "S3cure!Pwd"},
		{name: "duplicate", args: []string{"adduser", "--username", "ops"}, pwd: "S3cure!Pwd", anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			tt.check(t, f.cli.run(tt.args))
		})
	}

	adm, err := f.adminRepo.GetAdmin(context.Background(), admin.GetFilter{Username: "ops"})
	require.NoError(t, err)
	assert.Equal(t, "ops@tutorial.com", adm.Email)
	assert.True(t, adm.IsActive)
	assert.NoError(t, adm.CheckPassword("S3cure!Pwd"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)
	adm := testutil.CreateAdmin(t, f.adminRepo, "admin", "admin@tutorial.com", "admin123", true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "admin"}, wantErr: errHelp},
		{name: "admin not found", args: []string{"resetpassword", "--username", "lol"}, pwd: "lol", wantErr: admin.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "--username", "admin"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			tt.check(t, f.cli.run(tt.args))
		})
	}

	refreshed, err := f.adminRepo.GetAdmin(context.Background(), admin.GetFilter{Username: adm.Username})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_addStudent(t *testing.T) {
	f := setup(t)
	tx := testutil.CreateTaxonomy(t, f.taxonomyRepo, "Sci")

	base := []string{"addstudent", "--name", "Ravi Kumar", "--mobile", "9876543210"}
	tests := []cliTest{
		{name: "missing flags", args: base, wantErr: errHelp},
		{name: "unknown stream", args: append(base[:5:5], "--stream", "S0", "--class", tx.Class.ID), anyErr: true},
		{name: "ok", args: append(base[:5:5], "--stream", tx.Stream.ID, "--class", tx.Class.ID, "--no-video")},
		{name: "duplicate mobile", args: append(base[:5:5], "--stream", tx.Stream.ID, "--class", tx.Class.ID), anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(tt.args))
		})
	}

	s, err := f.studentRepo.GetStudent(context.Background(), student.GetFilter{Mobile: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", s.Name)
	assert.Equal(t, tx.Stream.ID, s.StreamID)
	assert.False(t, s.VideoEnabled)
	assert.False(t, s.HasPassword())
}
