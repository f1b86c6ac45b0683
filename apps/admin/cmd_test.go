package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	cachesvc "github.com/trezcool/educa/services/cache"
	emailsvc "github.com/trezcool/educa/services/email"
	logsvc "github.com/trezcool/educa/services/logger"
	inmemdb "github.com/trezcool/educa/storage/database/inmem"
	testutil "github.com/trezcool/educa/tests"
)

var (
	usrRepo    user.Repository
	courseRepo course.Repository
)

func setup(t *testing.T) *commandLine {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	usrRepo = inmemdb.NewUserRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(zap.NewNop(), core.Conf)
	return &commandLine{
		db:        &sqlx.DB{}, // never reached: migrations are mocked
		usrRepo:   usrRepo,
		courseSvc: course.NewService(courseRepo, inmemdb.NewTransactor(), cachesvc.NoopCache{}, emailsvc.NewConsoleServiceMock(), logger, core.Conf),
		validate:  validate,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockReadPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var ran []string
	runMigrationFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, []string{"up", "up-by-one", "up-to", "down", "down-to", "redo", "reset", "status", "version"}, ran)

	cli.db = nil
	assert.EqualError(t, cli.run([]string{"admin", "migrate", "up"}), "migrations need the postgres engine")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockReadPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			usr = refreshedUsr
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	ctx := context.Background()
	cli := setup(t)
	testutil.CreateUser(t, usrRepo, "Taken", "taken", "taken@test.cd", "", nil, true)

	mockReadPassword("")
	assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-username", "hero"}))
	assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-username", "hero", "-email", "hero@test.cd"}))
	assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-username", "hero", "-email", "hero@test.cd", "-admin", "-instructor"}))

	mockReadPassword("secret")
	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", " Hero ", "-email", "HERO@test.cd", "-name", "Hero", "-instructor"}))
	usr, err := usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{"hero"}})
	require.NoError(t, err)
	assert.Equal(t, "Hero", usr.Name)
	assert.Equal(t, "hero@test.cd", usr.Email)
	assert.Equal(t, user.InstructorRoles, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("secret"))

	// found by email: updated
	mockReadPassword("new-secret")
	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "superhero", "-email", "hero@test.cd", "-admin"}))
	updated, err := usrRepo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.Equal(t, "superhero", updated.Username)
	assert.Equal(t, "Hero", updated.Name)
	assert.Equal(t, []string{user.RoleAdminOwner}, updated.Roles)
	assert.NoError(t, updated.CheckPassword("new-secret"))

	// found by username: the email belongs to someone else
	assert.Equal(t, user.ErrEmailExists, cli.run([]string{"admin", "adduser", "-username", "taken", "-email", "hero@test.cd"}))

	// student by default
	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "awe", "-email", "awe@test.cd"}))
	awe, err := usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{"awe"}})
	require.NoError(t, err)
	assert.Equal(t, user.StudentRoles, awe.Roles)
}

func Test_commandLine_addSubject(t *testing.T) {
	ctx := context.Background()
	cli := setup(t)

	assert.Equal(t, errHelp, cli.run([]string{"admin", "addsubject"}))
	assert.Error(t, cli.run([]string{"admin", "addsubject", "-title", "Go", "-slug", "Not A Slug"}))

	require.NoError(t, cli.run([]string{"admin", "addsubject", "-title", " Data Science "}))
	sub, err := courseRepo.GetSubject(ctx, course.SubjectFilter{Slug: "data-science"})
	require.NoError(t, err)
	assert.Equal(t, "Data Science", sub.Title)

	assert.Error(t, cli.run([]string{"admin", "addsubject", "-title", "Data Science"}))
}
