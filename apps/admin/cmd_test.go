package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/storage/database/sqlx"
	"github.com/trezcool/riyaaz/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	db, conf := testutil.MustOpenDB(t)
	out := new(bytes.Buffer)
	return &commandLine{
		conf:    conf,
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		clsRepo: sqlxrepos.NewClassroomRepository(db),
		out:     out,
	}, out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `running migrations "lol"`},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	runCLITests(t, cli, []cliTest{
		{name: "no flags", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "--username", "guru"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--username", "guru", "--email", "guru@test.cd"}, wantErr: errHelp},
		{
			name:       "conflicting roles",
			args:       []string{"adduser", "--username", "guru", "--email", "guru@test.cd", "--admin", "--teacher"},
			pwd:        "Raag-Bhairav-42",
			wantErrStr: "none of the others can be",
		},
		{
			name: "create teacher",
			args: []string{"adduser", "--username", "Guru", "--email", "Guru@test.cd", "--name", "Pandit Guru", "--teacher"},
			pwd:  "Raag-Bhairav-42",
		},
	})

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "guru"})
	require.NoError(t, err)
	assert.Equal(t, "guru@test.cd", usr.Email)
	assert.Equal(t, "Pandit Guru", usr.Name)
	assert.Equal(t, []string{user.RoleTeacher}, usr.Roles)
	assert.NoError(t, usr.CheckPassword("Raag-Bhairav-42"))

	// running it again updates the same user
	runCLITests(t, cli, []cliTest{
		{
			name: "promote to admin",
			args: []string{"adduser", "--username", "guru", "--email", "guru@test.cd", "--admin"},
			pwd:  "Taal-Teentaal-16",
		},
	})

	updated, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "guru@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.Equal(t, "Pandit Guru", updated.Name)
	assert.Equal(t, user.AllRoles, updated.Roles)
	assert.NoError(t, updated.CheckPassword("Taal-Teentaal-16"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, pwd: "lmao"},
	}
	runCLITests(t, cli, tests)

	refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "failed to update new password")
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_joinCode(t *testing.T) {
	cli, out := setup(t)

	teacher := testutil.CreateUser(t, cli.usrRepo, "Guru", "guru@test.cd", "", []string{user.RoleTeacher}, true)
	cls := testutil.CreateClassroom(t, cli.clsRepo, teacher, "Hindustani Vocal", "RZ-VOC1")

	runCLITests(t, cli, []cliTest{
		{name: "no classroom", args: []string{"joincode"}, wantErr: errHelp},
		{name: "unknown classroom", args: []string{"joincode", "nope"}, wantErr: classroom.ErrNotFound},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "joincode", cls.ID}))
	assert.Contains(t, out.String(), "Hindustani Vocal")
	assert.Contains(t, out.String(), "Join code: RZ-VOC1")
	assert.Contains(t, out.String(), "http://localhost:3000/join?code=RZ-VOC1")
	assert.Regexp(t, "[▀▄█]", out.String()) // half block QR code
}
