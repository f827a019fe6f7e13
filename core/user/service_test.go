package user_test

import (
	"context"
	"log"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/services/email"
	"github.com/trezcool/riyaaz/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(msg string, _ ...interface{}) {
	log.Fatal(msg)
}

func setUp(t *testing.T) (user.Service, user.Repository, *emailsvc.ConsoleServiceMock, *core.Config) {
	t.Helper()
	conf := &core.Config{
		AppName:                   "Riyaaz",
		TestMode:                  true,
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Riyaaz", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	repo := inmemdb.NewUserRepository()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, nopLogger{})
	return user.NewService(repo, mailSvc, conf), repo, mailSvc, conf
}

func TestService_Register(t *testing.T) {
	svc, _, _, _ := setUp(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.Registration{
		Name:            "Asha",
		Email:           "asha@test.cd",
		Password:        "Raag-Bhairav-42",
		PasswordConfirm: "Raag-Bhairav-42",
		Role:            "student",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.True(t, usr.IsStudent())
	assert.False(t, usr.IsTeacher())
	require.NotNil(t, usr.IsActive)
	assert.True(t, *usr.IsActive)
	assert.NoError(t, usr.CheckPassword("Raag-Bhairav-42"))

	_, err = svc.Register(ctx, user.Registration{
		Name:            "Asha Two",
		Email:           "asha@test.cd",
		Password:        "Raag-Bhairav-42",
		PasswordConfirm: "Raag-Bhairav-42",
		Role:            "teacher",
	})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "email", vErr.Fields[0].Field)
	assert.Equal(t, user.ErrEmailExists, vErr.Err)

	got, err := svc.GetByUsernameOrEmail(ctx, " ASHA@test.cd ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
}

func TestService_SetLastLogin(t *testing.T) {
	svc, repo, _, _ := setUp(t)
	ctx := context.Background()

	usr, err := repo.CreateUser(ctx, user.User{Name: "Guru", Email: "guru@test.cd"})
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }
	defer func() { user.NowFunc = time.Now }()

	usr, err = svc.SetLastLogin(ctx, usr)
	require.NoError(t, err)
	assert.True(t, now.Equal(usr.LastLogin))

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, now.Equal(got.LastLogin))
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo, mailSvc, conf := setUp(t)
	ctx := context.Background()

	usr := user.User{Name: "Asha", Email: "asha@test.cd"}
	usr.SetActive(true)
	require.NoError(t, usr.SetPassword("Raag-Bhairav-42"))
	usr, err := repo.CreateUser(ctx, usr)
	require.NoError(t, err)

	gone := user.User{Name: "Gone", Email: "gone@test.cd"}
	gone.SetActive(false)
	_, err = repo.CreateUser(ctx, gone)
	require.NoError(t, err)

	t.Run("unknown or inactive users get no email", func(t *testing.T) {
		assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@test.cd"))
		assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "gone@test.cd"))
		assert.Empty(t, mailSvc.SentMessages())
	})

	t.Run("request", func(t *testing.T) {
		require.NoError(t, svc.RequestPasswordReset(ctx, "ASHA@test.cd"))
		msgs := mailSvc.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "asha@test.cd", msgs[0].To[0].Address)
		assert.True(t, strings.Contains(msgs[0].TextContent, user.EncodeUID(usr)), msgs[0].TextContent)
	})

	token, err := user.MakeToken(usr, conf)
	require.NoError(t, err)

	tests := []struct {
		name      string
		data      user.ResetUserPassword
		wantField string
	}{
		{
			name:      "bad uid",
			data:      user.ResetUserPassword{UID: "!!", Token: token, Password: "x", PasswordConfirm: "x"},
			wantField: "uid",
		},
		{
			name:      "unknown uid",
			data:      user.ResetUserPassword{UID: user.EncodeUID(user.User{ID: "nope"}), Token: token, Password: "x", PasswordConfirm: "x"},
			wantField: "uid",
		},
		{
			name:      "bad token",
			data:      user.ResetUserPassword{UID: user.EncodeUID(usr), Token: "bogus-token", Password: "x", PasswordConfirm: "x"},
			wantField: "token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(ctx, tt.data)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, svc.ResetPassword(ctx, user.ResetUserPassword{
			UID:             user.EncodeUID(usr),
			Token:           token,
			Password:        "Taal-Teentaal-16",
			PasswordConfirm: "Taal-Teentaal-16",
		}))
		got, err := svc.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword("Taal-Teentaal-16"))

		// the token is single use since it is bound to the password hash
		err = svc.ResetPassword(ctx, user.ResetUserPassword{
			UID:             user.EncodeUID(usr),
			Token:           token,
			Password:        "Another-Pass-99",
			PasswordConfirm: "Another-Pass-99",
		})
		assert.Error(t, err)
	})
}
