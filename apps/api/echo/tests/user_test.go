package tests

import (
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/riyaaz/apps/api/echo"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/tests"
)

const strongPwd = "Raag-Bhairav-42"

func Test_userApi_register(t *testing.T) {
	reset(t)
	testutil.CreateUser(t, usrRepo, "Guru", "guru@test.cd", strongPwd, []string{user.RoleTeacher}, true)

	body := func(name, email, pwd, confirm, role string) []byte {
		return marchallObj(t, user.Registration{Name: name, Email: email, Password: pwd, PasswordConfirm: confirm, Role: role})
	}

	runHTTPTests(t, []httpTest{
		{
			name:     "email taken",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     body("Other", "GURU@test.cd", strongPwd, strongPwd, "teacher"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name:     "passwords mismatch",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     body("Asha", "asha@test.cd", strongPwd, strongPwd+"!", "student"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown role",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     body("Asha", "asha@test.cd", strongPwd, strongPwd, "admin"),
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("student", func(t *testing.T) {
		rec := do(httpTest{
			method: http.MethodPost,
			path:   "/v1/users/register",
			body:   body(" Asha ", "Asha@Test.cd", strongPwd, strongPwd, "student"),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got user.User
		unmarshal(t, rec, &got)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "Asha", got.Name)
		assert.Equal(t, "asha@test.cd", got.Email)
		assert.Equal(t, []string{user.RoleStudent}, got.Roles)
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func Test_userApi_login(t *testing.T) {
	reset(t)
	teacher := testutil.CreateUser(t, usrRepo, "Guru", "guru@test.cd", strongPwd, []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, usrRepo, "Gone", "gone@test.cd", strongPwd, []string{user.RoleStudent}, false)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	runHTTPTests(t, []httpTest{
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     login("guru@test.cd", "nope"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     login("who@test.cd", strongPwd),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     login("gone@test.cd", strongPwd),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("ok", func(t *testing.T) {
		rec := do(httpTest{method: http.MethodPost, path: "/v1/users/login", body: login("GURU@test.cd", strongPwd)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		unmarshal(t, rec, &resp)
		claims := new(echoapi.Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, claims.Subject)
		assert.True(t, claims.IsTeacher)
		assert.False(t, claims.IsStudent)

		// the token grants access to the account
		rec = do(httpTest{path: "/v1/users/me", token: resp.Token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var me user.User
		unmarshal(t, rec, &me)
		assert.Equal(t, teacher.ID, me.ID)
		assert.False(t, me.LastLogin.IsZero())
	})
}

func Test_userApi_me(t *testing.T) {
	reset(t)
	usr := testutil.CreateUser(t, usrRepo, "Asha", "asha@test.cd", "", []string{user.RoleStudent}, true)
	gone := testutil.CreateUser(t, usrRepo, "Gone", "gone@test.cd", "", []string{user.RoleStudent}, false)

	runHTTPTests(t, []httpTest{
		{
			name:     "no token",
			path:     "/v1/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "bad token",
			path:     "/v1/users/me",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "deactivated",
			path:     "/v1/users/me",
			token:    getToken(t, gone),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	rec := do(httpTest{path: "/v1/users/me", token: getToken(t, usr)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me user.User
	unmarshal(t, rec, &me)
	assert.Equal(t, usr.ID, me.ID)
	assert.Equal(t, usr.Email, me.Email)
	assert.Equal(t, usr.Roles, me.Roles)
}

func Test_userApi_passwordReset(t *testing.T) {
	reset(t)
	usr := testutil.CreateUser(t, usrRepo, "Asha", "asha@test.cd", strongPwd, []string{user.RoleStudent}, true)

	for _, email := range []string{"asha@test.cd", "nobody@test.cd"} {
		rec := do(httpTest{
			method: http.MethodPost,
			path:   "/v1/users/password-reset",
			body:   marchallObj(t, echoapi.PasswordResetRequest{Email: email}),
		})
		assert.Equal(t, http.StatusOK, rec.Code, email)
	}

	msgs := mailSvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, usr.Email, msgs[0].To[0].Address)

	// confirm with an invalid token
	rec := do(httpTest{
		method: http.MethodPost,
		path:   "/v1/users/password-reset-confirm",
		body: marchallObj(t, user.ResetUserPassword{
			Token:           "bogus-token",
			UID:             user.EncodeUID(usr),
			Password:        "Taal-Teentaal-16",
			PasswordConfirm: "Taal-Teentaal-16",
		}),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// confirm with a valid token
	token, err := user.MakeToken(usr, conf)
	require.NoError(t, err)
	rec = do(httpTest{
		method: http.MethodPost,
		path:   "/v1/users/password-reset-confirm",
		body: marchallObj(t, user.ResetUserPassword{
			Token:           token,
			UID:             user.EncodeUID(usr),
			Password:        "Taal-Teentaal-16",
			PasswordConfirm: "Taal-Teentaal-16",
		}),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(httpTest{
		method: http.MethodPost,
		path:   "/v1/users/login",
		body:   marchallObj(t, echoapi.LoginRequest{Username: "asha@test.cd", Password: "Taal-Teentaal-16"}),
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_userApi_refreshToken(t *testing.T) {
	reset(t)
	usr := testutil.CreateUser(t, usrRepo, "Asha", "asha@test.cd", "", []string{user.RoleStudent}, true)

	rec := do(httpTest{method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, usr)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	unmarshal(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}
