package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/riyaaz/core"
)

const tokenKeyPurpose = "riyaaz/password-reset"

var (
	NowFunc = time.Now // mockable

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID hides the raw user ID in password reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// resetToken is "<issued unix time, base 36>.<signature>".
// The signature covers the user's ID, password hash and last login, so the token
// stops working once the password is changed or the user logs in again.
type resetToken struct {
	issued time.Time
	sig    []byte
}

func (tok resetToken) String() string {
	return strconv.FormatInt(tok.issued.Unix(), 36) + "." + base64.RawURLEncoding.EncodeToString(tok.sig)
}

func parseResetToken(s string) (resetToken, error) {
	issuedPart, sigPart, ok := strings.Cut(s, ".")
	if !ok || issuedPart == "" || sigPart == "" {
		return resetToken{}, errInvalidToken
	}
	secs, err := strconv.ParseInt(issuedPart, 36, 64)
	if err != nil {
		return resetToken{}, errInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return resetToken{}, errInvalidToken
	}
	return resetToken{issued: time.Unix(secs, 0), sig: sig}, nil
}

// MakeToken issues a password reset token for usr.
func MakeToken(usr User, conf *core.Config) (string, error) {
	issued := time.Unix(NowFunc().Unix(), 0)
	return resetToken{issued: issued, sig: signResetToken(usr, issued, conf.SecretKey)}.String(), nil
}

func verifyToken(usr User, token string, conf *core.Config) error {
	tok, err := parseResetToken(token)
	if err != nil {
		return err
	}
	if !hmac.Equal(tok.sig, signResetToken(usr, tok.issued, conf.SecretKey)) {
		return errInvalidToken
	}
	if NowFunc().Sub(tok.issued) > conf.PasswordResetTimeoutDelta {
		return errTokenExpired
	}
	return nil
}

func signResetToken(usr User, issued time.Time, secretKey string) []byte {
	key := hmac.New(sha256.New, []byte(secretKey))
	key.Write([]byte(tokenKeyPurpose))

	mac := hmac.New(sha256.New, key.Sum(nil))
	for _, part := range [][]byte{
		[]byte(usr.ID),
		usr.PasswordHash,
		[]byte(usr.LastLogin.UTC().Format(time.RFC3339)),
		[]byte(strconv.FormatInt(issued.Unix(), 10)),
	} {
		mac.Write(part)
		mac.Write([]byte{0})
	}
	return mac.Sum(nil)
}
