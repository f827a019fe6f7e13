package classroom

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/trezcool/riyaaz/core"
)

const (
	joinCodePrefix      = "RZ-"
	joinCodeChars       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeLen         = 4
	maxJoinCodeAttempts = 10
)

var randIntFunc = func(max int) (int, error) { // mockable
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// GenerateJoinCode returns a random code of the form RZ-XXXX.
func GenerateJoinCode() (string, error) {
	var b strings.Builder
	b.Grow(len(joinCodePrefix) + joinCodeLen)
	b.WriteString(joinCodePrefix)
	for i := 0; i < joinCodeLen; i++ {
		idx, err := randIntFunc(len(joinCodeChars))
		if err != nil {
			return "", err
		}
		b.WriteByte(joinCodeChars[idx])
	}
	return b.String(), nil
}

// NormalizeJoinCode trims and upper-cases a user provided join code.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}
