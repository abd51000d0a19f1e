package credential

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "$@_"
)

func Hash(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Verify(raw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

// CheckPolicy reports whether the password is at least 8 characters long, contains at
// least one lowercase letter, one uppercase letter, one digit and one of "$@_", and
// contains no character outside those four classes.
func CheckPolicy(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit, special int
	for _, c := range password {
		switch {
		case strings.ContainsRune(lowerChars, c):
			lower++
		case strings.ContainsRune(upperChars, c):
			upper++
		case strings.ContainsRune(digitChars, c):
			digit++
		case strings.ContainsRune(specialChars, c):
			special++
		default:
			return false
		}
	}
	return lower >= 1 && upper >= 1 && digit >= 1 && special >= 1
}

// GenerateSystemPassword produces a random policy-compliant password for newly
// created accounts. The account keeps needsToChangePassword set, so the generated
// value is only a bootstrap credential.
func GenerateSystemPassword() string {
	classes := []string{lowerChars, upperChars, digitChars, specialChars}
	var b strings.Builder
	for i := 0; i < 12; i++ {
		class := classes[i%len(classes)]
		b.WriteByte(class[randomIndex(len(class))])
	}
	return b.String()
}

func randomIndex(limit int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		panic(err)
	}
	return int(n.Int64())
}
