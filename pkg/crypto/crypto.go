package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
// bcrypt's comparison is constant time with respect to the candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("crypto: token length must be positive, got %d", length)
	}

	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// captchaAlphabet avoids characters that render ambiguously (0/O, 1/I/L).
const captchaAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// RandomCaptchaText returns a short uppercase alphanumeric string suitable
// for rendering as a CAPTCHA challenge.
func RandomCaptchaText(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("crypto: captcha length must be positive, got %d", length)
	}

	out := make([]byte, length)
	max := big.NewInt(int64(len(captchaAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = captchaAlphabet[n.Int64()]
	}
	return string(out), nil
}
