package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

const (
	passwordLength   = 8
	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	rollNumberPattern = regexp.MustCompile(`^([A-Za-z]*)(\d+)$`)
	nonAlphanumeric   = regexp.MustCompile(`[^a-z0-9]`)
)

// GeneratePassword returns an 8 character alphanumeric password.
func GeneratePassword() (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	var b strings.Builder
	b.Grow(passwordLength)
	for i := 0; i < passwordLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// GenerateUsername derives a login name from the student's name and placement.
// The result is deterministic: up to three lowercase alphanumerics of the name,
// the roll number, then the first two characters of the class and school ids.
func GenerateUsername(name, rollNumber, classID, schoolID string) string {
	base := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "")
	return prefix(base, 3) + rollNumber + prefix(classID, 2) + prefix(schoolID, 2)
}

// GenerateRollNumbers expands a starting roll number into count consecutive values,
// keeping any alphabetic prefix: ("AD23", 3) yields AD23, AD24, AD25.
func GenerateRollNumbers(start string, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	match := rollNumberPattern.FindStringSubmatch(strings.TrimSpace(start))
	if match == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "starting roll number must be letters followed by digits")
	}
	first, err := strconv.Atoi(match[2])
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "starting roll number is out of range")
	}
	rolls := make([]string, count)
	for i := range rolls {
		rolls[i] = match[1] + strconv.Itoa(first+i)
	}
	return rolls, nil
}

// HashPassword bcrypt-hashes a generated password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks candidate against the stored hash, falling back to
// the legacy plaintext field for records created before hashing.
func VerifyPassword(student models.Student, candidate string) bool {
	if student.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(candidate)) == nil
	}
	if student.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(student.Password), []byte(candidate)) == 1
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
