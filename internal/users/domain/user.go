package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode"
)

// Account statuses. Suspended accounts cannot log in.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User is a platform account. Balance is integer FCFA.
type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	Status       string
	ReferralCode string
	ReferredBy   int64 // 0 when the user was not referred
	Balance      int64
	Verified     bool
	LastLoginAt  time.Time // zero until the first login
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrEmailTaken is returned when the email is already registered.
var ErrEmailTaken = errors.New("users: email already registered")

// ErrPhoneTaken is returned when the phone number is already registered.
var ErrPhoneTaken = errors.New("users: phone already registered")

// ErrNotFound is returned when no user matches.
var ErrNotFound = errors.New("users: not found")

// ErrInvalidCredentials is returned on bad email/password pairs.
var ErrInvalidCredentials = errors.New("users: invalid credentials")

// ErrAccountSuspended is returned when a suspended account tries to log in.
var ErrAccountSuspended = errors.New("users: account suspended")

// ErrTokenInvalid is returned for unknown or expired verification and
// reset tokens.
var ErrTokenInvalid = errors.New("users: invalid or expired token")

const codeSuffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode builds a code from the first three letters of
// the name plus six random characters, e.g. "AMA7KQX2P".
func GenerateReferralCode(name string) (string, error) {
	prefix := codePrefix(name)
	suffix := make([]byte, 6)
	random := make([]byte, 6)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}
	for i, b := range random {
		suffix[i] = codeSuffixAlphabet[int(b)%len(codeSuffixAlphabet)]
	}
	return prefix + string(suffix), nil
}

// codePrefix keeps the first three letters of the name, padded with X.
func codePrefix(name string) string {
	var letters []rune
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 3 {
				break
			}
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	return string(letters)
}

// NewSecurityToken returns a 64-character hex token for email
// verification and password reset links.
func NewSecurityToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail does a minimal shape check.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return errors.New("users: invalid email")
	}
	return nil
}

// NormalizePhone strips spaces, dots and dashes so that the same number
// always stores the same way.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch r {
		case ' ', '.', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone accepts an optional leading + followed by 8 to 15 digits.
func ValidatePhone(phone string) error {
	phone = NormalizePhone(phone)
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 8 || len(digits) > 15 {
		return errors.New("users: invalid phone number")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return errors.New("users: invalid phone number")
		}
	}
	return nil
}
