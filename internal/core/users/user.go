// Package users manages administrator accounts stored in the "user" table.
package users

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when the username or email is taken.
	ErrDuplicate = errors.New("username or email already exists")
)

// Field limits mirror the column sizes of the "user" table.
const (
	MaxUsernameLen = 20
	MaxAliasLen    = 30
	MaxEmailLen    = 255
	MaxPhoneLen    = 20
	MinPasswordLen = 6
	MaxPasswordLen = 72 // bcrypt input limit
)

// User is a row of the "user" table.
type User struct {
	ID          int64      `db:"id" json:"id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	Username    string     `db:"username" json:"username"`
	Alias       *string    `db:"alias" json:"alias,omitempty"`
	Email       string     `db:"email" json:"email"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Password    *string    `db:"password" json:"-"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	IsSuperuser bool       `db:"is_superuser" json:"is_superuser"`
	LastLogin   *time.Time `db:"last_login" json:"last_login,omitempty"`
	DeptID      *int64     `db:"dept_id" json:"dept_id,omitempty"`
}

// NewUser is the input for creating a user.
type NewUser struct {
	Username    string  `json:"username"`
	Alias       *string `json:"alias,omitempty"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone,omitempty"`
	Password    string  `json:"password,omitempty"`
	IsSuperuser bool    `json:"is_superuser"`
	DeptID      *int64  `json:"dept_id,omitempty"`
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid user: " + strings.Join(parts, "; ")
}

// Normalize trims surrounding whitespace and lowercases the email.
func (n *NewUser) Normalize() {
	n.Username = strings.TrimSpace(n.Username)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	n.Alias = trimmedOrNil(n.Alias)
	n.Phone = trimmedOrNil(n.Phone)
}

// Validate checks the column limits.
func (n NewUser) Validate() error {
	fields := make(map[string]string)

	switch l := utf8.RuneCountInString(n.Username); {
	case l == 0:
		fields["username"] = "required"
	case l > MaxUsernameLen:
		fields["username"] = "too long"
	}
	switch {
	case n.Email == "":
		fields["email"] = "required"
	case len(n.Email) > MaxEmailLen:
		fields["email"] = "too long"
	case !strings.Contains(n.Email, "@") || strings.HasPrefix(n.Email, "@") || strings.HasSuffix(n.Email, "@"):
		fields["email"] = "invalid"
	}
	if n.Alias != nil && utf8.RuneCountInString(*n.Alias) > MaxAliasLen {
		fields["alias"] = "too long"
	}
	if n.Phone != nil && utf8.RuneCountInString(*n.Phone) > MaxPhoneLen {
		fields["phone"] = "too long"
	}
	if n.Password != "" && (len(n.Password) < MinPasswordLen || len(n.Password) > MaxPasswordLen) {
		fields["password"] = "must be between 6 and 72 bytes"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches u's stored hash.
func (u User) CheckPassword(password string) bool {
	if u.Password == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.Password), []byte(password)) == nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
