package users

import (
	"regexp"
	"unicode/utf8"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/models"
)

// Field rules.
const (
	MinUsernameLength = 3
	MinPasswordLength = 8
)

// Validation messages.
const (
	MsgUsernameTooShort = "username must be at least 3 characters"
	MsgInvalidEmail     = "please enter a valid email address"
	MsgPasswordTooShort = "password must be at least 8 characters"
	MsgUserIDRequired   = "no user id was specified"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether email looks like local@domain.tld.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidUsername reports whether username is long enough.
func IsValidUsername(username string) bool {
	return utf8.RuneCountInString(username) >= MinUsernameLength
}

// IsValidPassword reports whether password is long enough.
func IsValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// ValidateRegistration checks every registration field and returns nil
// when all pass.
func ValidateRegistration(in CreateUserInput) apperr.FieldErrors {
	errs := apperr.FieldErrors{}
	if !IsValidUsername(in.Username) {
		errs["username"] = MsgUsernameTooShort
	}
	if !IsValidEmail(in.Email) {
		errs["email"] = MsgInvalidEmail
	}
	if !IsValidPassword(in.Password) {
		errs["password"] = MsgPasswordTooShort
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateProfileUpdate checks only the fields present in upd.
func ValidateProfileUpdate(upd models.UserUpdate) apperr.FieldErrors {
	errs := apperr.FieldErrors{}
	if upd.Username != nil && !IsValidUsername(*upd.Username) {
		errs["username"] = MsgUsernameTooShort
	}
	if upd.Email != nil && !IsValidEmail(*upd.Email) {
		errs["email"] = MsgInvalidEmail
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
