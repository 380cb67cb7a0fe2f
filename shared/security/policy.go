package security

import "unicode"

// PasswordMeetsPolicy reports whether the password is at least 8 characters
// and contains an upper-case letter, a lower-case letter, a digit, and a
// special character. Go's regexp has no lookahead, so the policy is four
// scans instead of one pattern.
func PasswordMeetsPolicy(password string) bool {
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasDigit && hasSpecial
}
