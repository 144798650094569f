package registration

import (
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	phoneRe = regexp.MustCompile(`^01[2-9]\d{8}$`)
	otpRe   = regexp.MustCompile(`^\d{4,6}$`)
)

const (
	minNameLen     = 3
	minPasswordLen = 6
)

// ValidationErrors maps a form field to its message
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ValidatePhone accepts an 11-digit Bangladeshi mobile number.
func ValidatePhone(phone string) error {
	switch {
	case phone == "":
		return ValidationErrors{"phone": "Phone number is required"}
	case !phoneRe.MatchString(phone):
		return ValidationErrors{"phone": "Please enter a valid 11-digit phone number"}
	}
	return nil
}

func ValidateOTP(code string) error {
	switch {
	case code == "":
		return ValidationErrors{"otp": "OTP is required"}
	case !otpRe.MatchString(code):
		return ValidationErrors{"otp": "OTP must be 4-6 digits"}
	}
	return nil
}

// ValidatePassword checks the login form password.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return ValidationErrors{"password": "Password is required"}
	case utf8.RuneCountInString(password) < minPasswordLen:
		return ValidationErrors{"password": "Password must be at least 6 characters"}
	}
	return nil
}

// Profile is the final registration form
type Profile struct {
	Name            string
	Address         string
	FacebookProfile string
	Email           string
	Password        string
	ConfirmPassword string
}

// Normalize trims whitespace from every field except the passwords.
func (p Profile) Normalize() Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	p.FacebookProfile = strings.TrimSpace(p.FacebookProfile)
	p.Email = strings.TrimSpace(p.Email)
	return p
}

func (p Profile) Validate() error {
	errs := p.contactErrors()

	if err := ValidatePassword(p.Password); err != nil {
		errs["password"] = err.(ValidationErrors)["password"]
	}

	switch {
	case p.ConfirmPassword == "":
		errs["confirm_password"] = "Please confirm your password"
	case p.ConfirmPassword != p.Password:
		errs["confirm_password"] = "Passwords must match"
	}

	return errs.orNil()
}

// ValidateContact checks the fields a signed-in user may edit later; the
// passwords are ignored.
func (p Profile) ValidateContact() error {
	return p.contactErrors().orNil()
}

func (p Profile) contactErrors() ValidationErrors {
	errs := ValidationErrors{}

	switch {
	case p.Name == "":
		errs["name"] = "Name is required"
	case utf8.RuneCountInString(p.Name) < minNameLen:
		errs["name"] = "Name must be at least 3 characters"
	}

	if p.Address == "" {
		errs["address"] = "Address is required"
	}

	switch {
	case p.FacebookProfile == "":
		errs["facebook_profile"] = "Facebook profile is required"
	case !isURL(p.FacebookProfile):
		errs["facebook_profile"] = "Please enter a valid URL"
	}

	if p.Email != "" && !isEmail(p.Email) {
		errs["email"] = "Please enter a valid email address"
	}

	return errs
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.Contains(u.Host, ".")
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@")+1:], ".")
}
