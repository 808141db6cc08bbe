package profile

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/jeevaneswaran/examportal/core"
)

var (
	// admin accounts are created by operators, never through sign-up
	signupRoleTag  = "signuprole"
	signupRoleText = "registration is only open to students and teachers"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your personal details"

	spaceRegex = regexp.MustCompile(`\s`)
)

// RegisterValidators registers profile-specific validators on the app validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(signupRoleTag, signupRoleValidation)
	core.RegisterCustomTranslation(validate, translator, signupRoleTag, signupRoleText)

	validate.RegisterStructValidation(registrationStructValidation, Registration{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

func signupRoleValidation(fl validator.FieldLevel) bool {
	role := Role(fl.Field().String())
	return role == RoleStudent || role == RoleTeacher
}

// registrationStructValidation does struct level validation on Registration.
func registrationStructValidation(sl validator.StructLevel) {
	reg, ok := sl.Current().Interface().(Registration)
	if !ok {
		return
	}
	validatePassword(reg.Password, sl, reg.Email, reg.FirstName, reg.LastName)
}

func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	report := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len(pwd) < pwdMinLen {
		report(pwdMinLenTag)
	}
	if spaceRegex.MatchString(pwd) {
		report(pwdNoSpaceTag)
	}
	if isAllNumeric(pwd) {
		report(pwdNotAllNumTag)
	}

	// no similarity to user attributes
	lowerPwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		for _, part := range strings.FieldsFunc(strings.ToLower(attr), func(r rune) bool { return r == '@' || r == '.' || r == ' ' }) {
			if part == "" {
				continue
			}
			matcher := difflib.NewMatcher(strings.Split(lowerPwd, ""), strings.Split(part, ""))
			if matcher.QuickRatio() >= pwdMaxSim {
				report(pwdAttrSimTag)
				return
			}
		}
	}
}

func isAllNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
