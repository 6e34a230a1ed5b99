package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mafunzo/core"
)

func newTestValidate() *validator.Validate {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func failingTags(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(verrs))
	for _, verr := range verrs {
		tags = append(tags, verr.Tag())
	}
	return tags
}

func TestPasswordPolicy(t *testing.T) {
	newUser := func(pwd string) NewUser {
		return NewUser{
			Username:        "johnsmith",
			Email:           "john@smith.cd",
			Password:        pwd,
			PasswordConfirm: pwd,
		}
	}

	tests := []struct {
		name    string
		nu      NewUser
		wantTag string // empty: valid
	}{
		{"ok", newUser("Tr0ub4dor&3"), ""},
		{"too short", newUser("Sh0rt!"), pwdMinLenTag},
		{"whitespace", newUser("spaced 0ut!"), pwdNoSpaceTag},
		{"all numeric", newUser("1234567890"), pwdNotAllNumTag},
		{"similar to username", newUser("johnsmith1x"), pwdAttrSimTag},
		{"similar to email", newUser("john@smith.cdX"), pwdAttrSimTag},
		{"empty left to required", NewUser{Username: "johnsmith", Email: "john@smith.cd"}, "required"},
	}

	validate := newTestValidate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, failingTags(err), tt.wantTag)
		})
	}
}
