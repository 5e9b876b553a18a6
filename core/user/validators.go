package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"
)

// InitValidators registers user-specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// roleValidation checks that the value is a known role.
func roleValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, role := range AllRoles {
		if val == role {
			return true
		}
	}
	return false
}
