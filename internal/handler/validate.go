package handler

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/plateful/plateful-api/shared/security"
)

// requestValidator validates request payloads and renders field errors with
// English messages.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")

	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, err
	}

	if err := validate.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		return security.PasswordMeetsPolicy(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	if err := validate.RegisterTranslation(
		"strong_password",
		translator,
		func(ut ut.Translator) error {
			return ut.Add(
				"strong_password",
				"{0} must be at least 8 characters with upper and lower case letters, a digit and a special character",
				true,
			)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T("strong_password", fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	); err != nil {
		return nil, err
	}

	return &requestValidator{validate: validate, translator: translator}, nil
}

// check validates the payload and returns field-to-message errors, or nil
// when the payload is valid.
func (v *requestValidator) check(payload any) map[string]string {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": "invalid request"}
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields[fieldError.Field()] = fieldError.Translate(v.translator)
	}

	return fields
}
