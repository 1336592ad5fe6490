package validator

import (
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
	"github.com/shandysiswandi/pkitotp/internal/pkg/strcase"
)

// ErrTranslatorNotFound indicates the English translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

var reOTPCode = regexp.MustCompile(`^[0-9]{6}$`)

// customRule is a string-only tag with its English message.
type customRule struct {
	tag     string
	message string
	valid   func(string) bool
}

var customRules = []customRule{
	{tag: "hexseed", message: "{0} must be 64 lowercase hex characters", valid: func(s string) bool { return seed.Validate(s) == nil }},
	{tag: "otpcode", message: "{0} must be exactly 6 digits", valid: reOTPCode.MatchString},
}

// V10ValidationError maps snake_case field names to translated messages.
type V10ValidationError map[string]string

// Error lists the failures as "field: message" sorted by field.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	keys := make([]string, 0, len(vs))
	for k := range vs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + vs[k]
	}

	return strings.Join(parts, "; ")
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// V10Validator implements Validator with go-playground/validator v10 and
// English messages.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	trans, ok := ut.New(english, english).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	for _, rule := range customRules {
		if err := registerRule(validate, trans, rule); err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: validate, translator: trans}, nil
}

// Validate returns V10ValidationError when a tag fails and any other
// error (such as a non-struct argument) unchanged.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}

	return out
}

func registerRule(validate *validator.Validate, trans ut.Translator, rule customRule) error {
	err := validate.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && rule.valid(s)
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation(rule.tag, trans,
		func(t ut.Translator) error { return t.Add(rule.tag, rule.message, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("validation message not translated", "tag", fe.Tag(), "error", err)
				return fe.Error()
			}
			return msg
		},
	)
}
