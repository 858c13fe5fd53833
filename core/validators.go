package core

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	// Algerian mobile numbers: 05, 06 or 07 followed by 8 digits, optionally with the +213 prefix
	dzPhoneTag   = "dzphone"
	dzPhoneText  = "invalid phone number"
	dzPhoneRegex = regexp.MustCompile(`^(\+213|0)[5-7]\d{8}$`)

	dateTag  = "date"
	dateText = "invalid date, expected YYYY-MM-DD"

	hhmmTag   = "hhmm"
	hhmmText  = "invalid time, expected HH:MM"
	hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(dzPhoneTag, dzPhoneValidation)
	RegisterCustomTranslation(validate, translator, dzPhoneTag, dzPhoneText)

	_ = validate.RegisterValidation(dateTag, dateValidation)
	RegisterCustomTranslation(validate, translator, dateTag, dateText)

	_ = validate.RegisterValidation(hhmmTag, hhmmValidation)
	RegisterCustomTranslation(validate, translator, hhmmTag, hhmmText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateError renders err as a single user facing message.
// Validation errors are translated field by field; anything else yields its message.
func TranslateError(err error, translator ut.Translator) string {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		msgs := make([]string, 0, len(origErr))
		for _, fe := range origErr {
			msgs = append(msgs, fe.Field()+": "+fe.Translate(translator))
		}
		return strings.Join(msgs, "; ")
	case *ValidationError:
		if origErr.Err == nil && len(origErr.Fields) > 0 {
			msgs := make([]string, 0, len(origErr.Fields))
			for _, fe := range origErr.Fields {
				msgs = append(msgs, fe.Field+": "+fe.Error)
			}
			return strings.Join(msgs, "; ")
		}
		return origErr.Error()
	default:
		return err.Error()
	}
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func dzPhoneValidation(fl validator.FieldLevel) bool {
	phone := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(fl.Field().String())
	return dzPhoneRegex.MatchString(phone)
}

func dateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func hhmmValidation(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}
