package core

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	dateFormatTag  = "dateformat"
	dateFormatText = "date must be in YYYY-MM-DD format"

	ownerKeysTag  = "owner_keys"
	ownerKeysText = "at least one non-blank owner key is required"
)

// DateFormat is the single calendar format accepted on input rows.
const DateFormat = "2006-01-02"

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = Validate.RegisterValidation(dateFormatTag, dateFormatValidation)
	RegisterCustomTranslation(dateFormatTag, dateFormatText)

	_ = Validate.RegisterValidation(ownerKeysTag, ownerKeysValidation)
	RegisterCustomTranslation(ownerKeysTag, ownerKeysText)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// dateFormatValidation only allows dates in the YYYY-MM-DD format.
func dateFormatValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateFormat, fl.Field().String())
	return err == nil
}

// ownerKeysValidation requires at least one non-blank key in a string slice.
func ownerKeysValidation(fl validator.FieldLevel) bool {
	keys, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, k := range keys {
		if CleanString(k) != "" {
			return true
		}
	}
	return false
}
