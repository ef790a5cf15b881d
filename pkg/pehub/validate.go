package pehub

import (
	"errors"
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

var (
	validate     *validator.Validate
	textPolicy   = bluemonday.StrictPolicy()
	simpleEmail  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	fieldNotices = map[string]i18n.Key{
		"name":    i18n.NameRequired,
		"email":   i18n.EmailInvalid,
		"message": i18n.MessageTooShort,
	}
)

func init() {
	validate = validator.New()

	// Report json names instead of Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return simpleEmail.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("storage_type", func(fl validator.FieldLevel) bool {
		return taxonomy.IsStorageType(fl.Field().String())
	})
}

// validateStruct runs tag validation and converts failures into a
// ValidationError carrying localized message keys.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		key, ok := fieldNotices[fe.Field()]
		if !ok {
			key = i18n.InvalidInput
		}
		fields = append(fields, FieldError{Field: fe.Field(), Message: key})
	}
	return newValidationError(fields...)
}

// SanitizeText strips all markup from user-supplied text and trims it.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
