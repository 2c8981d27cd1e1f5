package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidIPv4 is returned when a value is not a dotted-quad IPv4 address
var ErrInvalidIPv4 = errors.New("invalid IPv4 address")

// Four decimal octets 0-255, no leading zeros, nothing around them.
var dottedQuad = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])$`)

var locale = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

var slug = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names in validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidators()
}

func registerCustomValidators() {
	_ = validate.RegisterValidation("dottedquad", func(fl validator.FieldLevel) bool {
		return IsIPv4(fl.Field().String())
	})
	_ = validate.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
		return IsLocale(fl.Field().String())
	})
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.MatchString(fl.Field().String())
	})
}

// IsIPv4 reports whether s is a strict dotted-quad IPv4 address
func IsIPv4(s string) bool {
	return dottedQuad.MatchString(s)
}

// ValidateIPv4 returns ip unchanged if it is a strict dotted-quad address
func ValidateIPv4(ip string) (string, error) {
	if !IsIPv4(ip) {
		return "", ErrInvalidIPv4
	}
	return ip, nil
}

// IsLocale reports whether s looks like "en" or "pt-BR"
func IsLocale(s string) bool {
	return locale.MatchString(s)
}

// ValidateStruct validates s against its validate tags
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// FieldErrors flattens validation errors into field -> failed tag
func FieldErrors(err error) map[string]interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}
