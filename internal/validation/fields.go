package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/student-auth/studentauth/internal/errors"
)

var (
	fieldsOnce sync.Once
	fields     *validator.Validate
)

// fieldValidator returns the shared struct validator with the form tags
// registered. validator.Validate caches struct metadata and is safe for
// concurrent use.
func fieldValidator() *validator.Validate {
	fieldsOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Registration cannot fail for these static tag names.
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return ValidMobile(fl.Field().String())
		})
		_ = v.RegisterValidation("passout_year", func(fl validator.FieldLevel) bool {
			if fl.Field().Kind() == reflect.String {
				year, ok := ParsePassoutYear(fl.Field().String())
				return ok && ValidPassoutYear(year)
			}
			return ValidPassoutYear(int(fl.Field().Int()))
		})
		// maxbytes bounds the encoded length; max counts runes.
		_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			limit, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len(fl.Field().String()) <= limit
		})
		fields = v
	})
	return fields
}

// Fields checks struct tags on v and returns the first failure as an
// *errors.ErrFieldInvalid. Struct fields are checked in declaration order.
func Fields(v any) error {
	err := fieldValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validation: %w", err)
	}
	fe := verrs[0]
	return errors.NewFieldInvalid(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "mobile":
		return MsgInvalidMobile
	case "passout_year":
		return MsgInvalidPassoutYear
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Enter a valid email address!"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
