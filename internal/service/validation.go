package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var validate = newValidator()

// userRules mirrors the stored user with its field constraints.
type userRules struct {
	Name    string `json:"name" validate:"required,min=2"`
	Age     *int   `json:"age" validate:"required,gte=0"`
	Email   string `json:"email" validate:"required,basic_email"`
	Address string `json:"address"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateNew checks a create request: every required field must be present
// and every constraint must hold.
func ValidateNew(f Fields) error {
	rules := userRules{Age: f.Age}
	if f.Name != nil {
		rules.Name = *f.Name
	}
	if f.Email != nil {
		rules.Email = *f.Email
	}
	if f.Address != nil {
		rules.Address = *f.Address
	}
	return toValidationError(validate.Struct(rules), f.AgeInvalid)
}

// ValidatePatch checks only the fields an update request supplied. The stored
// record already satisfies every constraint, so this is equivalent to
// validating the record after the patch is applied.
func ValidatePatch(f Fields) error {
	var rules userRules
	var fields []string
	if f.Name != nil {
		rules.Name = *f.Name
		fields = append(fields, "Name")
	}
	if f.Age != nil {
		rules.Age = f.Age
		fields = append(fields, "Age")
	}
	if f.Email != nil {
		rules.Email = *f.Email
		fields = append(fields, "Email")
	}
	if len(fields) == 0 {
		return toValidationError(nil, f.AgeInvalid)
	}
	return toValidationError(validate.StructPartial(rules, fields...), f.AgeInvalid)
}

func toValidationError(err error, ageInvalid bool) error {
	var out []FieldError
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			if ageInvalid && fe.Field() == "age" {
				continue
			}
			out = append(out, FieldError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
	}
	if ageInvalid {
		out = append(out, FieldError{Field: "age", Tag: "integer", Message: "age must be an integer"})
	}
	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Fields: out}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "gte":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "basic_email":
		return fe.Field() + " is not a valid email address"
	default:
		return fe.Field() + " is invalid"
	}
}
