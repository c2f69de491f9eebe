package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{3,30}$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("schema"), ",", 2)[0]
		}
		return name
	})

	registerCustomValidations()
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

func registerCustomValidations() {
	validate.RegisterValidation("latitude_deg", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		return v >= -90 && v <= 90
	})
	validate.RegisterValidation("longitude_deg", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		return v >= -180 && v <= 180
	})
	validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("decision_friend", oneOf("ACCEPT", "DECLINE"))
	validate.RegisterValidation("decision_flag", oneOf("RESOLVE", "DISMISS"))
	validate.RegisterValidation("decision_review", oneOf("APPROVE", "REJECT"))
	validate.RegisterValidation("reaction_kind", oneOf("LIKE", "DISLIKE"))
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out[field] = "This field is required"
		case "email":
			out[field] = "Invalid email format"
		case "min":
			out[field] = "Value is too short (min: " + fe.Param() + ")"
		case "max":
			out[field] = "Value is too long (max: " + fe.Param() + ")"
		case "gte":
			out[field] = "Value must be at least " + fe.Param()
		case "lte":
			out[field] = "Value must be at most " + fe.Param()
		case "url":
			out[field] = "Invalid URL format"
		case "latitude_deg":
			out[field] = "Latitude must be between -90 and 90"
		case "longitude_deg":
			out[field] = "Longitude must be between -180 and 180"
		case "username":
			out[field] = "Username must be 3-30 letters, digits, '_' or '.'"
		case "decision_friend":
			out[field] = "Decision must be ACCEPT or DECLINE"
		case "decision_flag":
			out[field] = "Action must be RESOLVE or DISMISS"
		case "decision_review":
			out[field] = "Decision must be APPROVE or REJECT"
		case "reaction_kind":
			out[field] = "Reaction must be LIKE or DISLIKE"
		default:
			out[field] = "Invalid value"
		}
	}

	return out
}
