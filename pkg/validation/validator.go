package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/richxcame/transitflow/pkg/common"
)

var (
	// Validate is the global validator instance
	Validate *validator.Validate

	// Route, vehicle and driver ids are opaque tokens issued by the store.
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-:.]{0,127}$`)
)

func init() {
	Validate = validator.New()

	// Register custom validators
	_ = Validate.RegisterValidation("latitude", validateLatitude)
	_ = Validate.RegisterValidation("longitude", validateLongitude)
	_ = Validate.RegisterValidation("identifier", validateIdentifier)

	Validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return jsonName(field.Tag.Get("json"), field.Name)
	})
}

// ValidateStruct validates a struct and returns a common validation error
// listing every failing field.
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return common.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, describe(fe))
	}
	return common.NewValidationError(strings.Join(messages, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "latitude":
		return fmt.Sprintf("%s must be between -90 and 90", fe.Field())
	case "longitude":
		return fmt.Sprintf("%s must be between -180 and 180", fe.Field())
	case "identifier":
		return fe.Field() + " is not a valid identifier"
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// validateLatitude checks if latitude is within valid range (-90 to 90)
func validateLatitude(fl validator.FieldLevel) bool {
	latitude := fl.Field().Float()
	return !math.IsNaN(latitude) && latitude >= -90.0 && latitude <= 90.0
}

// validateLongitude checks if longitude is within valid range (-180 to 180)
func validateLongitude(fl validator.FieldLevel) bool {
	longitude := fl.Field().Float()
	return !math.IsNaN(longitude) && longitude >= -180.0 && longitude <= 180.0
}

func validateIdentifier(fl validator.FieldLevel) bool {
	return identifierRegex.MatchString(fl.Field().String())
}

// ValidateIdentifier reports whether id looks like a route, vehicle or driver id.
func ValidateIdentifier(id string) bool {
	return identifierRegex.MatchString(id)
}

// ValidateRadius validates a search radius in metres.
func ValidateRadius(meters float64) error {
	if math.IsNaN(meters) || meters <= 0 {
		return common.NewValidationError(fmt.Sprintf("radius must be positive, got: %v", meters))
	}
	if meters > 50000 {
		return common.NewValidationError(fmt.Sprintf("radius exceeds maximum of 50000 meters, got: %v", meters))
	}
	return nil
}

func jsonName(tag, fallback string) string {
	name := strings.SplitN(tag, ",", 2)[0]
	if name == "" || name == "-" {
		return fallback
	}
	return name
}
