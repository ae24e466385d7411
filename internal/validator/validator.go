package validator

import (
	"math"
	"reflect"
	"strings"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator combines struct tag validation with request level rules.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a validator with the custom tags registered
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateReportRequest checks a report request and returns ValidationErrors
// listing every offending field.
func (v *Validator) ValidateReportRequest(req *models.ReportRequest) error {
	if req == nil {
		return ValidationErrors{{Field: "request", Message: "is required", Rule: "required"}}
	}

	if err := v.ValidateStruct(req); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("finite", validateFinite)
	validate.RegisterValidation("nonneg", validateNonNegative)
	validate.RegisterValidation("notblank", validateNotBlank)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		v := fl.Field().Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return true
	}
}

func validateNonNegative(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		return fl.Field().Float() >= 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fl.Field().Int() >= 0
	default:
		return true
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
