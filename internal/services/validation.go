package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	tronAddressRe = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
	bscAddressRe  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	txHashRe      = regexp.MustCompile(`^(0x)?[A-Za-z0-9]+$`)
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a validator that also understands
// decimal.Decimal fields and the chain address tags.
func NewValidationHelper() *ValidationHelper {
	v := validator.New()

	// decimal fields validate as their float value so gt/lte work on them
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("tron_address", func(fl validator.FieldLevel) bool {
		return tronAddressRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("bsc_address", func(fl validator.FieldLevel) bool {
		return bscAddressRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("tx_hash", func(fl validator.FieldLevel) bool {
		return txHashRe.MatchString(fl.Field().String())
	})

	return &ValidationHelper{validator: v}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// ValidateVar checks a single value against a tag list.
func (vh *ValidationHelper) ValidateVar(value any, tag string) error {
	return vh.validator.Var(value, tag)
}

// Money reports whether d is a positive amount with at most two decimals.
func Money(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(2))
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
