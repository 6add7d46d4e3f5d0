// Package validation validates map generation requests.
//
// It uses go-playground/validator for the struct tags on
// models.GenerationRequest, with three domain rules registered on top:
//   - callsign: an amateur callsign, optionally with portable prefix/suffix
//   - continent: a continent code or name known to the reference tables
//   - locator: a 4 or 6 character Maidenhead locator
//
// Field names in errors are the request's JSON names.
//
// # Usage Example
//
//	v := validation.New(refdata.Default())
//	result := v.ValidateRequest(req)
//	if !result.Valid {
//	    for _, err := range result.Errors {
//	        fmt.Printf("%s: %s\n", err.Field, err.Message)
//	    }
//	}
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"evalgo.org/gridmapper/internal/contestlog"
	"evalgo.org/gridmapper/internal/maidenhead"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/models"
)

// Validator validates generation requests.
type Validator struct {
	// structValidator validates Go struct constraints and tags
	structValidator *validator.Validate

	tables *refdata.Tables
}

// ValidationError represents a single validation error with field-level details.
type ValidationError struct {
	// Field is the JSON name of the field that failed validation
	Field string `json:"field"`

	// Message describes why the validation failed
	Message string `json:"message"`

	// Value is the invalid value that caused the error (optional)
	Value interface{} `json:"value,omitempty"`
}

// ValidationResult represents the complete result of a validation operation.
type ValidationResult struct {
	// Valid is true if validation passed, false otherwise
	Valid bool `json:"valid"`

	// Errors contains all validation errors found (empty if Valid is true)
	Errors []ValidationError `json:"errors,omitempty"`
}

// Error summarises the result as a single message.
func (r *ValidationResult) Error() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// New creates a Validator resolving continents against tables.
func New(tables *refdata.Tables) *Validator {
	sv := validator.New(validator.WithRequiredStructEnabled())

	sv.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{structValidator: sv, tables: tables}

	// Registration only fails for empty tags or nil functions.
	_ = sv.RegisterValidation("callsign", func(fl validator.FieldLevel) bool {
		return contestlog.IsCallsign(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
	_ = sv.RegisterValidation("continent", func(fl validator.FieldLevel) bool {
		_, err := v.tables.NormalizeContinent(fl.Field().String())
		return err == nil
	})
	_ = sv.RegisterValidation("locator", func(fl validator.FieldLevel) bool {
		return maidenhead.Valid(fl.Field().String())
	})

	return v
}

// ValidateRequest checks a request's fields. The request should already be
// normalised.
func (v *Validator) ValidateRequest(req *models.GenerationRequest) *ValidationResult {
	err := v.structValidator.Struct(req)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "request", Message: err.Error()}},
		}
	}

	result := &ValidationResult{Valid: false}
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldPath(fe),
			Message: message(fe),
			Value:   fe.Value(),
		})
	}
	return result
}

// ValidateRequestJSON parses and validates a request document.
func (v *Validator) ValidateRequestJSON(data []byte) (*models.GenerationRequest, *ValidationResult) {
	var req models.GenerationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Field:   "document",
					Message: fmt.Sprintf("Invalid JSON: %v", err),
				},
			},
		}
	}

	req.Normalize()
	return &req, v.ValidateRequest(&req)
}

// fieldPath drops the struct name from the namespace: "GenerationRequest.continents[1]" -> "continents[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "callsign":
		return "is not a valid amateur callsign"
	case "continent":
		return "is not a known continent code or name"
	case "locator":
		return "must be a 4 or 6 character Maidenhead locator"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
