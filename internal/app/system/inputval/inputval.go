// Package inputval validates decoded request bodies using waffle/pantry/validate.
//
// Presence is checked first with Missing, in the order the caller lists the
// fields, so the error always names the first absent field. Format rules
// run afterwards through Validate using struct tags:
//
//	type projectInput struct {
//	    Title  string `json:"title" validate:"required,max=200" label:"Title"`
//	    Status string `json:"status" validate:"projectstatus" label:"Status"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() {
//	    fe := res.Errors[0]
//	    apierr.Write(w, r, log, apierr.Validation(fe.Field, fe.Message))
//	}
package inputval

import (
	"fmt"
	"net/mail"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/researchportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// customValidator is built once with the portal rules registered.
var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

// getValidator returns the singleton validator with custom rules.
func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New(validate.WithStopOnFirstError())

		str := func(fn func(string) bool) func(any) bool {
			return func(value any) bool {
				s, ok := value.(string)
				return ok && fn(s)
			}
		}

		customValidator.RegisterRuleFunc("role", str(models.IsValidRole), "role")
		customValidator.RegisterRuleFunc("isodate", str(IsValidISODate), "isodate")
		customValidator.RegisterRuleFunc("objectid", str(IsValidObjectID), "objectid")
		customValidator.RegisterRuleFunc("projectstatus", str(models.IsValidProjectStatus), "projectstatus")
		customValidator.RegisterRuleFunc("decision", str(models.IsValidDecision), "decision")
		customValidator.RegisterRuleFunc("cgpa", func(value any) bool {
			switch v := value.(type) {
			case float64:
				return IsValidCGPA(v)
			case *float64:
				return v != nil && IsValidCGPA(*v)
			}
			return false
		}, "cgpa")
	})
	return customValidator
}

// Validate runs the struct's `validate` tags and returns user-facing
// messages. FieldError.Field is the json name of the field, so it can be
// echoed back to API clients.
//
// Rules registered here, on top of pantry/validate's built-ins:
//   - role: faculty or student
//   - isodate: YYYY-MM-DD calendar date
//   - objectid: 24-char hex ObjectID
//   - projectstatus: open or closed
//   - decision: accepted or rejected
//   - cgpa: number between 0 and 10
func Validate(s any) *Result {
	result := &Result{}

	v := getValidator()
	err := v.Struct(s)
	if err == nil {
		return result
	}

	// Get field labels from struct tags
	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}

			msg := formatMessage(label, e.Rule, e.Param)
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: msg,
			})
		}
	}

	return result
}

// getFieldLabels extracts the "label" tag from struct fields.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		// Get the field name (use json tag if available)
		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}

		// Get the label
		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

// formatMessage creates a user-friendly message for a validation rule.
func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	case "role":
		return label + " must be one of: " + strings.Join(models.AllRoles(), ", ") + "."
	case "isodate":
		return label + " must be a date in YYYY-MM-DD format."
	case "projectstatus":
		return label + " must be open or closed."
	case "decision":
		return label + " must be accepted or rejected."
	case "cgpa":
		return label + " must be between 0 and " + strconv.FormatFloat(MaxCGPA, 'f', -1, 64) + "."
	case "objectid":
		return label + " is not a valid ID."
	default:
		return label + " is invalid."
	}
}

// IsValidEmail checks if the given string has a valid email format.
//
// This function uses Go's net/mail.ParseAddress for RFC 5322 compliant validation.
// RFC 5322 defines the Internet Message Format, including email address syntax.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}

	// net/mail.ParseAddress provides RFC 5322 compliant validation.
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	// ParseAddress accepts "Name <email>" format, so verify the address
	// matches what we passed in (just the email part).
	return addr.Address == email
}

// MaxCGPA is the top of the grading scale.
const MaxCGPA = 10.0

// IsValidCGPA reports whether v is on the 0..MaxCGPA scale.
func IsValidCGPA(v float64) bool {
	return v >= 0 && v <= MaxCGPA
}

// IsValidISODate reports whether s is a real calendar date in YYYY-MM-DD form.
func IsValidISODate(s string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return err == nil
}

// IsValidObjectID checks if the given string is a valid MongoDB ObjectID hex.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// Field names one required input and reports whether it was supplied.
type Field struct {
	Name    string
	Present bool
}

// Str is a Field that is present when s has non-space content.
func Str(name, s string) Field {
	return Field{Name: name, Present: strings.TrimSpace(s) != ""}
}

// Ptr is a Field that is present when p is non-nil.
func Ptr[T any](name string, p *T) Field {
	return Field{Name: name, Present: p != nil}
}

// Missing returns a FieldError for the first absent field, or nil.
func Missing(fields ...Field) *FieldError {
	for _, f := range fields {
		if !f.Present {
			return &FieldError{
				Field:   f.Name,
				Label:   f.Name,
				Message: fmt.Sprintf("%s is required", f.Name),
			}
		}
	}
	return nil
}
