package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError aggregates per-field validation failures
type ValidationError struct {
	Errors map[string]string
}

// NewValidationError converts validator field errors into a ValidationError
func NewValidationError(fieldErrors validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Errors: make(map[string]string)}
	for _, fe := range fieldErrors {
		ve.Errors[strings.ToLower(fe.Field())] = messageForTag(fe)
	}
	return ve
}

// AddError records a validation failure for a field
func (e *ValidationError) AddError(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	e.Errors[field] = message
}

// HasErrors reports whether any field failed validation
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// GetFieldError returns the failure message for a field, if any
func (e *ValidationError) GetFieldError(field string) (string, bool) {
	msg, ok := e.Errors[field]
	return msg, ok
}

// Error renders failures in a stable field order
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return strings.Join(parts, "; ")
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "latitude":
		return "must be between -90 and 90"
	case "longitude":
		return "must be between -180 and 180"
	case "travel_time":
		return "must be between 1 and 120 minutes"
	case "task_type":
		return "must be one of current, pickup, delivery"
	case "min":
		return fmt.Sprintf("must have at least %s items", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s items", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ValidateTravelTimes checks an isochrone cutoff list: at most 10 entries,
// each positive and at most 120 minutes.
func ValidateTravelTimes(travelTimes []float64) error {
	ve := &ValidationError{Errors: make(map[string]string)}

	if len(travelTimes) == 0 {
		ve.AddError("travel_times", "at least one travel time is required")
	}
	if len(travelTimes) > 10 {
		ve.AddError("travel_times", "at most 10 travel times are allowed")
	}
	for _, tt := range travelTimes {
		if tt <= 0 || tt > 120 {
			ve.AddError("travel_times", "each travel time must be between 1 and 120 minutes")
			break
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// ValidateWaypoints checks a routing waypoint list: at least two points, all
// coordinates in range.
func ValidateWaypoints(points [][2]float64) error {
	ve := &ValidationError{Errors: make(map[string]string)}

	if len(points) < 2 {
		ve.AddError("waypoints", "at least 2 waypoints are required")
	}
	for i, p := range points {
		if err := ValidateCoordinates(p[0], p[1]); err != nil {
			ve.AddError(fmt.Sprintf("waypoints[%d]", i), err.Error())
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}
