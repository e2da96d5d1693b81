package models

import "fmt"

// ValidationError describes a single invalid form field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Validator is the pure-function validation collaborator. The registration
// service runs it as an upstream gate before persisting anything.
type Validator func(form RegistrationForm) []ValidationError

// ValidateForm is the default Validator: required-field checks only. The date
// format follows the registry convention YYYY-MM-DD but is checked for
// presence here, not parsed; the server applies the authoritative rules.
func ValidateForm(form RegistrationForm) []ValidationError {
	var errs []ValidationError

	required := []struct {
		field string
		value string
	}{
		{"child_name", form.ChildName},
		{"sex", form.Sex},
		{"date_of_birth", form.DateOfBirth},
		{"place_of_birth", form.PlaceOfBirth},
		{"mother_name", form.MotherName},
	}

	for _, r := range required {
		if r.value == "" {
			errs = append(errs, ValidationError{Field: r.field, Message: "is required"})
		}
	}

	if form.Sex != "" && form.Sex != "male" && form.Sex != "female" {
		errs = append(errs, ValidationError{Field: "sex", Message: "must be male or female"})
	}

	// Approval is the registry's decision; a client form may only move a
	// record between draft and submitted.
	switch form.Status {
	case "", RegistrationStatusDraft, RegistrationStatusSubmitted:
	default:
		errs = append(errs, ValidationError{Field: "status", Message: "must be draft or submitted"})
	}

	return errs
}
