package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldErrors maps a form field name to a message suitable for showing next
// to that field.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fe[f])
	}
	return strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries field errors.
func IsValidationError(err error) bool {
	var fe FieldErrors
	return errors.As(err, &fe)
}

// ValidateCredentials checks the login form.
func ValidateCredentials(c Credentials) error {
	return structErrors(validate.Struct(c))
}

// ValidateRegistration checks the register form, including that both
// password entries match.
func ValidateRegistration(r Registration) error {
	return structErrors(validate.Struct(r))
}

// ValidateTaskInput checks a create or update body. requireTitle is set for
// creates; updates may omit the title but never blank it.
func ValidateTaskInput(in TaskInput, requireTitle bool) error {
	fe := FieldErrors{}
	switch {
	case in.Title == nil && requireTitle:
		fe["title"] = "Title is required"
	case in.Title != nil:
		if err := ValidateTitle(*in.Title); err != nil {
			fe["title"] = err.Error()
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		fe["status"] = fmt.Sprintf("Unknown status %q", *in.Status)
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// ValidateTitle rejects blank task titles.
func ValidateTitle(s string) error {
	if validate.Var(strings.TrimSpace(s), "required") != nil {
		return errors.New("Title is required")
	}
	return nil
}

// ValidateEmail rejects malformed email addresses.
func ValidateEmail(s string) error {
	if validate.Var(strings.TrimSpace(s), "required,email") != nil {
		return errors.New("Invalid email address")
	}
	return nil
}

// ValidateName enforces the minimum display-name length.
func ValidateName(s string) error {
	if validate.Var(strings.TrimSpace(s), "required,min=2") != nil {
		return errors.New("Name must be at least 2 characters")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(s string) error {
	if validate.Var(s, "required,min=6") != nil {
		return errors.New("Password must be at least 6 characters")
	}
	return nil
}

// ValidatePasswordMatch checks the confirmation entry.
func ValidatePasswordMatch(password, confirm string) error {
	if password != confirm {
		return errors.New("Passwords don't match")
	}
	return nil
}

func structErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := FieldErrors{}
	for _, v := range verrs {
		name := fieldName(v.StructField())
		if _, seen := fe[name]; seen {
			continue
		}
		fe[name] = fieldMessage(v)
	}
	return fe
}

func fieldName(structField string) string {
	switch structField {
	case "ConfirmPassword":
		return "confirmPassword"
	default:
		return strings.ToLower(structField)
	}
}

func fieldMessage(v validator.FieldError) string {
	switch v.StructField() {
	case "Email":
		return "Invalid email address"
	case "Password":
		if v.Tag() == "min" {
			return "Password must be at least 6 characters"
		}
		return "Password is required"
	case "Name":
		return "Name must be at least 2 characters"
	case "ConfirmPassword":
		return "Passwords don't match"
	}
	return fmt.Sprintf("%s is invalid", v.Field())
}
