package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/applypilot/internal/types"
)

// validateDraft checks the required fields and the salary invariant locally.
// The first violation is returned as a field-level ValidationError; nothing
// reaches the backend.
func validateDraft(draft *ProfileDraft) error {
	validate := validator.New()
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &types.ValidationError{Field: draftFieldName(fe.Field()), Message: draftFieldMessage(fe)}
}

func draftFieldName(field string) string {
	switch field {
	case "FullName":
		return "full_name"
	case "DesiredTitle":
		return "desired_title"
	case "Location":
		return "location"
	case "SalaryMin":
		return "salary_min"
	case "SalaryMax":
		return "salary_max"
	default:
		return field
	}
}

func draftFieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of Remote, Hybrid, On-site, Flexible"
	case "gte":
		return "must not be negative"
	case "gtefield":
		return "must be greater than or equal to salary_min"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// validateUpload checks the artifact constraints before any network call:
// the accepted document type and the size ceiling.
func validateUpload(up *ResumeUpload) error {
	if len(up.Data) == 0 {
		return &types.ValidationError{Field: "file", Message: "is required"}
	}
	if up.ContentType != resumeContentType {
		return &types.ValidationError{Field: "file", Message: "must be a PDF document"}
	}
	if len(up.Data) > maxResumeBytes {
		return &types.ValidationError{Field: "file", Message: "must be 5MB or smaller"}
	}
	return nil
}
