package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// entityValidate is shared by Pattern and Relationship validation.
var entityValidate *validator.Validate

func init() {
	entityValidate = validator.New()
	_ = entityValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateNotBlank rejects strings that are empty after trimming.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateStruct runs the struct tags on v and converts the first failure into
// an InvariantViolationError.
func validateStruct(entity, id string, v any) error {
	err := entityValidate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &InvariantViolationError{Entity: entity, ID: id, Field: "struct", Reason: err.Error()}
	}

	fe := verrs[0]
	return &InvariantViolationError{
		Entity: entity,
		ID:     id,
		Field:  fe.Field(),
		Reason: describeFailure(fe),
	}
}

func describeFailure(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "must not be empty"
	case "gte", "lte":
		return fmt.Sprintf("must be within [0,1], got %v", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
