package apperrors

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FromValidation converts the result of an ozzo-validation call into a
// BadRequest error with one detail per failing field. A nil err stays nil.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, ferr := range fieldErrs {
			if ferr != nil {
				fields[name] = ferr.Error()
			}
		}
		return Validation(err, fields)
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return Internal(err)
	}

	return Validation(err, nil)
}
