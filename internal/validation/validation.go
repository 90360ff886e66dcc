// Package validation checks operation parameters before any computation
// starts. Option structs declare their bounds with `validate` struct tags;
// failures come back as ERR_401_INVALID_PARAMETER errors naming the
// boundary (json) field.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		// Report json names (per_item, min_sim) rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its `validate` tags. The first failing field
// is returned as an InvalidParameter error; the remaining failures are
// listed in its message.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return lmerrors.New(lmerrors.ErrCodeInvalidParameter, err.Error(), err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}

	return lmerrors.New(lmerrors.ErrCodeInvalidParameter, strings.Join(msgs, "; "), err).
		WithDetail("field", verrs[0].Field())
}

// describe renders one field failure.
func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s, got %v", field, fe.Param(), fe.Value())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s, got %v", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be > %s, got %v", field, fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("%s must be < %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
