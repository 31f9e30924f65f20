package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks request DTOs before they reach the application layer. Field
// names in reported errors follow the json tags so clients see the wire names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		tag := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return field.Name
		}
		return tag
	})
	return v
}

// decodeRequest decodes and validates a JSON request body into dst. On failure
// it writes the error response itself and reports false.
func decodeRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, resp responder, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		resp.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}

	if err := validate.StructCtx(ctx, dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fieldPath(fe)] = ruleMessage(fe)
			}
			resp.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the submitted input is invalid",
				Errors:  details,
			})
			return false
		}
		resp.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}

	return true
}

// fieldPath strips the root struct name from the validator namespace, leaving
// the nested json path ("slots[0].start_time").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must have at least " + fe.Param() + " entries or characters"
	case "max":
		return "must have at most " + fe.Param() + " entries or characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must match the format " + fe.Param()
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}
