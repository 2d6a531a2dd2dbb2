package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/newsfeed/server/internal/http/response"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// newValidator returns a validator that reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// bcrypt reads at most 72 bytes, while max counts runes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON object from the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// normalizer is implemented by requests that clean their fields before validation
type normalizer interface {
	normalize()
}

// bind decodes, normalizes and validates the body, writing a 400 envelope on failure
func bind(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidBody, invalidBodyMessage(err))
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := v.Struct(dst); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func invalidBodyMessage(err error) string {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errEmptyBody):
		return "Request body is empty."
	case errors.As(err, &maxErr):
		return "Request body is too large."
	default:
		return "Request body is not valid JSON."
	}
}

// validationMessage renders field errors as "field: reason; field: reason"
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Request is invalid."
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, lowerFirst(fe.Param()))
	case "alphanum":
		return fmt.Sprintf("%s must contain only letters and digits", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
