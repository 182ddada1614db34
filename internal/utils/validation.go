package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		v = validator.New()
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeDate(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
	validate = v
}

// Validator returns the shared validator used for request bodies and
// update payloads.
func Validator() *validator.Validate {
	return validate
}

// NormalizeEmail lowercases and trims an address. Emails are stored in this
// form so lookups match regardless of how the caller typed them.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeDate accepts an ISO 8601 calendar date or timestamp and returns
// the YYYY-MM-DD form.
func NormalizeDate(s string) (string, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02"), true
	}
	return "", false
}

// FieldErrors converts a binding or validation error into field errors.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, e := range verrs {
			out = append(out, FieldError{Field: fieldPath(e), Message: fieldMessage(e.Tag(), e.Param(), e.Kind())})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return []FieldError{{Field: field, Message: "must be a " + typeErr.Type.String()}}
	}
	if errors.Is(err, io.EOF) {
		return []FieldError{{Field: "body", Message: "request body is required"}}
	}
	return []FieldError{{Field: "body", Message: "Invalid request payload"}}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func fieldMessage(tag, param string, kind reflect.Kind) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if kind == reflect.String {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		if kind == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", param)
		}
		return "must be at least " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "isodate":
		return "must be a valid ISO 8601 date"
	case "clock":
		return "must be a time in HH:MM format"
	case "uuid":
		return "must be a valid id"
	case "unique":
		return "must not contain duplicates"
	}
	return "is invalid"
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a 400 response with field errors and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		ValidationFailed(c, FieldErrors(err))
		return false
	}
	return true
}

// BindPayload decodes the request body into a generic map for partial updates.
func BindPayload(c *gin.Context) (map[string]interface{}, bool) {
	payload := map[string]interface{}{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return payload, true
		}
		ValidationFailed(c, FieldErrors(err))
		return nil, false
	}
	return payload, true
}
