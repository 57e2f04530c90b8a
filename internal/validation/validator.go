// Package validation checks chat and contact payloads against their fixed
// shapes and reports every violated field.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"resume-relay/internal/models"
)

// Error is returned for any payload that fails its shape.
type Error struct {
	Issues []models.Issue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Field == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, is.Field+": "+is.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// chatResponseWire keeps presence information for the upstream reply so a
// missing "handled" is not mistaken for false.
type chatResponseWire struct {
	Reply   *string `json:"reply" validate:"required"`
	Handled *bool   `json:"handled" validate:"required"`
}

// contactResponseWire does the same for the contact acknowledgement.
type contactResponseWire struct {
	Success *bool `json:"success" validate:"required"`
}

// ValidateChatRequest decodes and checks an inbound chat payload.
func ValidateChatRequest(raw []byte) (models.ChatRequest, error) {
	var req models.ChatRequest
	if err := check(raw, &req); err != nil {
		return models.ChatRequest{}, err
	}
	return req, nil
}

// ValidateContactRequest decodes and checks a lead-capture payload.
func ValidateContactRequest(raw []byte) (models.ContactRequest, error) {
	var req models.ContactRequest
	if err := check(raw, &req); err != nil {
		return models.ContactRequest{}, err
	}
	req.Email = strings.TrimSpace(req.Email)
	return req, nil
}

// ValidateChatResponse checks the shape of an upstream chat reply.
func ValidateChatResponse(raw []byte) (models.ChatResponse, error) {
	var wire chatResponseWire
	if err := check(raw, &wire); err != nil {
		return models.ChatResponse{}, err
	}
	return models.ChatResponse{Reply: *wire.Reply, Handled: *wire.Handled}, nil
}

// ValidateContactResponse checks the shape of an upstream contact reply.
func ValidateContactResponse(raw []byte) (models.ContactResponse, error) {
	var wire contactResponseWire
	if err := check(raw, &wire); err != nil {
		return models.ContactResponse{}, err
	}
	return models.ContactResponse{Success: *wire.Success}, nil
}

func check(raw []byte, dst any) error {
	if !json.Valid(raw) {
		return &Error{Issues: []models.Issue{{Message: "Malformed JSON"}}}
	}
	if kind := rawKind(raw); kind != "object" && kind != "null" {
		return &Error{Issues: []models.Issue{{Message: "Expected object, received " + kind}}}
	}

	issues := decodeObject(raw, reflect.ValueOf(dst).Elem(), "")

	if err := validate.Struct(dst); err != nil {
		issues = appendIssues(issues, err)
	}

	if len(issues) > 0 {
		return &Error{Issues: issues}
	}
	return nil
}

// decodeObject fills the struct v one field at a time, so a mistyped field
// is reported at its own path and the others are still decoded.
func decodeObject(raw json.RawMessage, v reflect.Value, path string) []models.Issue {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return []models.Issue{mismatch(path, "object", raw)}
	}

	var issues []models.Issue
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := jsonName(t.Field(i))
		if name == "" {
			continue
		}
		fieldRaw, ok := obj[name]
		if !ok {
			continue
		}
		issues = append(issues, decodeValue(fieldRaw, v.Field(i), joinPath(path, name))...)
	}
	return issues
}

func decodeValue(raw json.RawMessage, v reflect.Value, path string) []models.Issue {
	if rawKind(raw) == "null" {
		return nil
	}

	switch {
	case v.Kind() == reflect.Struct:
		return decodeObject(raw, v, path)
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Struct:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return []models.Issue{mismatch(path, "array", raw)}
		}
		var issues []models.Issue
		out := reflect.MakeSlice(v.Type(), len(items), len(items))
		for i, item := range items {
			issues = append(issues, decodeValue(item, out.Index(i), fmt.Sprintf("%s[%d]", path, i))...)
		}
		v.Set(out)
		return issues
	default:
		if err := json.Unmarshal(raw, v.Addr().Interface()); err != nil {
			return []models.Issue{mismatch(path, jsonKind(v.Type()), raw)}
		}
		return nil
	}
}

func mismatch(path, want string, raw json.RawMessage) models.Issue {
	return models.Issue{Field: path, Message: fmt.Sprintf("Expected %s, received %s", want, rawKind(raw))}
}

// rawKind names the JSON type of an already valid value.
func rawKind(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "null"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func jsonName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Ptr:
		return jsonKind(t.Elem())
	default:
		return "number"
	}
}

// fieldPath drops the root type name: "ChatRequest.history[1].role" becomes
// "history[1].role".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "oneof":
		opts := strings.Fields(fe.Param())
		return fmt.Sprintf("Invalid enum value. Expected '%s'", strings.Join(opts, "' | '"))
	case "email":
		return "Invalid email"
	case "max":
		if fe.Kind() == reflect.Int {
			return fmt.Sprintf("Must be at most %s", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("Failed %q check", fe.Tag())
	}
}

func appendIssues(issues []models.Issue, err error) []models.Issue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(issues, models.Issue{Message: err.Error()})
	}
	for _, fe := range verrs {
		issues = appendUnique(issues, models.Issue{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return issues
}

func appendUnique(issues []models.Issue, is models.Issue) []models.Issue {
	for _, existing := range issues {
		if existing.Field == is.Field {
			return issues
		}
	}
	return append(issues, is)
}
