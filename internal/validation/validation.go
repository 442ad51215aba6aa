// Package validation checks path parameters and request bodies before any
// storage call is made. Every check collects all violations and reports them
// as a single 400 error.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/usersapi/internal/apperror"
	"github.com/patric-chuzhbe/usersapi/internal/models"
)

// Operation selects the body rules: create requires every field, update
// requires at least one.
type Operation int

const (
	OperationCreate Operation = iota
	OperationUpdate
)

// Violation messages.
const (
	MsgNameRequired    = "Name is required"
	MsgEmailRequired   = "Email is required"
	MsgUpdateNoFields  = "At least one field (name or email) is required for update"
	MsgNameNotString   = "Name must be a string"
	MsgNameTooShort    = "Name must have at least 2 characters"
	MsgEmailNotString  = "Email must be a string"
	MsgEmailBadFormat  = "Invalid email format"
	fieldName          = "name"
	fieldEmail         = "email"
	emailValidationTag = "useremail"
	lengthTag          = "utf16min"
	nameRules          = lengthTag + "=2"
)

// emailPart excludes the same whitespace as isBlank, not only ASCII.
const emailPart = `[^\s\x0B\p{Zs}\x{2028}\x{2029}\x{FEFF}@]+`

var emailPattern = regexp.MustCompile(`^` + emailPart + `@` + emailPart + `\.` + emailPart + `$`)

// Validator holds the field rules. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

func validateEmail(fieldLevel validator.FieldLevel) bool {
	return emailPattern.MatchString(fieldLevel.Field().String())
}

// validateUTF16Min checks the length in UTF-16 code units, so a character
// outside the Basic Multilingual Plane counts twice.
func validateUTF16Min(fieldLevel validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fieldLevel.Param())
	if err != nil {
		return false
	}

	return utf16Len(fieldLevel.Field().String()) >= limit
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}

	return n
}

// isBlank reports the whitespace and line terminators that trimName strips:
// Unicode White_Space without NEL, plus the byte order mark.
func isBlank(r rune) bool {
	if r == '\u0085' {
		return false
	}

	return r == '\uFEFF' || unicode.IsSpace(r)
}

func trimName(name string) string {
	return strings.TrimFunc(name, isBlank)
}

// New registers the custom field rules on a fresh validator instance.
func New() (*Validator, error) {
	validate := validator.New()

	err := validate.RegisterValidation(emailValidationTag, validateEmail)
	if err != nil {
		return nil, err
	}

	err = validate.RegisterValidation(lengthTag, validateUTF16Min)
	if err != nil {
		return nil, err
	}

	return &Validator{validate: validate}, nil
}

// ParseID turns the {id} path parameter into an integer. Empty, non-numeric,
// fractional and out-of-range values are rejected.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.BadRequest(apperror.MsgInvalidID)
	}

	return id, nil
}

// DecodeBody reads a JSON object keyed by field name. An empty body is the
// same as {}.
func DecodeBody(body io.Reader) (map[string]json.RawMessage, error) {
	if body == nil {
		return map[string]json.RawMessage{}, nil
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, apperror.New(http.StatusRequestEntityTooLarge, apperror.MsgBodyTooLarge)
		}
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, apperror.BadRequest(apperror.MsgInvalidBody)
	}

	return fields, nil
}

// ValidateBody applies the rules for op and returns the fields that were
// provided. Nothing is returned unless every check passes.
//
// A field counts for the required checks only when it holds a non-empty
// value; null, "", 0 and false do not. Any field that is present, null
// included, must still pass the type and format checks.
func (v *Validator) ValidateBody(op Operation, body map[string]json.RawMessage) (models.UserPatch, error) {
	var violations []string

	rawName, hasName := body[fieldName]
	rawEmail, hasEmail := body[fieldEmail]
	nameSet := hasName && !isEmptyValue(rawName)
	emailSet := hasEmail && !isEmptyValue(rawEmail)

	switch op {
	case OperationCreate:
		if !nameSet {
			violations = append(violations, MsgNameRequired)
		}
		if !emailSet {
			violations = append(violations, MsgEmailRequired)
		}
	case OperationUpdate:
		if !nameSet && !emailSet {
			violations = append(violations, MsgUpdateNoFields)
		}
	}

	var patch models.UserPatch

	if hasName {
		name, ok := asString(rawName)
		switch {
		case !ok:
			violations = append(violations, MsgNameNotString)
		case v.validate.Var(trimName(name), nameRules) != nil:
			violations = append(violations, MsgNameTooShort)
		default:
			patch.Name = &name
		}
	}

	if hasEmail {
		email, ok := asString(rawEmail)
		switch {
		case !ok:
			violations = append(violations, MsgEmailNotString)
		case v.validate.Var(email, emailValidationTag) != nil:
			violations = append(violations, MsgEmailBadFormat)
		default:
			patch.Email = &email
		}
	}

	if len(violations) > 0 {
		return models.UserPatch{}, apperror.Violations(violations)
	}

	return patch, nil
}

// ValidateCreate checks a create body and returns the new user fields.
func (v *Validator) ValidateCreate(body map[string]json.RawMessage) (models.NewUser, error) {
	patch, err := v.ValidateBody(OperationCreate, body)
	if err != nil {
		return models.NewUser{}, err
	}

	return models.NewUser{
		Name:  *patch.Name,
		Email: *patch.Email,
	}, nil
}

// ValidateUpdate checks a partial-update body.
func (v *Validator) ValidateUpdate(body map[string]json.RawMessage) (models.UserPatch, error) {
	return v.ValidateBody(OperationUpdate, body)
}

// isEmptyValue reports null, false, "" and any zero number.
func isEmptyValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}

	switch trimmed[0] {
	case 'n', 'f':
		return true
	case '"':
		s, ok := asString(trimmed)
		return ok && s == ""
	case '{', '[', 't':
		return false
	}

	var number float64
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return false
	}

	return number == 0
}

// asString decodes a JSON string. Null is not a string.
func asString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}

	return s, true
}
