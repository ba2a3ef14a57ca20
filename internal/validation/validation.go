package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MaxCustomCodeLength = 50
	MaxURLLength        = 2048
)

var ErrInvalid = errors.New("invalid input")

var (
	ErrCodeEmpty        = errors.New("custom short code must not be empty")
	ErrCodeTooLong      = fmt.Errorf("custom short code must be at most %d characters", MaxCustomCodeLength)
	ErrCodeInvalidChars = errors.New("custom short code must not contain '/', '?', '#', whitespace or control characters")
	ErrCodeReserved     = errors.New("custom short code is reserved")
	ErrURLInvalid       = errors.New("url must be an absolute http or https URL")
	ErrURLTooLong       = fmt.Errorf("url must be at most %d bytes", MaxURLLength)
	ErrContentEmpty     = errors.New("clipboard content must not be empty")
	ErrContentTooLarge  = errors.New("clipboard content is too large")
)

// "list" and "clip" are deliberately absent: a redirect with one of those
// codes shadows the prefix route for single-segment paths.
var reservedWords = map[string]bool{
	"api":         true,
	"health":      true,
	"metrics":     true,
	"qr":          true,
	"static":      true,
	"assets":      true,
	"favicon.ico": true,
	"robots.txt":  true,
}

// Error reports one invalid field. errors.Is(err, ErrInvalid) holds for it.
type Error struct {
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(field string, err error) *Error {
	return &Error{Field: field, Reason: err.Error(), Err: err}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Struct runs the `validate` tags on a request DTO and reports the first
// failing field.
func Struct(v interface{}) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &Error{
			Field:  jsonFieldPath(fe.Namespace()),
			Reason: describe(fe),
		}
	}

	return &Error{Reason: err.Error(), Err: err}
}

// ValidateCustomCode checks a user-chosen redirect code before it is folded.
func ValidateCustomCode(code string) error {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return NewError("custom_short_code", ErrCodeEmpty)
	}
	if utf8.RuneCountInString(trimmed) > MaxCustomCodeLength {
		return NewError("custom_short_code", ErrCodeTooLong)
	}

	for _, r := range trimmed {
		if r == '/' || r == '?' || r == '#' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return NewError("custom_short_code", ErrCodeInvalidChars)
		}
	}

	if IsReserved(trimmed) {
		return NewError("custom_short_code", ErrCodeReserved)
	}

	return nil
}

func ValidateURL(field, raw string) error {
	if len(raw) > MaxURLLength {
		return NewError(field, ErrURLTooLong)
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewError(field, ErrURLInvalid)
	}

	return nil
}

func ValidateClipContent(content string, maxBytes int) error {
	if strings.TrimSpace(content) == "" {
		return NewError("content", ErrContentEmpty)
	}
	if maxBytes > 0 && len(content) > maxBytes {
		return NewError("content", fmt.Errorf("%w: %d bytes exceeds %d", ErrContentTooLarge, len(content), maxBytes))
	}
	return nil
}

// IsReserved reports whether code collides with a fixed route segment.
func IsReserved(code string) bool {
	return reservedWords[strings.ToLower(strings.TrimSpace(code))]
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "http_url", "url":
		return ErrURLInvalid.Error()
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "min":
		return "must contain at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// jsonFieldPath turns "CreateLinkListRequest.Items[1].URL" into "items[1].url".
func jsonFieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}

	var b strings.Builder
	for i, r := range ns {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev, _ := utf8.DecodeLastRuneInString(ns[:i])
				if unicode.IsLower(prev) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
