package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shelfdesk/shelfadmin/apiclient"
)

// GenericMessage is reported when the server gave no usable message.
const GenericMessage = "An error occurred"

// ErrInvalidInput is wrapped by errors produced from local input validation.
var ErrInvalidInput = errors.New("invalid input")

// Error is the single error shape returned by every Manager operation.
// Err keeps the underlying cause for errors.Is / errors.As.
type Error struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error as {"error": true, "message": "..."}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}{Error: true, Message: e.Message})
}

// NormalizeError converts any failure into an *Error. The message comes from
// the server's "error" field, then its "message" field, then GenericMessage.
// It returns nil for a nil err.
func NormalizeError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	out := &Error{Message: GenericMessage, Err: err}
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		out.StatusCode = se.StatusCode
		if msg := se.ServerMessage(); msg != "" {
			out.Message = msg
		}
	}
	return out
}

func validationError(err error) *Error {
	return &Error{
		Message: formatValidationErrors(err),
		Err:     fmt.Errorf("%w: %v", ErrInvalidInput, err),
	}
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = "value"
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
