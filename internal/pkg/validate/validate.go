package validate

import (
	"fmt"
	"strings"

	"github.com/go-otp-api/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// FieldError describes one failed constraint on one field.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      string `json:"value,omitempty"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("field '%s' failed '%s'", e.Field, e.Constraint)
}

// Errors is a structured list of field failures that also satisfies error.
type Errors []FieldError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.String()
	}
	return strings.Join(msgs, "; ")
}

// Struct validates s using its validate tags and returns the failures as a
// structured list, or nil when everything passes.
func Struct(s interface{}) Errors {
	return collect("", v.Struct(s))
}

// GenerateRequest validates an issuance request: the channel must be known
// and the recipient must be well-formed for that channel (RFC 5322 address
// for email, E.164 number for sms).
func GenerateRequest(recipient string, channel domain.Channel) Errors {
	var errs Errors
	if recipient == "" {
		errs = append(errs, FieldError{Field: "recipient", Constraint: "required"})
	}
	if !channel.Valid() {
		errs = append(errs, FieldError{Field: "channel", Constraint: "oneof=email sms", Value: string(channel)})
		return errs
	}
	if recipient == "" {
		return errs
	}
	switch channel {
	case domain.ChannelEmail:
		errs = append(errs, collect("recipient", v.Var(recipient, "email"))...)
	case domain.ChannelSMS:
		errs = append(errs, collect("recipient", v.Var(recipient, "e164"))...)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// VerifyRequest validates a verification request. The code is checked for
// shape only (4-10 digits); matching is the lifecycle manager's job.
func VerifyRequest(verificationID, code string) Errors {
	var errs Errors
	if verificationID == "" {
		errs = append(errs, FieldError{Field: "verification_id", Constraint: "required"})
	}
	errs = append(errs, collect("code", v.Var(code, "required,number,min=4,max=10"))...)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// collect converts validator errors into FieldErrors. fallbackField is used
// for Var validations, which carry no field name of their own.
func collect(fallbackField string, err error) Errors {
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{{Field: fallbackField, Constraint: err.Error()}}
	}
	var errs Errors
	for _, fe := range ve {
		field := fe.Field()
		if field == "" {
			field = fallbackField
		}
		errs = append(errs, FieldError{
			Field:      field,
			Constraint: fe.Tag(),
			Value:      fmt.Sprintf("%v", fe.Value()),
		})
	}
	return errs
}
