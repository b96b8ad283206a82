package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/utils"
)

// recordKeyTag checks record ids with utils.ValidKey.
const recordKeyTag = "recordkey"

const missingDeviceOrTimestamp = "Missing deviceId or timestamp"

// validate reads the same binding tags gin uses, so a batch is judged the same
// whether it arrives over HTTP or is passed to the service directly.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidators adds the record validations to v and makes it report
// fields by their JSON names. gin's binding engine needs them before a
// PushRequest can be bound.
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation(recordKeyTag, func(fl validator.FieldLevel) bool {
		return utils.ValidKey(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("notblank", validators.NotBlank)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// ValidatePushRequest checks a whole batch before anything is written. One
// offending record rejects the batch.
func ValidatePushRequest(req models.PushRequest) error {
	return PushValidationError(validate.Struct(req))
}

// PushValidationError turns the validator result for a PushRequest into a
// *ValidationError naming the first bad field, e.g. "words[1].updatedAt".
// A missing deviceId or timestamp takes precedence over record errors. Errors
// that are not field errors are returned unchanged.
func PushValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	for _, fe := range fields {
		if path := fieldPath(fe); path == "deviceId" || path == "timestamp" {
			return &ValidationError{Reason: missingDeviceOrTimestamp}
		}
	}
	fe := fields[0]
	return &ValidationError{Field: fieldPath(fe), Reason: fieldReason(fe)}
}

// fieldPath drops the struct name from the namespace: PushRequest.words[0].id -> words[0].id.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Field() {
	case "id", "wordId":
		return fmt.Sprintf("must be non-empty, at most %d bytes and free of control characters", utils.MaxKeyLength)
	case "word":
		return "must not be empty"
	case "updatedAt":
		return "must be a positive epoch millisecond value"
	case "interval":
		return "must be at least 1"
	case "easeFactor":
		return fmt.Sprintf("must be between %.1f and %.1f", MinEaseFactor, MaxEaseFactor)
	case "repetitions":
		return "must not be negative"
	case "rating", "lastRating":
		return "must be between 1 and 5"
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

func validateSubject(subject string) error {
	if !utils.ValidKey(subject) {
		return invalid("subject", "missing or malformed subject id")
	}
	return nil
}
