package domain

import (
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"nojschat/errors"
)

var validate = validator.New()

// MaxHandleLength bounds handles everywhere; message content length is
// configurable and enforced by the broadcaster.
const MaxHandleLength = 24

type handleRequest struct {
	Handle string `validate:"required,min=1,max=24"`
}

// ValidateHandle rejects empty, oversized, or control-character handles.
// The leading slash is reserved for interactive commands.
func ValidateHandle(handle string) error {
	if err := validate.Struct(handleRequest{Handle: handle}); err != nil {
		return errors.ErrInvalidHandle
	}
	if NormalizeHandle(handle) == "" {
		return errors.ErrInvalidHandle
	}
	if handle[0] == '/' {
		return errors.ErrInvalidHandle
	}
	for _, r := range handle {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return errors.ErrInvalidHandle
		}
	}
	return nil
}

// ValidateContent rejects empty bodies and bodies longer than maxLength runes.
func ValidateContent(content string, maxLength int) error {
	if content == "" {
		return errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxLength {
		return errors.ErrContentTooLong
	}
	for _, r := range content {
		if unicode.IsControl(r) && r != '\t' {
			return errors.ErrInvalidContent
		}
	}
	return nil
}
