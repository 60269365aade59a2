package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Conversion errors
	ErrUnreadableImage   = errors.New("image cannot be decoded")
	ErrMissingCredential = errors.New("api credential is not configured")
	ErrGeneration        = errors.New("image generation failed")

	// Upload errors
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image exceeds upload size limit")

	// General errors
	ErrConversionNotFound = errors.New("conversion not found")
	ErrResultNotReady     = errors.New("conversion result is not ready")
)

// UnreadableImageError is returned when every decode strategy failed.
type UnreadableImageError struct {
	Source string
	Causes []error
}

func (e *UnreadableImageError) Error() string {
	msgs := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("cannot read image %s: %s", e.Source, strings.Join(msgs, "; "))
}

func (e *UnreadableImageError) Unwrap() []error { return e.Causes }

func (e *UnreadableImageError) Is(target error) bool { return target == ErrUnreadableImage }

// MissingCredentialError names the environment variable that was empty.
type MissingCredentialError struct {
	Variable string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Variable)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }

// GenerationError wraps a failed call to the generation service or an
// unusable payload returned by it.
type GenerationError struct {
	Op    string
	Cause error
}

func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return "generation: " + e.Op
	}
	return fmt.Sprintf("generation: %s: %v", e.Op, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindMissingCredential ErrorKind = "missing_credential"
	KindUnreadableImage   ErrorKind = "unreadable_image"
	KindGeneration        ErrorKind = "generation_failed"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindTooLarge          ErrorKind = "too_large"
	KindNotFound          ErrorKind = "not_found"
	KindInternal          ErrorKind = "internal"
)

// KindOf classifies err for API responses and stored conversion records.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrUnreadableImage):
		return KindUnreadableImage
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrTooLarge):
		return KindTooLarge
	case errors.Is(err, ErrConversionNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// UserMessage is the text shown on the page for each error kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case KindMissingCredential:
		return "The converter is not configured: the image generation API key is missing."
	case KindUnreadableImage:
		return "The image could not be read. Please check that it is a valid image file."
	case KindGeneration:
		return "The image generation service failed. Please try again in a moment."
	case KindUnsupportedFormat:
		return "This image format is not supported."
	case KindTooLarge:
		return "The file is larger than the upload limit."
	case KindNotFound:
		return "Conversion not found."
	default:
		return "An unexpected error occurred during conversion."
	}
}
