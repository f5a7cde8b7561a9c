// Package businessflow contains the call-flow state machine and its collaborators
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/call-congress/models"
)

// Business flow error constants
var (
	// Request errors
	ErrMissingParameter  = errors.New("missing required parameter")
	ErrInvalidCallParams = errors.New("invalid call parameters")

	// Directory errors
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrLegislatorNotFound = errors.New("legislator not found")

	// Call sequencing errors
	ErrNoRepresentatives   = errors.New("no representatives to call")
	ErrCallIndexOutOfRange = errors.New("call index out of range")

	// Reporting errors
	ErrAccessDenied = errors.New("access denied")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsMissingParameter(err error) bool {
	return errors.Is(err, ErrMissingParameter)
}

func IsInvalidCallParams(err error) bool {
	return errors.Is(err, ErrInvalidCallParams)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsLegislatorNotFound(err error) bool {
	return errors.Is(err, ErrLegislatorNotFound)
}

func IsNoRepresentatives(err error) bool {
	return errors.Is(err, ErrNoRepresentatives)
}

func IsCallIndexOutOfRange(err error) bool {
	return errors.Is(err, ErrCallIndexOutOfRange)
}

func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

func IsMalformedSpecialCall(err error) bool {
	return errors.Is(err, models.ErrMalformedSpecialCall)
}

// IsNotFound groups the errors that abort a webhook with 404
func IsNotFound(err error) bool {
	return IsMissingParameter(err) ||
		IsInvalidCallParams(err) ||
		IsCampaignNotFound(err) ||
		IsLegislatorNotFound(err) ||
		IsNoRepresentatives(err) ||
		IsCallIndexOutOfRange(err)
}
