package dashboard

import (
	"errors"
	"fmt"
)

// Failure signals. ControllerError wraps them, so callers match with errors.Is.
var (
	ErrSaveFailed         = errors.New("failed to save disaster")
	ErrDeleteFailed       = errors.New("failed to delete disaster")
	ErrDeleteDeclined     = errors.New("delete not confirmed")
	ErrLocationExtraction = errors.New("location extraction failed")
	ErrReportFailed       = errors.New("failed to submit report")
	ErrUnknownDisaster    = errors.New("unknown disaster")
	ErrUnknownTab         = errors.New("unknown tab")
	ErrMissingFields      = errors.New("required fields are missing")

	errMissingClient = errors.New("data client is required")
	errMissingStore  = errors.New("store is required")
)

// ControllerError carries a stable code alongside the wrapped cause.
type ControllerError struct {
	code string
	err  error
}

func (e *ControllerError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ControllerError) Unwrap() error {
	return e.err
}

func (e *ControllerError) Code() string {
	return e.code
}

const (
	opControllerNew = "dashboard.controller.new"
	opLoad          = "dashboard.load"
	opSetTab        = "dashboard.set_tab"
	opBeginEdit     = "dashboard.begin_edit"
	opSave          = "dashboard.save"
	opDelete        = "dashboard.delete"
	opExtract       = "dashboard.extract_location"
	opVerify        = "dashboard.verify_image"
	opSubmitReport  = "dashboard.submit_report"
	opSelectSocial  = "dashboard.select_social"
)

func newControllerError(operation, reason string, cause error) error {
	return &ControllerError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}
