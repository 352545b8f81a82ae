package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	StatusVerified   = "verified"
	StatusUnverified = "unverified"
)

// ErrIncompleteDraft indicates the draft is missing a required field.
var ErrIncompleteDraft = errors.New("reports: incomplete draft")

var emptyDetails = json.RawMessage(`{}`)

// Draft is a report being composed before submission.
type Draft struct {
	DisasterID string `json:"disaster_id"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
}

// Validate checks the fields the report form marks as required.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.DisasterID) == "" {
		return fmt.Errorf("%w: disaster_id is required", ErrIncompleteDraft)
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrIncompleteDraft)
	}
	return nil
}

// Verification is the outcome of an AI-assisted image check.
type Verification struct {
	Verified   bool     `json:"verified"`
	Message    string   `json:"message,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// Raw is the payload as returned by the backend, kept verbatim for the report.
	Raw json.RawMessage `json:"-"`
}

// FailedVerification is the result recorded when the verification call itself fails.
func FailedVerification() Verification {
	return Verification{Verified: false, Message: "Verification failed"}
}

// Details returns the JSON object submitted as verification_details.
func (v Verification) Details() json.RawMessage {
	if len(v.Raw) > 0 {
		return append(json.RawMessage(nil), v.Raw...)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return emptyDetails
	}
	return encoded
}

// Submission is the payload posted to the reports endpoint.
type Submission struct {
	DisasterID          string          `json:"disaster_id"`
	Content             string          `json:"content"`
	ImageURL            string          `json:"image_url"`
	VerificationStatus  string          `json:"verification_status"`
	VerificationDetails json.RawMessage `json:"verification_details"`
}

// NewSubmission builds the submitted payload from a draft and an optional verification.
func NewSubmission(draft Draft, verification *Verification) Submission {
	submission := Submission{
		DisasterID:          strings.TrimSpace(draft.DisasterID),
		Content:             draft.Content,
		ImageURL:            strings.TrimSpace(draft.ImageURL),
		VerificationStatus:  StatusUnverified,
		VerificationDetails: append(json.RawMessage(nil), emptyDetails...),
	}
	if verification == nil {
		return submission
	}
	if verification.Verified {
		submission.VerificationStatus = StatusVerified
	}
	submission.VerificationDetails = verification.Details()
	return submission
}
