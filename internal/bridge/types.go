package bridge

import (
	"errors"
	"fmt"

	"roomkey/internal/domain/cardissue"
)

// ErrBridgeUnavailable means the bridge process itself could not be reached
// or answered with a non-success status. It is distinct from a successful
// response that reports the reader as disconnected.
var ErrBridgeUnavailable = errors.New("bridge unavailable")

// OpError wraps ErrBridgeUnavailable with the failing operation so callers
// can log which primitive broke while still matching with errors.Is.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("bridge %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// ReaderInfo describes the connected card reader as reported by the bridge.
type ReaderInfo struct {
	Model  string `json:"model"`
	Serial string `json:"serial"`
	Vendor string `json:"vendor"`
}

// ReaderStatus is the bridge's reader state. Connected=false is a valid,
// successful answer.
type ReaderStatus struct {
	Connected bool        `json:"connected"`
	Reader    *ReaderInfo `json:"reader,omitempty"`
}

// DetectResult reports whether a card is on the reader.
type DetectResult struct {
	Detected bool   `json:"detected"`
	UID      string `json:"uid,omitempty"`
}

// ProgramRequest asks the bridge to encode one card.
type ProgramRequest struct {
	CardType string                `json:"cardType"`
	Payload  cardissue.CardPayload `json:"payload"`
}

// ProgramResult is the bridge's answer for a single card. A failed card is
// a successful HTTP exchange with Success=false.
type ProgramResult struct {
	Success   bool   `json:"success"`
	CardUID   string `json:"cardUid,omitempty"`
	Data      string `json:"data,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SequenceRequest asks the bridge's own batch endpoint to run the full
// 5-card sequence.
type SequenceRequest struct {
	Payload cardissue.CardPayload `json:"payload"`
}

// Device is one USB peripheral enumerated by the bridge.
type Device struct {
	Model     string `json:"model"`
	Serial    string `json:"serial"`
	Vendor    string `json:"vendor"`
	Connected bool   `json:"connected"`
}
