package agent

import "errors"

var (
	ErrAgentNotFound       = errors.New("agent not found")
	ErrInvalidAgentToken   = errors.New("invalid agent token")
	ErrFingerprintTaken    = errors.New("fingerprint is already paired to an agent")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrPairingTokenInvalid = errors.New("pairing token not found")
	ErrPairingTokenExpired = errors.New("pairing token has expired")
	ErrPairingTokenUsed    = errors.New("pairing token has already been used")
)
