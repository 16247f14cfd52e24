package cardissue

import (
	"encoding/json"
	"fmt"
	"time"
)

// CardPayload is a tagged union keyed by card type. Exactly one variant is
// populated, matching the card type being programmed; sequence issues carry
// the booking variant, which holds everything the 5-card run needs.
type CardPayload struct {
	Type          CardType         `json:"type"`
	Booking       *BookingCardData `json:"booking,omitempty"`
	Authorization *AuthCardData    `json:"authorization,omitempty"`
	Installation  *InstallCardData `json:"installation,omitempty"`
	Clock         *ClockCardData   `json:"clock,omitempty"`
}

// BookingCardData encodes guest room access for room and sequence cards.
type BookingCardData struct {
	BookingRef string    `json:"booking_ref"`
	RoomNumber string    `json:"room_number"`
	GuestName  string    `json:"guest_name"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
}

// AuthCardData carries the lock-system authorization code.
type AuthCardData struct {
	SystemCode string `json:"system_code"`
}

// InstallCardData addresses a specific lock during installation.
type InstallCardData struct {
	LockAddress string `json:"lock_address"`
	SystemCode  string `json:"system_code"`
}

// ClockCardData synchronizes the lock clock.
type ClockCardData struct {
	Timestamp time.Time `json:"timestamp"`
	Timezone  string    `json:"timezone"`
}

// Validate checks that the populated variant matches the declared type, so
// malformed payloads are caught at enqueue time rather than at the reader.
func (p *CardPayload) Validate() error {
	switch p.Type {
	case CardRoom, CardSequence:
		if p.Booking == nil {
			return fmt.Errorf("payload type %s requires booking data", p.Type)
		}
		if p.Booking.RoomNumber == "" {
			return fmt.Errorf("payload type %s requires a room number", p.Type)
		}
		if !p.Booking.CheckOut.After(p.Booking.CheckIn) {
			return fmt.Errorf("check_out must be after check_in")
		}
	case CardAuthorization1, CardAuthorization2:
		if p.Authorization == nil {
			return fmt.Errorf("payload type %s requires authorization data", p.Type)
		}
	case CardInstallation:
		if p.Installation == nil {
			return fmt.Errorf("payload type %s requires installation data", p.Type)
		}
	case CardClock:
		if p.Clock == nil {
			return fmt.Errorf("payload type %s requires clock data", p.Type)
		}
	default:
		return fmt.Errorf("unknown card type: %s", p.Type)
	}
	return nil
}

// UnmarshalJSON decodes and validates the payload in one step.
func (p *CardPayload) UnmarshalJSON(data []byte) error {
	type alias CardPayload
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = CardPayload(raw)
	return p.Validate()
}
