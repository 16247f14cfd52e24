package sequencer

import (
	"context"
	"testing"

	"roomkey/internal/config"
	"roomkey/internal/domain/cardissue"
)

type fakeProgrammer struct {
	available bool
	// failOn maps a card type to the error string it should fail with.
	failOn map[cardissue.CardType]string
	calls  []cardissue.CardType
}

func (f *fakeProgrammer) CheckAvailability(ctx context.Context) bool {
	return f.available
}

func (f *fakeProgrammer) ProgramCard(ctx context.Context, cardType cardissue.CardType, payload cardissue.CardPayload) (*ProgramOutcome, error) {
	f.calls = append(f.calls, cardType)
	if msg, ok := f.failOn[cardType]; ok {
		return &ProgramOutcome{Success: false, Error: msg}, nil
	}
	return &ProgramOutcome{Success: true, CardUID: "uid-" + string(cardType)}, nil
}

func newTestSequencer(p CardProgrammer) *Sequencer {
	// Zero delays keep the tests instant.
	return New(p, config.SequencerConfig{})
}

func testPayload() cardissue.CardPayload {
	return cardissue.CardPayload{
		Type:    cardissue.CardSequence,
		Booking: &cardissue.BookingCardData{RoomNumber: "101"},
	}
}

func TestRunAllCardsSucceed(t *testing.T) {
	fake := &fakeProgrammer{available: true}
	result := newTestSequencer(fake).Run(context.Background(), testPayload(), nil)

	if !result.Success {
		t.Error("expected aggregate success when all cards complete")
	}
	if result.CompletedCards != 5 || result.TotalCards != 5 {
		t.Errorf("expected 5/5, got %d/%d", result.CompletedCards, result.TotalCards)
	}
	if len(result.Cards) != 5 {
		t.Fatalf("expected 5 card results, got %d", len(result.Cards))
	}
	for i, card := range result.Cards {
		if card.CardType != cardissue.SequenceOrder[i] {
			t.Errorf("card %d: expected %s, got %s", i, cardissue.SequenceOrder[i], card.CardType)
		}
		if !card.Success {
			t.Errorf("card %s unexpectedly failed: %s", card.CardType, card.Error)
		}
	}
}

func TestRunProgramsCardsInFixedOrder(t *testing.T) {
	fake := &fakeProgrammer{available: true}
	newTestSequencer(fake).Run(context.Background(), testPayload(), nil)

	if len(fake.calls) != 5 {
		t.Fatalf("expected 5 program calls, got %d", len(fake.calls))
	}
	for i, cardType := range fake.calls {
		if cardType != cardissue.SequenceOrder[i] {
			t.Errorf("call %d: expected %s, got %s", i, cardissue.SequenceOrder[i], cardType)
		}
	}
}

func TestRunDoesNotAbortOnSingleFailure(t *testing.T) {
	fake := &fakeProgrammer{
		available: true,
		failOn:    map[cardissue.CardType]string{cardissue.CardClock: "clock sync refused"},
	}
	result := newTestSequencer(fake).Run(context.Background(), testPayload(), nil)

	if result.Success {
		t.Error("aggregate success requires all 5 cards")
	}
	if result.CompletedCards != 4 {
		t.Errorf("expected 4 completed cards, got %d", result.CompletedCards)
	}
	if len(result.Cards) != 5 {
		t.Fatalf("expected complete 5-entry result despite failure, got %d", len(result.Cards))
	}

	// The room card comes after clock and must still have been attempted.
	room := result.Cards[4]
	if room.CardType != cardissue.CardRoom || !room.Success {
		t.Errorf("room card must run after clock failure, got %+v", room)
	}
	clock := result.Cards[3]
	if clock.Success || clock.Error != "clock sync refused" {
		t.Errorf("clock failure not recorded: %+v", clock)
	}
}

func TestRunBridgeUnavailable(t *testing.T) {
	fake := &fakeProgrammer{available: false}
	result := newTestSequencer(fake).Run(context.Background(), testPayload(), nil)

	if result.Success || result.CompletedCards != 0 {
		t.Errorf("expected total failure, got %d completed", result.CompletedCards)
	}
	if len(result.Cards) != 5 {
		t.Fatalf("expected 5 failure entries, got %d", len(result.Cards))
	}
	if len(fake.calls) != 0 {
		t.Errorf("no program calls expected when bridge is down, got %d", len(fake.calls))
	}
	for _, card := range result.Cards {
		if card.Error != "bridge unavailable" {
			t.Errorf("card %s: expected bridge unavailable, got %q", card.CardType, card.Error)
		}
	}
}

func TestRunEmitsProgressStates(t *testing.T) {
	fake := &fakeProgrammer{
		available: true,
		failOn:    map[cardissue.CardType]string{cardissue.CardInstallation: "no card detected"},
	}

	var events []Progress
	newTestSequencer(fake).Run(context.Background(), testPayload(), func(p Progress) {
		events = append(events, p)
	})

	// waiting, programming, terminal per card.
	if len(events) != 15 {
		t.Fatalf("expected 15 progress events, got %d", len(events))
	}

	for i, cardType := range cardissue.SequenceOrder {
		base := i * 3
		if events[base].State != StateWaiting || events[base+1].State != StateProgramming {
			t.Errorf("card %s: wrong leading states %s, %s", cardType, events[base].State, events[base+1].State)
		}
		terminal := events[base+2]
		if cardType == cardissue.CardInstallation {
			if terminal.State != StateError || terminal.Error == "" {
				t.Errorf("installation card: expected error state with message, got %+v", terminal)
			}
		} else if terminal.State != StateSuccess {
			t.Errorf("card %s: expected success state, got %s", cardType, terminal.State)
		}
		for j := 0; j < 3; j++ {
			if events[base+j].CardType != cardType {
				t.Errorf("event %d: expected card %s, got %s", base+j, cardType, events[base+j].CardType)
			}
		}
	}
}

func TestRunNilObserver(t *testing.T) {
	fake := &fakeProgrammer{available: true}
	// Must not panic without an observer.
	result := newTestSequencer(fake).Run(context.Background(), testPayload(), nil)
	if !result.Success {
		t.Error("expected success")
	}
}
