package sequencer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"roomkey/internal/config"
	"roomkey/internal/domain/cardissue"
	"roomkey/internal/logger"
)

// CardProgrammer is the single bridge primitive the sequencer needs.
type CardProgrammer interface {
	CheckAvailability(ctx context.Context) bool
	ProgramCard(ctx context.Context, cardType cardissue.CardType, payload cardissue.CardPayload) (*ProgramOutcome, error)
}

// ProgramOutcome is the per-card answer a CardProgrammer returns. A failed
// card is a valid outcome, not an error.
type ProgramOutcome struct {
	Success bool
	CardUID string
	Error   string
}

// CardState is the per-card progress state emitted to the observer.
type CardState string

const (
	StateWaiting     CardState = "waiting"
	StateProgramming CardState = "programming"
	StateSuccess     CardState = "success"
	StateError       CardState = "error"
)

// Progress is one observer notification.
type Progress struct {
	CardType cardissue.CardType `json:"cardType"`
	Index    int                `json:"index"`
	Total    int                `json:"total"`
	State    CardState          `json:"state"`
	Error    string             `json:"error,omitempty"`
}

// Observer receives progress notifications. Notifications are fire-and-
// forget; the sequencer never waits on the observer.
type Observer func(Progress)

// Sequencer drives the fixed 5-card programming order against a
// CardProgrammer. The order encodes a hardware protocol requirement of the
// lock vendor and is never changed at runtime.
type Sequencer struct {
	programmer CardProgrammer
	settle     time.Duration
	interCard  time.Duration
	now        func() time.Time
	sleep      func(context.Context, time.Duration)
}

func New(programmer CardProgrammer, cfg config.SequencerConfig) *Sequencer {
	return &Sequencer{
		programmer: programmer,
		settle:     cfg.SettleDelay,
		interCard:  cfg.InterCardDelay,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run executes the full sequence. It never aborts on a single card failure:
// card swap is a manual, interruptible process, and telling the operator
// which specific cards failed is more useful than stopping early. The
// result always contains one entry per card in the fixed order.
func (s *Sequencer) Run(ctx context.Context, payload cardissue.CardPayload, observe Observer) *cardissue.SequenceResult {
	total := len(cardissue.SequenceOrder)
	result := &cardissue.SequenceResult{
		TotalCards: total,
		Cards:      make([]cardissue.CardResult, 0, total),
	}

	// One up-front availability probe. When the bridge itself is down,
	// each card is recorded as failed without burning a per-card timeout
	// five times over.
	available := s.programmer.CheckAvailability(ctx)
	if !available {
		logger.Warn("bridge unavailable, failing sequence without programming")
	}

	for i, cardType := range cardissue.SequenceOrder {
		s.notify(observe, Progress{
			CardType: cardType, Index: i, Total: total, State: StateWaiting,
		})

		if available {
			// Settle delay lets the operator position the physical card.
			s.sleep(ctx, s.settle)
		}

		s.notify(observe, Progress{
			CardType: cardType, Index: i, Total: total, State: StateProgramming,
		})

		card := cardissue.CardResult{
			CardType:  cardType,
			Timestamp: s.now(),
		}

		switch {
		case !available:
			card.Error = "bridge unavailable"
		case ctx.Err() != nil:
			card.Error = "sequence cancelled"
		default:
			outcome, err := s.programmer.ProgramCard(ctx, cardType, payload)
			switch {
			case err != nil:
				card.Error = err.Error()
			case outcome.Success:
				card.Success = true
				card.CardUID = outcome.CardUID
			default:
				card.Error = outcome.Error
				if card.Error == "" {
					card.Error = "card programming failed"
				}
			}
		}

		if card.Success {
			result.CompletedCards++
			s.notify(observe, Progress{
				CardType: cardType, Index: i, Total: total, State: StateSuccess,
			})
		} else {
			logger.Warn("card programming failed",
				zap.String("card_type", string(cardType)),
				zap.String("error", card.Error),
			)
			s.notify(observe, Progress{
				CardType: cardType, Index: i, Total: total, State: StateError, Error: card.Error,
			})
		}
		result.Cards = append(result.Cards, card)

		// Inter-card delay runs regardless of outcome so the operator has
		// time to swap cards before the next attempt.
		if available && i < total-1 {
			s.sleep(ctx, s.interCard)
		}
	}

	result.Success = result.CompletedCards == total
	return result
}

func (s *Sequencer) notify(observe Observer, p Progress) {
	if observe != nil {
		observe(p)
	}
}
