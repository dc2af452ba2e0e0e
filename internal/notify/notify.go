// Package notify publishes round lifecycle announcements to a broadcast
// channel. Publishing is best effort: a failed announcement is logged and
// dropped, never surfaced to the round machinery.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cannedoxygen/microperps/internal/lrc"
	"github.com/cannedoxygen/microperps/internal/retry"
)

// Publisher delivers one formatted message to a channel.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// Announcer formats lifecycle events and pushes them through a Publisher.
type Announcer struct {
	publisher Publisher
	policy    retry.Policy
	logger    *slog.Logger
}

func NewAnnouncer(publisher Publisher, logger *slog.Logger) *Announcer {
	return &Announcer{
		publisher: publisher,
		policy:    retry.Policy{MaxAttempts: 3, Delay: 2 * time.Second},
		logger:    logger,
	}
}

// AnnounceRoundStarted broadcasts a new round opening.
func (a *Announcer) AnnounceRoundStarted(ctx context.Context, round *lrc.Round) {
	hours := (round.EndTime - round.StartTime) / 3600
	message := fmt.Sprintf(
		"🕯 Round #%d is live!\n\n$%s candle, %dh window.\nOpening price: %s\n\nShort it or long it — early bets earn up to 1.5x weight.",
		round.RoundID,
		round.AssetSymbol,
		hours,
		formatPrice(round.StartPrice),
	)
	a.publish(ctx, "round_started", round.RoundID, message)
}

// AnnounceBettingClosed broadcasts the close of a round's betting window
// while the candle is still running.
func (a *Announcer) AnnounceBettingClosed(ctx context.Context, round *lrc.Round, currentPrice int64) {
	change := 0.0
	if round.StartPrice != 0 {
		change = float64(currentPrice-round.StartPrice) / float64(round.StartPrice) * 100
	}
	direction := "📈"
	if currentPrice < round.StartPrice {
		direction = "📉"
	}
	hours := (round.EndTime - round.BettingEndTime) / 3600
	message := fmt.Sprintf(
		"🔒 Round #%d: betting is closed!\n\n$%s opened at %s, now %s (%+.2f%%) %s\nPool: %s SOL SHORT vs %s SOL LONG.\nSettlement in %dh.",
		round.RoundID,
		round.AssetSymbol,
		formatPrice(round.StartPrice),
		formatPrice(currentPrice),
		change,
		direction,
		formatLamports(round.ShortPool),
		formatLamports(round.LongPool),
		hours,
	)
	a.publish(ctx, "betting_closed", round.RoundID, message)
}

// AnnounceRoundSettled broadcasts the outcome of a settled round.
func (a *Announcer) AnnounceRoundSettled(ctx context.Context, round *lrc.Round) {
	if round.WinningSide == nil {
		return
	}
	emoji := "📈"
	if *round.WinningSide == lrc.SideShort {
		emoji = "📉"
	}
	message := fmt.Sprintf(
		"%s Round #%d settled: %s wins!\n\n$%s closed at %s (opened %s).\nPool: %s SOL across %d bets.\nPayouts are on the way.",
		emoji,
		round.RoundID,
		round.WinningSide,
		round.AssetSymbol,
		formatPrice(round.EndPrice),
		formatPrice(round.StartPrice),
		formatLamports(round.TotalPool()),
		round.BetCount,
	)
	a.publish(ctx, "round_settled", round.RoundID, message)
}

func (a *Announcer) publish(ctx context.Context, event string, roundID uint64, message string) {
	if a.publisher == nil {
		return
	}
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		return a.publisher.Publish(ctx, message)
	})
	if err != nil {
		a.logger.Warn("failed to publish announcement", "event", event, "round_id", roundID, "err", err)
		return
	}
	a.logger.Info("published announcement", "event", event, "round_id", roundID)
}

// formatPrice renders an 8-decimal fixed-point price, trimming to a readable
// precision.
func formatPrice(scaled int64) string {
	whole := scaled / lrc.PriceScale
	frac := scaled % lrc.PriceScale
	if frac < 0 {
		frac = -frac
	}
	if whole != 0 || scaled == 0 {
		return fmt.Sprintf("$%d.%04d", whole, frac/10_000)
	}
	// Sub-dollar assets keep full precision.
	sign := ""
	if scaled < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s$0.%08d", sign, frac)
}

func formatLamports(lamports uint64) string {
	const lamportsPerSol = 1_000_000_000
	return fmt.Sprintf("%d.%02d", lamports/lamportsPerSol, (lamports%lamportsPerSol)/10_000_000)
}
