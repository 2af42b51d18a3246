// Package notify delivers booking change events to an operations channel
// over Telegram. Delivery is fire-and-forget: a failed send is logged and
// dropped, it never affects the committed booking change.
package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roomly/internal/events"
)

// Sender is the subset of the Telegram bot API used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier forwards bus events to a Telegram chat, paced by a token
// bucket so bursts of booking changes don't trip the API limits.
type TelegramNotifier struct {
	sender  Sender
	chatID  int64
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewTelegramNotifier creates a notifier sending to chatID.
func NewTelegramNotifier(sender Sender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Register subscribes the notifier to booking and room change events.
func (n *TelegramNotifier) Register(bus *events.EventBus) {
	bus.Subscribe(events.TypeBookingChanged, func(events.Event) {
		n.send("Bookings changed")
	})
	bus.Subscribe(events.TypeRoomChanged, func(e events.Event) {
		n.send(fmt.Sprintf("Room state changed: %s", e.Payload))
	})
}

func (n *TelegramNotifier) send(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.limiter.Wait(ctx); err != nil {
		n.logger.Warn().Err(err).Msg("telegram send dropped by rate limiter")
		return
	}
	if _, err := n.sender.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		n.logger.Error().Err(err).Msg("telegram send failed")
	}
}
