// Package notify pushes staff notifications about reservation activity
// to a Telegram chat.
package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rentadesk/internal/events"
)

// TelegramNotifier sends messages to the staff chat. Sends are rate
// limited so a burst of bookings does not trip Telegram's flood control.
type TelegramNotifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
	log     *zerolog.Logger
}

// NewTelegramNotifier connects to the bot API. ratePerSec bounds
// outgoing messages per second.
func NewTelegramNotifier(token string, chatID int64, ratePerSec float64, debug bool, logger *zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug

	logger.Info().Str("bot", api.Self.UserName).Msg("telegram notifier connected")

	return &TelegramNotifier{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 3),
		log:     logger,
	}, nil
}

// Notify sends one message to the staff chat, waiting on the limiter.
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return err
	}
	return nil
}

// BindBus forwards reservation lifecycle events staff care about.
// Creation and proof uploads are announced by the booking service with
// richer text, so only the automated transitions go through here.
func (n *TelegramNotifier) BindBus(bus *events.Bus) {
	bus.Subscribe(events.TypeReservationExpired, func(e events.Event) {
		text := "Reservation " + shortID(e.PublicID) + " expired without payment, slot released"
		if err := n.Notify(context.Background(), text); err != nil {
			n.log.Warn().Err(err).Msg("expiry notification failed")
		}
	})
}

func shortID(publicID string) string {
	if len(publicID) > 8 {
		return publicID[:8]
	}
	return publicID
}
