// Package notify sends lifecycle events to staff Telegram chats.
package notify

import (
	"fmt"
	"strings"

	"consultbook/internal/config"
	"consultbook/internal/domain"
	"consultbook/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var titles = map[string]string{
	events.EventBookingCreated:     "🆕 New booking request",
	events.EventBookingConfirmed:   "✅ Booking confirmed",
	events.EventBookingCompleted:   "🏁 Booking completed",
	events.EventBookingCancelled:   "❌ Booking cancelled",
	events.EventBookingRescheduled: "🔄 Booking rescheduled",
	events.EventFeedbackSubmitted:  "⭐ Feedback received",
}

type StaffNotifier struct {
	sender  domain.TelegramSender
	chatIDs []int64
	logger  zerolog.Logger
}

func NewStaffNotifier(sender domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *StaffNotifier {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "notify").Logger()
	}
	return &StaffNotifier{sender: sender, chatIDs: chatIDs, logger: l}
}

// NewBot connects to the Telegram Bot API.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

// Subscribe attaches the notifier to every lifecycle event.
func (n *StaffNotifier) Subscribe(bus *events.EventBus) {
	bus.SubscribeAll(n.Handle)
}

// Handle formats the event and sends it to each staff chat. Delivery
// failures to one chat do not stop the others.
func (n *StaffNotifier) Handle(event *events.Event) error {
	if len(n.chatIDs) == 0 {
		return nil
	}
	payload, err := event.Decode()
	if err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}

	text := Format(event.Type, payload)
	var failed []string
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("event_type", event.Type).Msg("Error sending notification")
			failed = append(failed, fmt.Sprint(chatID))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify chats %s failed", strings.Join(failed, ","))
	}
	return nil
}

// Format renders a staff message for the event.
func Format(eventType string, p events.BookingEventPayload) string {
	title, ok := titles[eventType]
	if !ok {
		title = "ℹ️ Booking update"
	}

	consultant := p.ConsultantID
	if consultant == "" {
		consultant = "not assigned"
	}

	return fmt.Sprintf(`%s

🧴 Service: %s
👩‍⚕️ Consultant: %s
📅 Date: %s %s
👤 Customer: %s
📌 Status: %s
🆔 Booking: %s`,
		title,
		p.ServiceID,
		consultant,
		p.Date, p.Time,
		p.CustomerID,
		p.Status,
		p.BookingID)
}
