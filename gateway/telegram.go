// Package gateway connects chat front-ends to the agents.
package gateway

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	obs "github.com/KamdynS/agent-contrib/observability"
)

// FailureReply is sent when the responder fails.
const FailureReply = "I'm having trouble thinking right now..."

// MaxMessageLen is Telegram's limit for one text message.
const MaxMessageLen = 4096

// Responder answers one chat message.
type Responder interface {
	Respond(ctx context.Context, chatID, text string) (string, error)
}

// Sender is the part of the bot API the gateway uses to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram forwards every incoming text message to a Responder and replies.
type Telegram struct {
	Bot       *tgbotapi.BotAPI
	Sender    Sender
	Responder Responder
	Logger    *zerolog.Logger
}

// NewTelegram authorizes the bot token.
func NewTelegram(token string, r Responder) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{Bot: bot, Sender: bot, Responder: r}, nil
}

// Start polls for updates until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context) error {
	log := obs.LoggerOr(t.Logger, "telegram")
	log.Info().Str("account", t.Bot.Self.UserName).Msg("telegram gateway started")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.Bot.GetUpdatesChan(u)
	defer t.Bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.Handle(ctx, update)
		}
	}
}

// Handle answers a single update. Updates without a text message are ignored.
func (t *Telegram) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	log := obs.LoggerOr(t.Logger, "telegram")
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	reply, err := t.Responder.Respond(ctx, chatID, msg.Text)
	if err != nil {
		log.Error().Err(err).Str("session_id", chatID).Msg("responder failed")
		reply = FailureReply
	}
	if strings.TrimSpace(reply) == "" {
		return
	}
	for _, part := range Split(reply, MaxMessageLen) {
		if _, err := t.Sender.Send(tgbotapi.NewMessage(msg.Chat.ID, part)); err != nil {
			log.Error().Err(err).Str("session_id", chatID).Msg("send failed")
			return
		}
	}
}

// Split cuts text into pieces of at most max bytes, preferring line breaks
// and never splitting a rune.
func Split(text string, max int) []string {
	var parts []string
	for len(text) > max {
		cut := strings.LastIndex(text[:max], "\n")
		if cut <= 0 {
			cut = max
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
