// Package tgbot mirrors audit entries to Telegram admin chats.
package tgbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"registration-bot/internal/audit"
)

type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
}

func New(token string, chatIDs []int64) (*Notifier, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, http.DefaultClient, chatIDs)
}

// NewWithEndpoint points the bot at another API host. endpoint has the
// same "%s/%s" shape as tgbotapi.APIEndpoint.
func NewWithEndpoint(token, endpoint string, client *http.Client, chatIDs []int64) (*Notifier, error) {
	if len(chatIDs) == 0 {
		return nil, fmt.Errorf("no admin chat ids")
	}
	b, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	b.Debug = false
	return &Notifier{bot: b, chatIDs: chatIDs}, nil
}

func (n *Notifier) Name() string { return "telegram" }

func (n *Notifier) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := n.bot.Send(msg)
	return err
}

// Send delivers e to every admin chat and fails only if all of them failed.
func (n *Notifier) Send(_ context.Context, e audit.Entry) error {
	text := Format(e)
	var errs []error
	for _, id := range n.chatIDs {
		if err := n.SendText(id, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	if len(errs) == len(n.chatIDs) {
		return errors.Join(errs...)
	}
	return nil
}

func Format(e audit.Entry) string {
	var b strings.Builder
	b.WriteString(e.Title())
	b.WriteString(" · ")
	b.WriteString(e.Year)
	b.WriteString("\n")
	if e.Kind == audit.KindVerification {
		fmt.Fprintf(&b, "User: %s (%s)\n", e.User.Tag(), e.User.ID)
		if e.RegistrationName != "" {
			fmt.Fprintf(&b, "Registration: %s\n", e.RegistrationName)
		}
		fmt.Fprintf(&b, "Roles: %s", strings.Join(e.Roles, ", "))
	} else {
		b.WriteString(e.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}
