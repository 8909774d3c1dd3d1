package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorGreen = 0x00FF00
	colorBlue  = 0x3498DB
	colorRed   = 0xE74C3C
)

// ChannelPoster finds a channel by name and posts embeds to it.
type ChannelPoster interface {
	ChannelByName(ctx context.Context, name string) (*discordgo.Channel, error)
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// DiscordSink posts entries to a named log channel in the guild.
type DiscordSink struct {
	poster  ChannelPoster
	channel string
}

func NewDiscordSink(p ChannelPoster, channel string) *DiscordSink {
	return &DiscordSink{poster: p, channel: channel}
}

func (s *DiscordSink) Name() string { return "discord" }

func (s *DiscordSink) Send(ctx context.Context, e Entry) error {
	ch, err := s.poster.ChannelByName(ctx, s.channel)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("no log channel named %q", s.channel)
	}
	return s.poster.SendEmbed(ctx, ch.ID, Embed(e))
}

func Embed(e Entry) *discordgo.MessageEmbed {
	em := &discordgo.MessageEmbed{
		Title:     e.Title(),
		Timestamp: e.At.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: e.ID},
	}

	if e.Kind == KindVerification {
		em.Color = colorGreen
		em.Description = "A new user has verified their registration."
		em.Fields = []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", e.User.ID, e.User.Tag())},
			{Name: "Registration Name", Value: orDash(e.RegistrationName)},
			{Name: "Event Year", Value: e.Year, Inline: true},
			{Name: "Roles Assigned", Value: orDash(strings.Join(e.Roles, ", ")), Inline: true},
		}
		return em
	}

	em.Color = colorBlue
	if e.Failed {
		em.Color = colorRed
	}
	em.Description = e.Summary
	em.Fields = []*discordgo.MessageEmbedField{
		{Name: "Year", Value: e.Year, Inline: true},
		{Name: "Run by", Value: fmt.Sprintf("<@%s>", e.User.ID), Inline: true},
	}
	return em
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
