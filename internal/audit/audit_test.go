package audit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registration-bot/internal/discord"
	"registration-bot/internal/discord/discordtest"
	"registration-bot/internal/models"
)

type memSink struct {
	name    string
	err     error
	entries []Entry
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Send(_ context.Context, e Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestLogFansOutAndFillsDefaults(t *testing.T) {
	a, b := &memSink{name: "a"}, &memSink{name: "b"}
	l := NewLogger(nil, a, b)

	ok := l.Log(context.Background(), Entry{Kind: KindVerification, Year: "2025"})
	require.True(t, ok)
	require.Len(t, a.entries, 1)
	require.Len(t, b.entries, 1)
	assert.NotEmpty(t, a.entries[0].ID)
	assert.False(t, a.entries[0].At.IsZero())
	assert.Equal(t, a.entries[0].ID, b.entries[0].ID)
}

func TestLogSwallowsSinkErrors(t *testing.T) {
	bad := &memSink{name: "bad", err: errors.New("down")}
	good := &memSink{name: "good"}

	assert.True(t, NewLogger(nil, bad, good).Log(context.Background(), Entry{Kind: KindYearCreated}))
	assert.False(t, NewLogger(nil, bad).Log(context.Background(), Entry{Kind: KindYearCreated}))
	assert.False(t, NewLogger(nil).Log(context.Background(), Entry{}))

	var nilLogger *Logger
	assert.False(t, nilLogger.Log(context.Background(), Entry{}))
}

func TestDiscordSink(t *testing.T) {
	api := discordtest.New("g1")
	logs := api.AddChannel(discordgo.Channel{Name: "verification-logs", Type: discordgo.ChannelTypeGuildText})
	sink := NewDiscordSink(discord.New(api, "g1"), "verification-logs")

	err := sink.Send(context.Background(), Entry{
		ID:               "e1",
		Kind:             KindVerification,
		At:               time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Year:             "2025",
		User:             models.DiscordUser{ID: "42", Username: "jane", Discriminator: "0"},
		RegistrationName: "Jane Doe",
		Roles:            []string{"2025"},
	})
	require.NoError(t, err)

	embeds := api.Embeds(logs.ID)
	require.Len(t, embeds, 1)
	em := embeds[0]
	assert.Equal(t, "User Verified", em.Title)
	assert.Equal(t, "2025-03-01T12:00:00Z", em.Timestamp)
	assert.Equal(t, "<@42> (jane)", em.Fields[0].Value)
	assert.Equal(t, "Jane Doe", em.Fields[1].Value)
	assert.Equal(t, "2025", em.Fields[3].Value)
}

func TestDiscordSinkMissingChannel(t *testing.T) {
	api := discordtest.New("g1")
	err := NewDiscordSink(discord.New(api, "g1"), "verification-logs").Send(context.Background(), Entry{Kind: KindVerification})
	assert.ErrorContains(t, err, "verification-logs")
}

func TestDiscordSinkRemoteFailureIsBestEffort(t *testing.T) {
	api := discordtest.New("g1")
	api.AddChannel(discordgo.Channel{Name: "verification-logs"})
	api.FailOn("ChannelMessageSendEmbed", 1, http.StatusForbidden)

	l := NewLogger(nil, NewDiscordSink(discord.New(api, "g1"), "verification-logs"))
	assert.False(t, l.Log(context.Background(), Entry{Kind: KindVerification}))
}

func TestSagaEmbed(t *testing.T) {
	em := Embed(Entry{Kind: KindYearCreated, Year: "2026", Summary: "2 roles", Failed: true, User: models.DiscordUser{ID: "7"}})
	assert.Equal(t, "Year Setup Incomplete", em.Title)
	assert.Equal(t, colorRed, em.Color)
	assert.Equal(t, "2 roles", em.Description)
	assert.Equal(t, "<@7>", em.Fields[1].Value)
}
