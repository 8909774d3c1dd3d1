package bot

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"registration-bot/internal/airtable"
	"registration-bot/internal/airtable/airtabletest"
	"registration-bot/internal/audit"
	"registration-bot/internal/discord"
	"registration-bot/internal/discord/discordtest"
	"registration-bot/internal/registration"
	"registration-bot/internal/schema"
	"registration-bot/internal/verification"
	"registration-bot/internal/worker"
	"registration-bot/internal/yearstructure"
)

const testSchema = `
years:
  "2025":
    table: tbl2025
    fields:
      VERIFICATION_CODE: fldCode
      EMAIL: fldEmail
      PAYMENT_STATUS: fldPay
      VERIFICATION_STATUS: fldStatus
      NAME_FULL: fldName
      DISCORD_USER_ID: fldDiscord
`

// inlinePool runs tasks before Submit returns.
type inlinePool struct {
	names  []string
	closed bool
}

func (p *inlinePool) Submit(name string, task worker.Task) (string, error) {
	if p.closed {
		return "", worker.ErrClosed
	}
	p.names = append(p.names, name)
	return "task-1", task(context.Background())
}

type auditRecorder struct {
	entries []audit.Entry
}

func (a *auditRecorder) Log(_ context.Context, e audit.Entry) bool {
	a.entries = append(a.entries, e)
	return true
}

type fixedYear string

func (y fixedYear) CurrentYear(context.Context) (string, error) { return string(y), nil }

type AppSuite struct {
	suite.Suite
	store   *airtabletest.Store
	api     *discordtest.API
	pool    *inlinePool
	auditor *auditRecorder
	app     *App
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	reg, err := schema.Parse([]byte(testSchema))
	s.Require().NoError(err)

	s.store = airtabletest.New()
	s.api = discordtest.New("g1")
	s.pool = &inlinePool{}
	s.auditor = &auditRecorder{}
	prov := discord.New(s.api, "g1")
	resolver := registration.NewResolver(s.store, reg, fixedYear("2025"))
	regs := registration.NewRegistrations(s.store, reg, nil)

	s.app = New(Deps{
		Verifier: verification.New(resolver, regs, prov, s.auditor, reg),
		Years:    yearstructure.New(prov, nil),
		Lookup:   resolver,
		Codes:    regs,
		Registry: reg,
		Discord:  prov,
		Pool:     s.pool,
		Audit:    s.auditor,
	})
}

func command(name string, admin bool, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	var perms int64
	if admin {
		perms = discordgo.PermissionAdministrator
	}
	return &discordgo.Interaction{
		ID:      "i1",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "g1",
		Token:   "tok",
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "42", Username: "jane", Discriminator: "0"},
			Permissions: perms,
		},
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}
}

func str(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func boolean(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func ephemeral(r *discordgo.InteractionResponse) bool {
	return r.Data != nil && r.Data.Flags&discordgo.MessageFlagsEphemeral != 0
}

func (s *AppSuite) last() *discordgo.WebhookParams {
	s.Require().NotEmpty(s.api.FollowUps)
	return s.api.FollowUps[len(s.api.FollowUps)-1]
}

// ---------- immediate responses ----------

func (s *AppSuite) TestPing() {
	r := s.app.Handle(context.Background(), &discordgo.Interaction{Type: discordgo.InteractionPing})
	s.Equal(discordgo.InteractionResponsePong, r.Type)

	r = s.app.Handle(context.Background(), command(CmdPing, false))
	s.Equal(discordgo.InteractionResponseChannelMessageWithSource, r.Type)
	s.Contains(r.Data.Content, "Pong")
}

func (s *AppSuite) TestHelp() {
	r := s.app.Handle(context.Background(), command(CmdHelpVerify, false))
	s.True(ephemeral(r))
	s.Contains(r.Data.Content, "/verify")
	s.Empty(s.pool.names)
}

func (s *AppSuite) TestVerifyWithoutCode() {
	r := s.app.Handle(context.Background(), command(CmdVerify, false))
	s.Equal(discordgo.InteractionResponseChannelMessageWithSource, r.Type)
	s.True(ephemeral(r))
	s.Empty(s.pool.names)
}

func (s *AppSuite) TestAdminCommandsRejectNonAdmins() {
	for _, i := range []*discordgo.Interaction{
		command(CmdCreateNewYear, false, str("year", "2026")),
		command(CmdArchiveYear, false, str("year", "2025")),
		command(CmdIssueCode, false, str("email", "a@b.c")),
	} {
		r := s.app.Handle(context.Background(), i)
		s.Equal(discordgo.InteractionResponseChannelMessageWithSource, r.Type)
		s.True(ephemeral(r))
		s.Contains(r.Data.Content, "Administrator")
	}
	s.Empty(s.pool.names)
	s.Empty(s.api.Calls())
}

func (s *AppSuite) TestMalformedYear() {
	for _, y := range []string{"26", "20266", "year", ""} {
		r := s.app.Handle(context.Background(), command(CmdCreateNewYear, true, str("year", y)))
		s.True(ephemeral(r), y)
		s.Contains(r.Data.Content, "4-digit", y)
	}
	s.Empty(s.pool.names)
	s.Empty(s.api.Calls())
}

func (s *AppSuite) TestPoolClosed() {
	s.pool.closed = true
	r := s.app.Handle(context.Background(), command(CmdVerify, false, str("code", "ABC123")))
	s.Equal(discordgo.InteractionResponseChannelMessageWithSource, r.Type)
	s.Contains(r.Data.Content, "restarting")
}

// ---------- deferred workflows ----------

func (s *AppSuite) TestVerify() {
	s.api.AddRole("2025")
	s.store.Add("tbl2025", airtable.Record{ID: "rec1", Fields: airtable.Fields{
		"fldCode": "ABC123", "fldPay": schema.PaymentPaidInFull, "fldName": "Jane Doe",
	}})

	r := s.app.Handle(context.Background(), command(CmdVerify, false, str("code", "ABC123")))
	s.Equal(discordgo.InteractionResponseDeferredChannelMessageWithSource, r.Type)
	s.True(ephemeral(r))
	s.Equal([]string{CmdVerify}, s.pool.names)

	msg := s.last()
	s.Contains(msg.Content, "Verification successful")
	s.Contains(msg.Content, "Jane")
	s.Zero(msg.Flags & discordgo.MessageFlagsEphemeral)
}

func (s *AppSuite) TestVerifyInvalidCode() {
	s.app.Handle(context.Background(), command(CmdVerify, false, str("code", "NOPE00")))
	msg := s.last()
	s.Contains(msg.Content, "Invalid verification code")
	s.Equal(discordgo.MessageFlagsEphemeral, msg.Flags)
}

func (s *AppSuite) TestCreateYear() {
	r := s.app.Handle(context.Background(), command(CmdCreateNewYear, true, str("year", "2026"), boolean("archive_previous", false)))
	s.Equal(discordgo.InteractionResponseDeferredChannelMessageWithSource, r.Type)
	s.False(ephemeral(r))

	contents := s.api.FollowUpContents()
	s.Require().GreaterOrEqual(len(contents), 3)
	s.Contains(contents[0], "Beginning setup for 2026")
	final := contents[len(contents)-1]
	s.Contains(final, "Successfully set up the 2026")
	s.Contains(final, "- 2 roles")
	s.Contains(final, "- 6 channels")
	s.Contains(final, "Skipped settings")

	s.Require().Len(s.auditor.entries, 1)
	s.Equal(audit.KindYearCreated, s.auditor.entries[0].Kind)
	s.False(s.auditor.entries[0].Failed)
}

func (s *AppSuite) TestCreateYearPartialFailure() {
	s.api.FailOn("GuildChannelCreateComplex", 1, http.StatusInternalServerError)

	s.app.Handle(context.Background(), command(CmdCreateNewYear, true, str("year", "2026"), boolean("archive_previous", true)))
	final := s.last().Content
	s.Contains(final, "stopped at step **channels**")
	s.Contains(final, "discord returned HTTP 500")
	s.Contains(final, "**Completed:** roles")
	s.Contains(final, "**Not attempted:** archive-previous, settings")
	s.Contains(final, "2 roles, 0 categories, 0 channels")
	s.NotContains(final, "GuildChannelCreateComplex failed")

	s.Require().Len(s.auditor.entries, 1)
	s.True(s.auditor.entries[0].Failed)
}

func (s *AppSuite) TestArchiveYearNotFound() {
	s.app.Handle(context.Background(), command(CmdArchiveYear, true, str("year", "2024")))
	s.Contains(s.last().Content, "No 2024 categories")
	s.Empty(s.auditor.entries)
}

func (s *AppSuite) TestArchiveYear() {
	cat := s.api.AddChannel(discordgo.Channel{Name: "2024 Event", Type: discordgo.ChannelTypeGuildCategory})
	s.api.AddChannel(discordgo.Channel{Name: "general-2024", Type: discordgo.ChannelTypeGuildText, ParentID: cat.ID})

	s.app.Handle(context.Background(), command(CmdArchiveYear, true, str("year", "2024")))
	s.Contains(s.last().Content, "1 categories and 1 channels are now read-only")
	s.Require().Len(s.auditor.entries, 1)
	s.Equal(audit.KindYearArchived, s.auditor.entries[0].Kind)
}

func (s *AppSuite) TestIssueCodeGeneratesAndReuses() {
	s.store.Add("tbl2025", airtable.Record{ID: "rec1", Fields: airtable.Fields{"fldEmail": "jane@example.com", "fldName": "Jane Doe"}})

	s.app.Handle(context.Background(), command(CmdIssueCode, true, str("email", "Jane@Example.com")))
	first := s.last()
	s.Contains(first.Content, "New code for Jane Doe (2025)")
	s.Equal(discordgo.MessageFlagsEphemeral, first.Flags)

	rec, ok := s.store.Record("tbl2025", "rec1")
	s.Require().True(ok)
	code := rec.Fields.String("fldCode")
	s.Len(code, registration.CodeLength)
	s.Contains(first.Content, code)

	s.app.Handle(context.Background(), command(CmdIssueCode, true, str("email", "jane@example.com")))
	s.Contains(s.last().Content, "Existing code for Jane Doe (2025): **"+code+"**")
}

func (s *AppSuite) TestIssueCodeUnknownEmail() {
	s.app.Handle(context.Background(), command(CmdIssueCode, true, str("email", "nobody@example.com")))
	s.Contains(s.last().Content, "No registration found")

	r := s.app.Handle(context.Background(), command(CmdIssueCode, true, str("email", "not-an-email")))
	s.True(ephemeral(r))
	s.Equal(discordgo.InteractionResponseChannelMessageWithSource, r.Type)
}

func (s *AppSuite) TestMyStatus() {
	s.app.Handle(context.Background(), command(CmdMyStatus, false))
	s.Contains(s.last().Content, "No registration is linked")

	s.store.Add("tbl2025", airtable.Record{ID: "rec1", Fields: airtable.Fields{
		"fldDiscord": "42", "fldStatus": "Verified", "fldPay": schema.PaymentActivePlan, "fldName": "Jane Doe",
	}})
	s.app.Handle(context.Background(), command(CmdMyStatus, false))
	msg := s.last().Content
	s.Contains(msg, "Registration for 2025")
	s.Contains(msg, "Verification: Verified")
	s.Contains(msg, "Payment: Active Payment Plan")
}

func TestCommands(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Commands() {
		require.False(t, seen[c.Name], c.Name)
		seen[c.Name] = true
		assert.Equal(t, strings.ToLower(c.Name), c.Name)
		switch c.Name {
		case CmdCreateNewYear, CmdArchiveYear, CmdIssueCode:
			require.NotNil(t, c.DefaultMemberPermissions, c.Name)
			assert.Equal(t, int64(discordgo.PermissionAdministrator), *c.DefaultMemberPermissions)
		default:
			assert.Nil(t, c.DefaultMemberPermissions, c.Name)
		}
	}
	assert.Len(t, seen, 7)
}
