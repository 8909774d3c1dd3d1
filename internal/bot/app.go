package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"registration-bot/internal/audit"
	"registration-bot/internal/models"
	"registration-bot/internal/schema"
	"registration-bot/internal/verification"
	"registration-bot/internal/worker"
	"registration-bot/internal/yearstructure"
)

type Verifier interface {
	Verify(ctx context.Context, req verification.Request) verification.Result
}

type YearStructure interface {
	Create(ctx context.Context, req yearstructure.CreateRequest, progress yearstructure.Progress) (*yearstructure.CreateSummary, error)
	Archive(ctx context.Context, year string, progress yearstructure.Progress) (*yearstructure.ArchiveSummary, error)
}

type Lookup interface {
	ByEmail(ctx context.Context, email string) (*models.Outcome, error)
	ByDiscordID(ctx context.Context, discordID string) (*models.Outcome, error)
}

type CodeIssuer interface {
	GenerateCode(ctx context.Context, o *models.Outcome) (string, error)
}

type FollowUpper interface {
	FollowUp(ctx context.Context, i *discordgo.Interaction, content string, ephemeral bool) error
}

type Submitter interface {
	Submit(name string, task worker.Task) (string, error)
}

type Auditor interface {
	Log(ctx context.Context, e audit.Entry) bool
}

// Deps are the workflows and transports the dispatcher routes to.
type Deps struct {
	Verifier Verifier
	Years    YearStructure
	Lookup   Lookup
	Codes    CodeIssuer
	Registry *schema.Registry
	Discord  FollowUpper
	Pool     Submitter
	Audit    Auditor
	Logger   *slog.Logger
}

type App struct {
	Deps
}

func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &App{Deps: d}
}

// Handle answers one interaction. Long workflows are deferred: the response
// acknowledges the command and the work continues on the pool, reporting back
// through follow-up messages.
func (a *App) Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	switch i.Type {
	case discordgo.InteractionPing:
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}
	case discordgo.InteractionApplicationCommand:
	default:
		return reply("❌ Unsupported interaction.", true)
	}

	data := i.ApplicationCommandData()
	a.Logger.Info("command received", "command", data.Name, "user", invoker(i).ID, "guild", i.GuildID)

	switch data.Name {
	case CmdVerify:
		return a.verify(i, data)
	case CmdHelpVerify:
		return reply(helpText, true)
	case CmdPing:
		return reply("🏓 Pong!", true)
	case CmdMyStatus:
		return a.myStatus(i)
	case CmdCreateNewYear:
		return a.createYear(i, data)
	case CmdArchiveYear:
		return a.archiveYear(i, data)
	case CmdIssueCode:
		return a.issueCode(i, data)
	}
	a.Logger.Warn("unknown command", "command", data.Name)
	return reply("❌ Unknown command.", true)
}

// ---------- responses ----------

func reply(content string, ephemeral bool) *discordgo.InteractionResponse {
	d := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		d.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseChannelMessageWithSource, Data: d}
}

func deferred(ephemeral bool) *discordgo.InteractionResponse {
	d := &discordgo.InteractionResponseData{}
	if ephemeral {
		d.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource, Data: d}
}

// background defers the interaction and runs task on the pool. If the pool
// refuses the task the user gets an immediate answer instead.
func (a *App) background(i *discordgo.Interaction, name string, ephemeral bool, task func(ctx context.Context)) *discordgo.InteractionResponse {
	id, err := a.Pool.Submit(name, func(ctx context.Context) error {
		task(ctx)
		return nil
	})
	if err != nil {
		a.Logger.Error("could not schedule task", "task", name, "err", err)
		return reply("❌ The bot is restarting. Please try again in a minute.", true)
	}
	a.Logger.Debug("task scheduled", "task", name, "task_id", id, "interaction", i.ID)
	return deferred(ephemeral)
}

func (a *App) followUp(ctx context.Context, i *discordgo.Interaction, content string, ephemeral bool) {
	if err := a.Discord.FollowUp(ctx, i, content, ephemeral); err != nil {
		a.Logger.Error("follow-up failed", "interaction", i.ID, "err", err)
	}
}

// ---------- helpers ----------

func invoker(i *discordgo.Interaction) models.DiscordUser {
	u := i.User
	if i.Member != nil && i.Member.User != nil {
		u = i.Member.User
	}
	if u == nil {
		return models.DiscordUser{}
	}
	return models.DiscordUser{ID: u.ID, Username: u.Username, Discriminator: u.Discriminator}
}

func isAdmin(i *discordgo.Interaction) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func option(data discordgo.ApplicationCommandInteractionData, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range data.Options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	if o := option(data, name); o != nil && o.Type == discordgo.ApplicationCommandOptionString {
		return strings.TrimSpace(o.StringValue())
	}
	return ""
}

func boolOption(data discordgo.ApplicationCommandInteractionData, name string) bool {
	if o := option(data, name); o != nil && o.Type == discordgo.ApplicationCommandOptionBoolean {
		return o.BoolValue()
	}
	return false
}

// requireAdmin returns a rejection for non-admins, or nil.
func requireAdmin(i *discordgo.Interaction) *discordgo.InteractionResponse {
	if isAdmin(i) {
		return nil
	}
	return reply("❌ You need Administrator permissions to use this command.", true)
}

// yearArg returns the validated year option or a rejection.
func yearArg(data discordgo.ApplicationCommandInteractionData) (string, *discordgo.InteractionResponse) {
	year := stringOption(data, "year")
	if !schema.ValidYear(year) {
		return "", reply("❌ Please provide a valid 4-digit year (e.g., 2025).", true)
	}
	return year, nil
}
