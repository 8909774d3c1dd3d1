package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"registration-bot/internal/apperr"
	"registration-bot/internal/audit"
	"registration-bot/internal/registration"
	"registration-bot/internal/schema"
	"registration-bot/internal/verification"
	"registration-bot/internal/yearstructure"
)

// ---------- verification ----------

func (a *App) verify(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponse {
	code := stringOption(data, "code")
	if code == "" {
		return reply("❌ Please provide a verification code.", true)
	}
	user := invoker(i)
	return a.background(i, CmdVerify, true, func(ctx context.Context) {
		res := a.Verifier.Verify(ctx, verification.Request{Code: code, User: user})
		a.followUp(ctx, i, res.Message(), res.Ephemeral())
	})
}

func (a *App) myStatus(i *discordgo.Interaction) *discordgo.InteractionResponse {
	user := invoker(i)
	return a.background(i, CmdMyStatus, true, func(ctx context.Context) {
		o, err := a.Lookup.ByDiscordID(ctx, user.ID)
		if err != nil {
			a.Logger.Error("status lookup failed", "user", user.ID, "err", err)
			a.followUp(ctx, i, genericError, true)
			return
		}
		if o == nil {
			a.followUp(ctx, i, "ℹ️ No registration is linked to your Discord account yet. Use `/verify` with the code from your registration email.", true)
			return
		}
		status := registration.FieldValue(a.Registry, o, schema.FieldVerificationStatus)
		if status == "" {
			status = schema.StatusUnverified
		}
		var b strings.Builder
		fmt.Fprintf(&b, "**Registration for %s**\n", o.Year)
		if name := registration.FieldValue(a.Registry, o, schema.FieldNameFull); name != "" {
			fmt.Fprintf(&b, "- Name: %s\n", name)
		}
		fmt.Fprintf(&b, "- Verification: %s\n", status)
		if pay := registration.FieldValue(a.Registry, o, schema.FieldPaymentStatus); pay != "" {
			fmt.Fprintf(&b, "- Payment: %s\n", pay)
		}
		a.followUp(ctx, i, b.String(), true)
	})
}

func (a *App) issueCode(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponse {
	if r := requireAdmin(i); r != nil {
		return r
	}
	email := stringOption(data, "email")
	if !strings.Contains(email, "@") {
		return reply("❌ Please provide the email address used at registration.", true)
	}
	return a.background(i, CmdIssueCode, true, func(ctx context.Context) {
		a.followUp(ctx, i, a.codeFor(ctx, email), true)
	})
}

func (a *App) codeFor(ctx context.Context, email string) string {
	o, err := a.Lookup.ByEmail(ctx, email)
	if err != nil {
		a.Logger.Error("email lookup failed", "err", err)
		return genericError
	}
	if o == nil {
		return fmt.Sprintf("❌ No registration found for %s.", email)
	}
	if !a.Registry.SupportsVerification(o.Year) {
		return fmt.Sprintf("❌ The registration for %s is from %s, which does not use verification codes.", email, o.Year)
	}
	name := registration.FieldValue(a.Registry, o, schema.FieldNameFull)
	if code := registration.FieldValue(a.Registry, o, schema.FieldVerificationCode); code != "" {
		return fmt.Sprintf("🔑 Existing code for %s (%s): **%s**", orEmail(name, email), o.Year, code)
	}
	code, err := a.Codes.GenerateCode(ctx, o)
	if err != nil {
		a.Logger.Error("code generation failed", "year", o.Year, "record", o.Record.ID, "err", err)
		return genericError
	}
	return fmt.Sprintf("🔑 New code for %s (%s): **%s**", orEmail(name, email), o.Year, code)
}

func orEmail(name, email string) string {
	if name == "" {
		return email
	}
	return name
}

// ---------- year structure ----------

func (a *App) createYear(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponse {
	if r := requireAdmin(i); r != nil {
		return r
	}
	year, rej := yearArg(data)
	if rej != nil {
		return rej
	}
	req := yearstructure.CreateRequest{Year: year, ArchivePrevious: boolOption(data, "archive_previous")}
	admin := invoker(i)

	return a.background(i, CmdCreateNewYear, false, func(ctx context.Context) {
		a.followUp(ctx, i, fmt.Sprintf("🔄 Beginning setup for %s event structure...", year), false)
		sum, err := a.Years.Create(ctx, req, a.progress(i))
		msg := createMessage(req, sum, err)

		summary := "created"
		if sum != nil {
			summary = fmt.Sprintf("%d roles, %d categories, %d channels created", sum.RolesCreated, sum.CategoriesCreated, sum.ChannelsCreated)
		}
		if err != nil {
			summary += "; " + failureCause(err)
		}
		a.Audit.Log(ctx, audit.Entry{Kind: audit.KindYearCreated, Year: year, User: admin, Summary: summary, Failed: err != nil})
		a.followUp(ctx, i, msg, false)
	})
}

func (a *App) archiveYear(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponse {
	if r := requireAdmin(i); r != nil {
		return r
	}
	year, rej := yearArg(data)
	if rej != nil {
		return rej
	}
	admin := invoker(i)

	return a.background(i, CmdArchiveYear, false, func(ctx context.Context) {
		a.followUp(ctx, i, fmt.Sprintf("🔄 Archiving %s event structure...", year), false)
		sum, err := a.Years.Archive(ctx, year, a.progress(i))
		msg := archiveMessage(year, sum, err)

		if apperr.IsKind(err, apperr.KindNotFound) || apperr.IsKind(err, apperr.KindValidation) {
			a.followUp(ctx, i, msg, false)
			return
		}
		summary := ""
		if sum != nil {
			summary = fmt.Sprintf("%d categories, %d channels archived", sum.CategoriesArchived, sum.ChannelsArchived)
		}
		if err != nil {
			summary = strings.TrimPrefix(summary+"; "+failureCause(err), "; ")
		}
		a.Audit.Log(ctx, audit.Entry{Kind: audit.KindYearArchived, Year: year, User: admin, Summary: summary, Failed: err != nil})
		a.followUp(ctx, i, msg, false)
	})
}

// progress relays saga status lines as ephemeral follow-ups.
func (a *App) progress(i *discordgo.Interaction) yearstructure.Progress {
	return func(ctx context.Context, msg string) {
		a.followUp(ctx, i, msg, true)
	}
}
