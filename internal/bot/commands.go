package bot

import "github.com/bwmarrin/discordgo"

const (
	CmdVerify        = "verify"
	CmdHelpVerify    = "helpverify"
	CmdCreateNewYear = "createnewyear"
	CmdArchiveYear   = "archiveyear"
	CmdIssueCode     = "issuecode"
	CmdMyStatus      = "mystatus"
	CmdPing          = "ping"
)

var adminOnly = int64(discordgo.PermissionAdministrator)

// Commands are the slash command definitions pushed by register-commands.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CmdVerify,
			Description: "Verify your event registration",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "code",
				Description: "Your verification code from the registration email",
				Required:    true,
			}},
		},
		{
			Name:        CmdHelpVerify,
			Description: "Get help with the verification process",
		},
		{
			Name:        CmdMyStatus,
			Description: "Show the registration linked to your Discord account",
		},
		{
			Name:                     CmdCreateNewYear,
			Description:              "Create channels and roles for a new event year",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "year",
					Description: "The year to create (e.g., 2025)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "archive_previous",
					Description: "Automatically archive the previous year",
				},
			},
		},
		{
			Name:                     CmdArchiveYear,
			Description:              "Archive channels for a previous event year",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "year",
				Description: "The year to archive (e.g., 2024)",
				Required:    true,
			}},
		},
		{
			Name:                     CmdIssueCode,
			Description:              "Look up or generate a registrant's verification code",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "email",
				Description: "The email used at registration",
				Required:    true,
			}},
		},
		{
			Name:        CmdPing,
			Description: "Check that the bot is responding",
		},
	}
}

const helpText = "# Verification Help\n\n" +
	"**How to verify your registration:**\n\n" +
	"1. **Complete Registration**: Make sure you've completed your event registration (Paid in Full or Payment Plan) through our website.\n\n" +
	"2. **Get Your Code**: Check your email for a verification code. This is sent to the email you used during registration.\n\n" +
	"3. **Use the Verify Command**: Type `/verify` followed by your code (for example: `/verify ABC123`)\n\n" +
	"4. **Access Granted**: Once verified, you'll receive a Discord role for the specific event year.\n\n" +
	"**Troubleshooting:**\n\n" +
	"- **Code Not Working?** Double-check for typos, the code is case-sensitive.\n" +
	"- **No Code in Email?** Contact the event staff.\n" +
	"- **Payment Issues?** Make sure your payment is complete before verifying.\n\n" +
	"**Need More Help?**\n" +
	"Use `/mystatus` to see what we have on file, or ask in the #ask-an-organizer channel."
