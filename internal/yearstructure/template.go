package yearstructure

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Role colours, matching the guild's existing palette.
const (
	attendeeColor = 0x3498DB
	staffColor    = 0xE67E22
)

type RoleSpec struct {
	Name        string
	Color       int
	Hoist       bool
	Mentionable bool
}

type ChannelSpec struct {
	Name  string
	Topic string
}

type CategorySpec struct {
	Name string
	// StaffOnly categories are hidden from attendees.
	StaffOnly bool
	Channels  []ChannelSpec
}

// Structure is everything a year owns in the guild.
type Structure struct {
	Year       string
	Roles      []RoleSpec
	Categories []CategorySpec
}

// AttendeeRole is also the role granted on verification.
func AttendeeRole(year string) string { return year }

func StaffRole(year string) string { return year + "-Staff" }

func CategoryPrefix(year string) string { return year + " " }

func Template(year string) Structure {
	return Structure{
		Year: year,
		Roles: []RoleSpec{
			{Name: AttendeeRole(year), Color: attendeeColor, Hoist: true, Mentionable: true},
			{Name: StaffRole(year), Color: staffColor, Hoist: true, Mentionable: true},
		},
		Categories: []CategorySpec{
			{
				Name: year + " Event",
				Channels: []ChannelSpec{
					{Name: "announcements-" + year, Topic: "Official announcements for the " + year + " event"},
					{Name: "introductions-" + year, Topic: "Say hello to the " + year + " attendees"},
					{Name: "general-" + year, Topic: "General chat for " + year + " attendees"},
					{Name: "rideshare-" + year, Topic: "Coordinate rides to and from the " + year + " event"},
					{Name: "gearshare-" + year, Topic: "Borrow and lend gear for " + year},
				},
			},
			{
				Name:      year + " Staff",
				StaffOnly: true,
				Channels: []ChannelSpec{
					{Name: "staff-" + year, Topic: "Staff coordination for " + year},
				},
			},
		},
	}
}

// OwnsCategory reports whether a guild category belongs to year.
func OwnsCategory(year string, ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeGuildCategory && strings.HasPrefix(ch.Name, CategoryPrefix(year))
}

const (
	viewSend = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
)

// openOverwrites hides a category from everyone but the year's roles.
// Attendee access is left out for staff-only categories.
func openOverwrites(guildID string, cat CategorySpec, roleIDs map[string]string, year string) []*discordgo.PermissionOverwrite {
	ow := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
	}
	if id, ok := roleIDs[AttendeeRole(year)]; ok && !cat.StaffOnly {
		ow = append(ow, &discordgo.PermissionOverwrite{ID: id, Type: discordgo.PermissionOverwriteTypeRole, Allow: viewSend})
	}
	if id, ok := roleIDs[StaffRole(year)]; ok {
		ow = append(ow, &discordgo.PermissionOverwrite{ID: id, Type: discordgo.PermissionOverwriteTypeRole, Allow: viewSend})
	}
	return ow
}

// archivedOverwrites make channels read-only. @everyone loses view and send;
// the given roles keep read access.
func archivedOverwrites(guildID string, roleIDs []string) []*discordgo.PermissionOverwrite {
	ow := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: viewSend},
	}
	for _, id := range roleIDs {
		ow = append(ow, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel,
			Deny:  discordgo.PermissionSendMessages,
		})
	}
	return ow
}

// readers picks which of the year's roles keep read access to an archived
// category. Attendees never read a staff-only category. When the category
// already carries role overwrites, only roles it currently lets view are kept.
func readers(guildID, year string, cat *discordgo.Channel, roleIDs map[string]string) []string {
	staffOnly := false
	for _, spec := range Template(year).Categories {
		if spec.Name == cat.Name {
			staffOnly = spec.StaffOnly
		}
	}
	names := []string{AttendeeRole(year), StaffRole(year)}
	if staffOnly {
		names = names[1:]
	}

	viewers := map[string]bool{}
	scoped := false
	for _, ow := range cat.PermissionOverwrites {
		if ow.Type != discordgo.PermissionOverwriteTypeRole || ow.ID == guildID {
			continue
		}
		scoped = true
		if ow.Allow&discordgo.PermissionViewChannel != 0 {
			viewers[ow.ID] = true
		}
	}

	var ids []string
	for _, name := range names {
		id, ok := roleIDs[name]
		if !ok || (scoped && !viewers[id]) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
