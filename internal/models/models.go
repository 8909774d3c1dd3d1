package models

import "registration-bot/internal/airtable"

// Outcome is a resolved registration: the record plus the year and table
// that own it. It is never persisted.
type Outcome struct {
	Record  airtable.Record
	Year    string
	TableID string
}

// DiscordUser identifies the member invoking a command.
type DiscordUser struct {
	ID            string
	Username      string
	Discriminator string
}

// Tag renders "name#1234", or just the name for accounts without a
// discriminator.
func (u DiscordUser) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// DiscordInfo is what a successful verification writes back to the record.
type DiscordInfo struct {
	User  DiscordUser
	Roles []string
}
