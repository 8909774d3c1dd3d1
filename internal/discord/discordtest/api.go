// Package discordtest provides an in-memory guild implementing discord.API.
package discordtest

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type failure struct {
	nth    int
	status int
	body   string
}

// API fakes one guild. Every call is appended to the call log as
// "Method target".
type API struct {
	GuildID   string
	FollowUps []*discordgo.WebhookParams
	Commands  []*discordgo.ApplicationCommand

	mu       sync.Mutex
	roles    []*discordgo.Role
	channels []*discordgo.Channel
	members  map[string][]string
	messages map[string][]*discordgo.MessageEmbed
	calls    []string
	counts   map[string]int
	failures map[string]failure
	nextID   int
}

func New(guildID string) *API {
	return &API{
		GuildID:  guildID,
		members:  map[string][]string{},
		messages: map[string][]*discordgo.MessageEmbed{},
		counts:   map[string]int{},
		failures: map[string]failure{},
		// every guild has @everyone, whose id is the guild id
		roles: []*discordgo.Role{{ID: guildID, Name: "@everyone"}},
	}
}

// FailOn makes the nth call (1-based) of method fail with status.
func (a *API) FailOn(method string, nth, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[method] = failure{nth: nth, status: status, body: fmt.Sprintf(`{"message":"%s failed"}`, method)}
}

func (a *API) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *API) AddRole(name string) *discordgo.Role {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := &discordgo.Role{ID: a.id(), Name: name}
	a.roles = append(a.roles, r)
	return r
}

func (a *API) AddChannel(ch discordgo.Channel) *discordgo.Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ch.ID == "" {
		ch.ID = a.id()
	}
	ch.GuildID = a.GuildID
	c := &ch
	a.channels = append(a.channels, c)
	return c
}

func (a *API) RoleNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, r := range a.roles {
		out = append(out, r.Name)
	}
	return out
}

func (a *API) Channel(name string) *discordgo.Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.channels {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (a *API) AllChannels() []*discordgo.Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*discordgo.Channel(nil), a.channels...)
}

func (a *API) MemberRoles(userID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.members[userID]...)
}

func (a *API) Embeds(channelID string) []*discordgo.MessageEmbed {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*discordgo.MessageEmbed(nil), a.messages[channelID]...)
}

func (a *API) id() string {
	a.nextID++
	return fmt.Sprintf("%d", 1000+a.nextID)
}

// call logs the invocation and returns an injected failure, if any. Callers
// hold a.mu.
func (a *API) call(method, target string) error {
	a.calls = append(a.calls, method+" "+target)
	a.counts[method]++
	f, ok := a.failures[method]
	if !ok || f.nth != a.counts[method] {
		return nil
	}
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: f.status, Status: http.StatusText(f.status)},
		ResponseBody: []byte(f.body),
	}
}

func (a *API) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("GuildRoles", guildID); err != nil {
		return nil, err
	}
	out := make([]*discordgo.Role, len(a.roles))
	for i, r := range a.roles {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (a *API) GuildRoleCreate(guildID string, data *discordgo.RoleParams, _ ...discordgo.RequestOption) (*discordgo.Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("GuildRoleCreate", data.Name); err != nil {
		return nil, err
	}
	r := &discordgo.Role{ID: a.id(), Name: data.Name}
	if data.Color != nil {
		r.Color = *data.Color
	}
	if data.Hoist != nil {
		r.Hoist = *data.Hoist
	}
	if data.Mentionable != nil {
		r.Mentionable = *data.Mentionable
	}
	a.roles = append(a.roles, r)
	cp := *r
	return &cp, nil
}

func (a *API) GuildRoleEdit(guildID, roleID string, data *discordgo.RoleParams, _ ...discordgo.RequestOption) (*discordgo.Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("GuildRoleEdit", roleID); err != nil {
		return nil, err
	}
	for _, r := range a.roles {
		if r.ID == roleID {
			if data.Name != "" {
				r.Name = data.Name
			}
			cp := *r
			return &cp, nil
		}
	}
	return nil, notFound()
}

func (a *API) GuildRoleDelete(guildID, roleID string, _ ...discordgo.RequestOption) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("GuildRoleDelete", roleID); err != nil {
		return err
	}
	for i, r := range a.roles {
		if r.ID == roleID {
			a.roles = append(a.roles[:i], a.roles[i+1:]...)
			return nil
		}
	}
	return notFound()
}

func (a *API) GuildChannels(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("GuildChannels", guildID); err != nil {
		return nil, err
	}
	out := make([]*discordgo.Channel, len(a.channels))
	for i, c := range a.channels {
		cp := *c
		out[i] = &cp
	}
	return out, nil
}

func (a *API) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("GuildChannelCreateComplex", data.Name); err != nil {
		return nil, err
	}
	c := &discordgo.Channel{
		ID:                   a.id(),
		GuildID:              guildID,
		Name:                 data.Name,
		Type:                 data.Type,
		Topic:                data.Topic,
		ParentID:             data.ParentID,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	a.channels = append(a.channels, c)
	cp := *c
	return &cp, nil
}

func (a *API) ChannelEdit(channelID string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("ChannelEdit", channelID); err != nil {
		return nil, err
	}
	for _, c := range a.channels {
		if c.ID != channelID {
			continue
		}
		if data.Name != "" {
			c.Name = data.Name
		}
		if data.Topic != "" {
			c.Topic = data.Topic
		}
		if data.PermissionOverwrites != nil {
			c.PermissionOverwrites = data.PermissionOverwrites
		}
		cp := *c
		return &cp, nil
	}
	return nil, notFound()
}

func (a *API) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("ChannelDelete", channelID); err != nil {
		return nil, err
	}
	for i, c := range a.channels {
		if c.ID == channelID {
			a.channels = append(a.channels[:i], a.channels[i+1:]...)
			return c, nil
		}
	}
	return nil, notFound()
}

func (a *API) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("GuildMemberRoleAdd", userID+"/"+roleID); err != nil {
		return err
	}
	a.members[userID] = append(a.members[userID], roleID)
	return nil
}

func (a *API) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("ChannelMessageSendEmbed", channelID); err != nil {
		return nil, err
	}
	a.messages[channelID] = append(a.messages[channelID], embed)
	return &discordgo.Message{ID: a.id(), ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func (a *API) FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("FollowupMessageCreate", i.Token); err != nil {
		return nil, err
	}
	a.FollowUps = append(a.FollowUps, data)
	return &discordgo.Message{ID: a.id(), Content: data.Content}, nil
}

// FollowUpContents returns the text of every follow-up sent so far.
func (a *API) FollowUpContents() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, f := range a.FollowUps {
		out = append(out, f.Content)
	}
	return out
}

func (a *API) ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("ApplicationCommandBulkOverwrite", appID); err != nil {
		return nil, err
	}
	a.Commands = cmds
	return cmds, nil
}

func (a *API) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("User", userID); err != nil {
		return nil, err
	}
	return &discordgo.User{ID: "999", Username: "regbot", Bot: true}, nil
}

func (a *API) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.call("Guild", guildID); err != nil {
		return nil, err
	}
	return &discordgo.Guild{ID: guildID, Name: "Test Guild"}, nil
}

func notFound() error {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		ResponseBody: []byte(`{"message":"Unknown"}`),
	}
}
