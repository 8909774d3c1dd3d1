package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"registration-bot/internal/apperr"
)

const serviceName = "discord"

// API is the part of *discordgo.Session the bot calls.
type API interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildRoleEdit(guildID, roleID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildRoleDelete(guildID, roleID string, options ...discordgo.RequestOption) error
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
}

var _ API = (*discordgo.Session)(nil)

// Provisioner wraps guild role and channel primitives for one guild. Each
// method is a single remote call, except the lookup helpers, which list and
// then act.
type Provisioner struct {
	api     API
	guildID string
	logger  *slog.Logger
	onError func(*apperr.RemoteError)
}

type Option func(*Provisioner)

func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.logger = l }
}

func WithErrorHook(fn func(*apperr.RemoteError)) Option {
	return func(p *Provisioner) { p.onError = fn }
}

func New(api API, guildID string, opts ...Option) *Provisioner {
	p := &Provisioner{api: api, guildID: guildID, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewSession opens a REST-only session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 0
	return s, nil
}

func (p *Provisioner) GuildID() string { return p.guildID }

// ---------- roles ----------

func (p *Provisioner) Roles(ctx context.Context) ([]*discordgo.Role, error) {
	roles, err := p.api.GuildRoles(p.guildID, discordgo.WithContext(ctx))
	return roles, p.wrap("list roles", err)
}

func (p *Provisioner) CreateRole(ctx context.Context, params discordgo.RoleParams) (*discordgo.Role, error) {
	role, err := p.api.GuildRoleCreate(p.guildID, &params, discordgo.WithContext(ctx))
	return role, p.wrap("create role "+params.Name, err)
}

func (p *Provisioner) UpdateRole(ctx context.Context, roleID string, params discordgo.RoleParams) (*discordgo.Role, error) {
	role, err := p.api.GuildRoleEdit(p.guildID, roleID, &params, discordgo.WithContext(ctx))
	return role, p.wrap("update role "+roleID, err)
}

func (p *Provisioner) DeleteRole(ctx context.Context, roleID string) error {
	return p.wrap("delete role "+roleID, p.api.GuildRoleDelete(p.guildID, roleID, discordgo.WithContext(ctx)))
}

// AddRoleToMember succeeds on any 2xx, including the 204 the endpoint
// normally answers with.
func (p *Provisioner) AddRoleToMember(ctx context.Context, userID, roleID string) error {
	err := p.api.GuildMemberRoleAdd(p.guildID, userID, roleID, discordgo.WithContext(ctx))
	return p.wrap("add role "+roleID+" to "+userID, err)
}

// RoleByName returns nil when no role has that name.
func (p *Provisioner) RoleByName(ctx context.Context, name string) (*discordgo.Role, error) {
	roles, err := p.Roles(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

// AssignYearRole gives the member the role named after the event year and
// returns the names of the roles assigned.
func (p *Provisioner) AssignYearRole(ctx context.Context, userID, year string) ([]string, error) {
	role, err := p.RoleByName(ctx, year)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperr.NotFound("role %q not found in guild", year)
	}
	if err := p.AddRoleToMember(ctx, userID, role.ID); err != nil {
		return nil, err
	}
	return []string{role.Name}, nil
}

// ---------- channels ----------

func (p *Provisioner) Channels(ctx context.Context) ([]*discordgo.Channel, error) {
	chans, err := p.api.GuildChannels(p.guildID, discordgo.WithContext(ctx))
	return chans, p.wrap("list channels", err)
}

func (p *Provisioner) CreateChannel(ctx context.Context, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	ch, err := p.api.GuildChannelCreateComplex(p.guildID, data, discordgo.WithContext(ctx))
	return ch, p.wrap("create channel "+data.Name, err)
}

func (p *Provisioner) UpdateChannel(ctx context.Context, channelID string, data discordgo.ChannelEdit) (*discordgo.Channel, error) {
	ch, err := p.api.ChannelEdit(channelID, &data, discordgo.WithContext(ctx))
	return ch, p.wrap("update channel "+channelID, err)
}

func (p *Provisioner) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := p.api.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return p.wrap("delete channel "+channelID, err)
}

// ChannelByName returns nil when the guild has no channel with that name.
func (p *Provisioner) ChannelByName(ctx context.Context, name string) (*discordgo.Channel, error) {
	chans, err := p.Channels(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range chans {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

// ---------- messages ----------

func (p *Provisioner) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := p.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return p.wrap("send embed to "+channelID, err)
}

// FollowUp posts a follow-up to a deferred interaction.
func (p *Provisioner) FollowUp(ctx context.Context, i *discordgo.Interaction, content string, ephemeral bool) error {
	params := &discordgo.WebhookParams{Content: content}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := p.api.FollowupMessageCreate(i, false, params, discordgo.WithContext(ctx))
	return p.wrap("follow-up", err)
}

// ---------- setup ----------

func (p *Provisioner) RegisterCommands(ctx context.Context, appID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	out, err := p.api.ApplicationCommandBulkOverwrite(appID, p.guildID, cmds, discordgo.WithContext(ctx))
	return out, p.wrap("register commands", err)
}

// CheckAccess confirms the token is valid and the bot can see the guild.
func (p *Provisioner) CheckAccess(ctx context.Context) (*discordgo.User, *discordgo.Guild, error) {
	me, err := p.api.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, nil, p.wrap("fetch bot user", err)
	}
	g, err := p.api.Guild(p.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return me, nil, p.wrap("fetch guild", err)
	}
	return me, g, nil
}

func (p *Provisioner) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	re := &apperr.RemoteError{Service: serviceName, Err: err}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Response != nil {
			re.Status = rest.Response.StatusCode
		}
		re.Body = string(rest.ResponseBody)
		re.Err = nil
	}
	p.logger.Error("discord request failed", "op", op, "status", re.Status, "body", re.Body, "err", re.Err)
	if p.onError != nil {
		p.onError(re)
	}
	return fmt.Errorf("%s: %w", op, re)
}
