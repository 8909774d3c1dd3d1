package yearstructure

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"registration-bot/internal/apperr"
	"registration-bot/internal/schema"
)

// Guild is the slice of the provisioner the sagas drive.
type Guild interface {
	GuildID() string
	Roles(ctx context.Context) ([]*discordgo.Role, error)
	CreateRole(ctx context.Context, params discordgo.RoleParams) (*discordgo.Role, error)
	Channels(ctx context.Context) ([]*discordgo.Channel, error)
	CreateChannel(ctx context.Context, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	UpdateChannel(ctx context.Context, channelID string, data discordgo.ChannelEdit) (*discordgo.Channel, error)
}

// YearSetter persists the current event year.
type YearSetter interface {
	SetCurrentYear(ctx context.Context, year string) error
}

type Orchestrator struct {
	guild    Guild
	settings YearSetter
	logger   *slog.Logger
	observe  Observer
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// New builds an orchestrator. A nil settings store turns the settings step
// into a skip.
func New(guild Guild, settings YearSetter, opts ...Option) *Orchestrator {
	o := &Orchestrator{guild: guild, settings: settings, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type CreateRequest struct {
	Year            string
	ArchivePrevious bool
}

type CreateSummary struct {
	Year              string
	RolesCreated      int
	CategoriesCreated int
	ChannelsCreated   int
	// Archived is set once the previous year has been archived.
	Archived *ArchiveSummary
	Steps    []StepResult
}

type ArchiveSummary struct {
	Year               string
	CategoriesArchived int
	ChannelsArchived   int
	Steps              []StepResult
}

// PreviousYear returns the year before year. year must be valid.
func PreviousYear(year string) string {
	n, _ := strconv.Atoi(year)
	return strconv.Itoa(n - 1)
}

// ---------- create ----------

// Create builds a year's roles and channels, optionally archives the year
// before it, then records the year as current. Names that already exist are
// reused, so a rerun after a partial failure picks up where it stopped.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest, progress Progress) (*CreateSummary, error) {
	if !schema.ValidYear(req.Year) {
		return nil, apperr.Validation("invalid year %q", req.Year)
	}
	tpl := Template(req.Year)
	sum := &CreateSummary{Year: req.Year}
	roleIDs := map[string]string{}
	prev := PreviousYear(req.Year)

	steps := []step{
		{name: StepRoles, run: func(ctx context.Context) error {
			progress.send(ctx, fmt.Sprintf("🔄 Creating roles for %s...", req.Year))
			return o.createRoles(ctx, tpl, roleIDs, sum)
		}},
		{name: StepChannels, run: func(ctx context.Context) error {
			progress.send(ctx, fmt.Sprintf("🔄 Creating channels for %s...", req.Year))
			return o.createChannels(ctx, tpl, roleIDs, sum)
		}},
		{name: StepArchivePrevious, off: !req.ArchivePrevious, run: func(ctx context.Context) error {
			progress.send(ctx, fmt.Sprintf("🔄 Archiving %s structure...", prev))
			arch, err := o.archive(ctx, prev, progress)
			if apperr.IsKind(err, apperr.KindNotFound) {
				return skip{reason: fmt.Sprintf("no %s categories to archive", prev)}
			}
			sum.Archived = arch
			return err
		}},
		{name: StepSettings, run: func(ctx context.Context) error {
			if o.settings == nil {
				return skip{reason: "no settings table"}
			}
			progress.send(ctx, "🔄 Updating database settings...")
			return o.settings.SetCurrentYear(ctx, req.Year)
		}},
	}

	results, err := runSteps(ctx, "create", steps, o.observe)
	sum.Steps = results
	if err != nil {
		o.logger.Error("create year failed", "year", req.Year, "err", err)
		return sum, err
	}
	o.logger.Info("year created", "year", req.Year,
		"roles", sum.RolesCreated, "categories", sum.CategoriesCreated, "channels", sum.ChannelsCreated)
	return sum, nil
}

func (o *Orchestrator) createRoles(ctx context.Context, tpl Structure, roleIDs map[string]string, sum *CreateSummary) error {
	existing, err := o.guild.Roles(ctx)
	if err != nil {
		return err
	}
	for _, r := range existing {
		roleIDs[r.Name] = r.ID
	}
	for _, spec := range tpl.Roles {
		if _, ok := roleIDs[spec.Name]; ok {
			o.logger.Info("role exists, reusing", "role", spec.Name)
			continue
		}
		color, hoist, mention := spec.Color, spec.Hoist, spec.Mentionable
		role, err := o.guild.CreateRole(ctx, discordgo.RoleParams{
			Name:        spec.Name,
			Color:       &color,
			Hoist:       &hoist,
			Mentionable: &mention,
		})
		if err != nil {
			return err
		}
		roleIDs[spec.Name] = role.ID
		sum.RolesCreated++
	}
	return nil
}

func (o *Orchestrator) createChannels(ctx context.Context, tpl Structure, roleIDs map[string]string, sum *CreateSummary) error {
	existing, err := o.guild.Channels(ctx)
	if err != nil {
		return err
	}
	for _, cat := range tpl.Categories {
		overwrites := openOverwrites(o.guild.GuildID(), cat, roleIDs, tpl.Year)

		parent := findChannel(existing, cat.Name, discordgo.ChannelTypeGuildCategory, "")
		if parent == nil {
			parent, err = o.guild.CreateChannel(ctx, discordgo.GuildChannelCreateData{
				Name:                 cat.Name,
				Type:                 discordgo.ChannelTypeGuildCategory,
				PermissionOverwrites: overwrites,
			})
			if err != nil {
				return err
			}
			sum.CategoriesCreated++
		}

		for _, ch := range cat.Channels {
			if findChannel(existing, ch.Name, discordgo.ChannelTypeGuildText, parent.ID) != nil {
				continue
			}
			if _, err := o.guild.CreateChannel(ctx, discordgo.GuildChannelCreateData{
				Name:                 ch.Name,
				Type:                 discordgo.ChannelTypeGuildText,
				Topic:                ch.Topic,
				ParentID:             parent.ID,
				PermissionOverwrites: overwrites,
			}); err != nil {
				return err
			}
			sum.ChannelsCreated++
		}
	}
	return nil
}

func findChannel(chans []*discordgo.Channel, name string, typ discordgo.ChannelType, parentID string) *discordgo.Channel {
	for _, c := range chans {
		if c.Name == name && c.Type == typ && (parentID == "" || c.ParentID == parentID) {
			return c
		}
	}
	return nil
}

// ---------- archive ----------

// Archive makes every category named "<year> ..." and its channels read-only.
// NotFound is returned when the guild has no such category.
func (o *Orchestrator) Archive(ctx context.Context, year string, progress Progress) (*ArchiveSummary, error) {
	if !schema.ValidYear(year) {
		return nil, apperr.Validation("invalid year %q", year)
	}
	sum, err := o.archive(ctx, year, progress)
	if err != nil {
		o.logger.Error("archive year failed", "year", year, "err", err)
		return sum, err
	}
	o.logger.Info("year archived", "year", year,
		"categories", sum.CategoriesArchived, "channels", sum.ChannelsArchived)
	return sum, nil
}

func (o *Orchestrator) archive(ctx context.Context, year string, progress Progress) (*ArchiveSummary, error) {
	var cats, children []*discordgo.Channel
	// overwrites per channel id; children follow their category
	overwrites := map[string][]*discordgo.PermissionOverwrite{}

	sum := &ArchiveSummary{Year: year}
	steps := []step{
		{name: StepLocate, run: func(ctx context.Context) error {
			chans, err := o.guild.Channels(ctx)
			if err != nil {
				return err
			}
			for _, c := range chans {
				if OwnsCategory(year, c) {
					cats = append(cats, c)
				}
			}
			if len(cats) == 0 {
				return apperr.NotFound("no categories found for %s", year)
			}

			roles, err := o.guild.Roles(ctx)
			if err != nil {
				return err
			}
			roleIDs := map[string]string{}
			for _, r := range roles {
				roleIDs[r.Name] = r.ID
			}
			for _, cat := range cats {
				ow := archivedOverwrites(o.guild.GuildID(), readers(o.guild.GuildID(), year, cat, roleIDs))
				overwrites[cat.ID] = ow
				for _, c := range chans {
					if c.ParentID == cat.ID {
						children = append(children, c)
						overwrites[c.ID] = ow
					}
				}
			}
			return nil
		}},
		{name: StepCategories, run: func(ctx context.Context) error {
			progress.send(ctx, fmt.Sprintf("🔄 Locking %d %s categories...", len(cats), year))
			for _, c := range cats {
				if _, err := o.guild.UpdateChannel(ctx, c.ID, discordgo.ChannelEdit{PermissionOverwrites: overwrites[c.ID]}); err != nil {
					return err
				}
				sum.CategoriesArchived++
			}
			return nil
		}},
		{name: StepArchiveChannels, run: func(ctx context.Context) error {
			progress.send(ctx, fmt.Sprintf("🔄 Locking %d %s channels...", len(children), year))
			for _, c := range children {
				if _, err := o.guild.UpdateChannel(ctx, c.ID, discordgo.ChannelEdit{PermissionOverwrites: overwrites[c.ID]}); err != nil {
					return err
				}
				sum.ChannelsArchived++
			}
			return nil
		}},
	}
	var err error
	sum.Steps, err = runSteps(ctx, "archive", steps, o.observe)
	if nf := sum.Steps[0].Err; apperr.IsKind(nf, apperr.KindNotFound) {
		// nothing was touched; callers treat a missing year on its own
		return nil, nf
	}
	return sum, err
}
