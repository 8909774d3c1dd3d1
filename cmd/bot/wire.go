package main

import (
	"context"
	"fmt"
	"net/http"

	"registration-bot/internal/airtable"
	"registration-bot/internal/apperr"
	"registration-bot/internal/audit"
	"registration-bot/internal/bot"
	"registration-bot/internal/discord"
	"registration-bot/internal/metrics"
	"registration-bot/internal/registration"
	"registration-bot/internal/schema"
	"registration-bot/internal/server"
	"registration-bot/internal/sheets"
	"registration-bot/internal/tgbot"
	"registration-bot/internal/verification"
	"registration-bot/internal/worker"
	"registration-bot/internal/yearstructure"
)

type components struct {
	metrics  *metrics.Metrics
	settings *registration.SettingsStore
	discord  *discord.Provisioner
	ledger   *sheets.Ledger
	pool     *worker.Pool
	server   *http.Server
}

// remote builds the Airtable client and Discord provisioner. Both feed the
// remote error counter.
func remote(m *metrics.Metrics) (*airtable.Client, *discord.Provisioner, error) {
	hook := func(e *apperr.RemoteError) { m.IncRemoteError(e.Service) }

	records := airtable.New(cfg.AirtableAPIKey, cfg.AirtableBaseID,
		airtable.WithTimeout(cfg.HTTPTimeout),
		airtable.WithRateLimit(cfg.AirtableRateLimit),
		airtable.WithLogger(logger),
		airtable.WithErrorHook(hook),
	)

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return nil, nil, err
	}
	session.Client.Timeout = cfg.HTTPTimeout
	prov := discord.New(session, cfg.GuildID, discord.WithLogger(logger), discord.WithErrorHook(hook))
	return records, prov, nil
}

func build(ctx context.Context) (*components, error) {
	reg, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	logger.Info("schema loaded", "years", reg.Years(), "verification_years", reg.VerificationYears())

	c := &components{metrics: metrics.New()}
	m := c.metrics

	records, prov, err := remote(m)
	if err != nil {
		return nil, err
	}
	c.discord = prov
	c.settings = registration.NewSettingsStore(records, reg, cfg.DefaultEventYear)
	resolver := registration.NewResolver(records, reg, c.settings, registration.WithLogger(logger))
	regs := registration.NewRegistrations(records, reg, logger)

	// ---------- audit sinks ----------
	sinks := []audit.Sink{audit.NewDiscordSink(prov, cfg.VerificationLogChannel)}
	if cfg.SheetsEnabled() {
		sc, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("sheets: %w", err)
		}
		c.ledger = sheets.NewLedger(sc)
		sinks = append(sinks, c.ledger)
	}
	if cfg.TelegramEnabled() {
		n, err := tgbot.New(cfg.TelegramToken, cfg.TelegramChatIDs)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sinks = append(sinks, n)
	}
	auditor := audit.NewLogger(logger, sinks...)

	// ---------- workflows ----------
	verifier := verification.New(resolver, regs, prov, auditor, reg,
		verification.WithLogger(logger),
		verification.WithObserver(func(o verification.Outcome) { m.IncVerification(o.String()) }),
	)

	var setter yearstructure.YearSetter
	if c.settings.Configured() {
		setter = c.settings
	} else {
		logger.Warn("no settings table configured; current event year is fixed", "year", cfg.DefaultEventYear)
	}
	years := yearstructure.New(prov, setter,
		yearstructure.WithLogger(logger),
		yearstructure.WithObserver(func(saga string, r yearstructure.StepResult) {
			m.IncSagaStep(saga, string(r.Step), string(r.Status))
		}),
	)

	c.pool = worker.New(cfg.WorkerConcurrency,
		worker.WithLogger(logger),
		worker.WithHooks(worker.Hooks{Queued: m.TaskQueued, Started: m.TaskStarted, Finished: m.TaskFinished}),
	)

	app := bot.New(bot.Deps{
		Verifier: verifier,
		Years:    years,
		Lookup:   resolver,
		Codes:    regs,
		Registry: reg,
		Discord:  prov,
		Pool:     c.pool,
		Audit:    auditor,
		Logger:   logger,
	})

	c.server = server.New(server.Options{
		Addr:      cfg.HTTPAddr,
		PublicKey: cfg.PublicKey,
		Bot:       app,
		Metrics:   m.Handler(),
		Logger:    logger,
	})
	return c, nil
}
