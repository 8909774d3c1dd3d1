package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"registration-bot/internal/bot"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the interactions HTTP server (default)",
		RunE:  runServe,
	}

	registerCmd = &cobra.Command{
		Use:   "register-commands",
		Short: "Overwrite the guild's slash commands with this bot's definitions",
		RunE:  runRegister,
	}

	checkAccessCmd = &cobra.Command{
		Use:   "check-access",
		Short: "Check the bot token, guild access and configured stores",
		RunE:  runCheckAccess,
	}
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := c.server.Shutdown(sctx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	// Deferred interactions still owe their follow-ups.
	if err := c.pool.Shutdown(sctx); err != nil {
		logger.Error("background tasks abandoned", "err", err)
	}
	logger.Info("bye")
	return nil
}

func runRegister(cmd *cobra.Command, _ []string) error {
	c, err := build(cmd.Context())
	if err != nil {
		return err
	}
	out, err := c.discord.RegisterCommands(cmd.Context(), cfg.ApplicationID, bot.Commands())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	for _, ac := range out {
		cmd.Printf("registered /%s (%s)\n", ac.Name, ac.ID)
	}
	return nil
}

func runCheckAccess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	c, err := build(ctx)
	if err != nil {
		return err
	}

	me, guild, err := c.discord.CheckAccess(ctx)
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	cmd.Printf("discord: logged in as %s#%s, guild %q (%s)\n", me.Username, me.Discriminator, guild.Name, guild.ID)

	year, err := c.settings.CurrentYear(ctx)
	if err != nil {
		return fmt.Errorf("airtable: %w", err)
	}
	cmd.Printf("airtable: current event year %s (settings table configured: %t)\n", year, c.settings.Configured())

	if c.ledger != nil {
		n, err := c.ledger.Count(ctx)
		if err != nil {
			return fmt.Errorf("sheets: %w", err)
		}
		cmd.Printf("sheets: %d verification rows in %s\n", n, c.ledger.SpreadsheetID())
	}
	return nil
}
