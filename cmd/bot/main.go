package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hanamilabs/frc-clock-bot/internal/app"
	"github.com/hanamilabs/frc-clock-bot/internal/config"
	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/logging"
	"github.com/hanamilabs/frc-clock-bot/internal/ports"
	"github.com/hanamilabs/frc-clock-bot/internal/service"
	"github.com/hanamilabs/frc-clock-bot/internal/storage"
	"github.com/hanamilabs/frc-clock-bot/internal/tba"
	"github.com/hanamilabs/frc-clock-bot/internal/telegram"
	"github.com/hanamilabs/frc-clock-bot/internal/telemetry"
	"github.com/hanamilabs/frc-clock-bot/internal/triggers"
	"github.com/hanamilabs/frc-clock-bot/internal/twitch"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bot: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return runServe()
	}

	switch args[0] {
	case "serve":
		return runServe()
	case "check":
		return runCheck(args[1:])
	case "migrate":
		return runMigrate()
	case "import-session":
		return runImportSession()
	case "history":
		return runHistory(args[1:])
	case "resolve-group":
		return runResolveGroup(args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type chatTransport interface {
	ports.Transport
	CheckConnectivity(ctx context.Context) error
}

func runServe() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if err := cfg.RequireTransportCredentials(); err != nil {
		return err
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}

	profile, err := config.LoadProfile(cfg.ConfigPath)
	if err != nil {
		return err
	}

	reporter := telemetry.InitSentry(logger, cfg.SentryDSN, cfg.SentryEnvironment, version)
	defer reporter.Flush()
	metrics := telemetry.NewMetrics()

	var (
		sessionStore ports.SessionStore
		recorder     ports.TickRecorder
		history      ports.TickHistory
	)
	if cfg.StoreBackend == "sqlite" {
		store, err := openSQLite(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		sessionStore, recorder, history = store, store, store
	} else {
		sessionStore = storage.NewFileSessionStore(cfg.SessionPath)
	}

	transport := newTransport(cfg, logger, profile)
	tbaClient := tba.NewClient(cfg.TBABaseURL, profile.APIKey, cfg.TBATimeout, metrics)

	matcher, err := triggers.NewMatcher(toRules(profile.Rules))
	if err != nil {
		return err
	}

	lookup := service.NewLookupService(
		logger,
		service.NewResolver(profile.Location(), profile.Overrides),
		tbaClient,
		transport,
		recorder,
		reporter,
		metrics,
		service.LookupOptions{
			District:  profile.District,
			AllowList: profile.AllowList,
			GroupID:   profile.GroupID,
			SendDelay: profile.SendDelay(),
		},
	)
	responder := service.NewResponderService(logger, matcher, transport, reporter, metrics, profile.GroupID, profile.IgnoreID)
	sessions := service.NewSessionService(logger, sessionStore)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	scheduler, err := service.NewScheduler(ctx, logger, profile.Location(), cfg.TickSchedule, cfg.TickOverlap, lookup.Tick)
	if err != nil {
		return err
	}
	var startOnce sync.Once
	defer scheduler.Stop()

	events := ports.TransportEvents{
		OnQR: func(code string) {
			logger.Info("QR code received, please scan it", "code", code)
		},
		OnAuthenticated: func(session []byte) {
			sessions.Persist(ctx, session)
		},
		OnReady: func() {
			logger.Info("chat transport is ready", "transport", cfg.ChatTransport, "group_id", profile.GroupID)
			startOnce.Do(scheduler.Start)
		},
		OnMessage: responder.HandleMessage,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- transport.Run(ctx, sessions.Restore(ctx), events)
	}()

	var server *app.HealthServer
	if cfg.HealthPort > 0 {
		server = app.NewHealthServer(cfg.HealthPort, logger, metrics, cfg.ChatTransport, tbaClient.CheckConnectivity, transport.CheckConnectivity, history)
		go func() {
			errCh <- server.ListenAndServe()
		}()
	}

	logger.Info("bot serving",
		"transport", cfg.ChatTransport,
		"store", cfg.StoreBackend,
		"district", profile.District,
		"timezone", profile.Timezone,
		"tick_overlap", cfg.TickOverlap,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down bot")
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) && !app.IsServerClosed(err) {
			logger.Error("bot stopped", "error", err)
		} else {
			err = nil
		}
		cancel()
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil && !app.IsServerClosed(shutdownErr) {
			return shutdownErr
		}
	}
	return err
}

func newTransport(cfg config.Config, logger *slog.Logger, profile config.Profile) chatTransport {
	if cfg.ChatTransport == "twitch" {
		return twitch.NewTransport(logger, cfg.TwitchUsername, cfg.TwitchOAuthToken, profile.GroupID)
	}
	return telegram.NewAPI(logger, cfg.BotToken, time.Duration(cfg.BotPollingIntervalS)*time.Second)
}

func toRules(specs []config.RuleSpec) []triggers.Rule {
	return lo.Map(specs, func(spec config.RuleSpec, _ int) triggers.Rule {
		return triggers.Rule{
			Name:     spec.Name,
			Contains: spec.Contains,
			OrLacks:  spec.OrLacks,
			Unless:   spec.Unless,
			Replies:  spec.Replies,
		}
	})
}

func openSQLite(ctx context.Context, cfg config.Config) (*storage.SQLiteStore, error) {
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var at string
	fs.StringVar(&at, "at", "", "HH:MM in the profile timezone (default: now)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	profile, err := config.LoadProfile(cfg.ConfigPath)
	if err != nil {
		return err
	}

	now := time.Now().In(profile.Location())
	if strings.TrimSpace(at) != "" {
		clock, err := time.Parse("15:04", strings.TrimSpace(at))
		if err != nil {
			return fmt.Errorf("--at must be HH:MM: %w", err)
		}
		now = time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, profile.Location())
	}

	logger := logging.NewWithWriter(os.Stderr, "text", cfg.LogLevel)
	lookup := service.NewLookupService(
		logger,
		service.NewResolver(profile.Location(), profile.Overrides),
		tba.NewClient(cfg.TBABaseURL, profile.APIKey, cfg.TBATimeout, nil),
		nil,
		nil,
		nil,
		nil,
		service.LookupOptions{District: profile.District, AllowList: profile.AllowList, GroupID: profile.GroupID},
	)
	result := lookup.RunAt(context.Background(), now, true)

	fmt.Printf("time:      %s\n", now.Format("15:04 MST"))
	fmt.Printf("candidate: %s\n", result.Candidate)
	fmt.Printf("outcome:   %s\n", result.Outcome)
	if result.Error != "" {
		fmt.Printf("error:     %s\n", result.Error)
	}
	if result.Message != "" {
		fmt.Printf("message to %s:\n%s\n", profile.GroupID, result.Message)
	}
	return nil
}

func runMigrate() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	store, err := openSQLite(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("migration complete (%s)\n", cfg.DatabasePath)
	return nil
}

func runImportSession() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	store, err := openSQLite(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.ImportSessionFile(context.Background(), cfg.SessionPath)
	if err != nil {
		return err
	}
	if !stats.Imported {
		fmt.Printf("no session found at %s\n", cfg.SessionPath)
		return nil
	}
	fmt.Printf("import complete: %d bytes from %s\n", stats.Bytes, cfg.SessionPath)
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var limit int
	fs.IntVar(&limit, "limit", 20, "number of ticks to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if cfg.StoreBackend != "sqlite" {
		return errors.New("history requires STORE_BACKEND=sqlite")
	}
	store, err := openSQLite(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentTicks(context.Background(), limit)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Candidate", "Outcome", "Team", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, run := range runs {
		team, detail := "", ""
		switch run.Outcome {
		case domain.TickAnnounced:
			team, detail = strconv.Itoa(run.TeamNumber), run.Nickname
		case domain.TickFailed:
			detail = run.Error
		}
		table.Append([]string{run.At.Local().Format("2006-01-02 15:04"), run.Candidate, string(run.Outcome), team, detail})
	}
	table.Render()
	return nil
}

func runResolveGroup(args []string) error {
	fs := flag.NewFlagSet("resolve-group", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var name string
	fs.StringVar(&name, "name", "", "public @group name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("--name is required")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if cfg.ChatTransport != "telegram" {
		return errors.New("resolve-group only applies to CHAT_TRANSPORT=telegram")
	}
	if err := cfg.RequireTransportCredentials(); err != nil {
		return err
	}

	api := telegram.NewAPI(logging.NewWithWriter(os.Stderr, "text", cfg.LogLevel), cfg.BotToken, time.Duration(cfg.BotPollingIntervalS)*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	chatID, err := api.ResolveChatID(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", name, chatID)
	return nil
}
