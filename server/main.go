package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"card-room/server/config"
	"card-room/server/llm"
	"card-room/server/store"
)

var cli struct {
	Config   string `short:"c" default:"card-room.hcl" help:"Path to the HCL room configuration"`
	LogLevel string `short:"l" help:"Log level override (debug|info|warn|error)"`

	Serve struct{} `cmd:"" default:"1" help:"Run the card room"`
	Play  struct {
		Hands int    `short:"n" default:"50" help:"Number of hands to simulate"`
		Table string `help:"Table from the config to simulate (default: first)"`
	} `cmd:"" help:"Simulate hands locally and print a session report"`
	Migrate struct{} `cmd:"" help:"Apply the database schema and exit"`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&cli,
		kong.Name("card-room"),
		kong.Description("Multi-seat no-limit hold'em cash game service"),
		kong.UsageOnError(),
	)

	room, err := config.Load(cli.Config)
	if err != nil {
		kctx.Errorf("%v", err)
		kctx.Exit(1)
	}
	if cli.LogLevel != "" {
		room.Server.LogLevel = cli.LogLevel
	}
	if err := room.Validate(); err != nil {
		kctx.Errorf("invalid configuration: %v", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch room.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	switch kctx.Command() {
	case "migrate":
		kctx.Exit(runMigrate(logger))
	case "play":
		kctx.Exit(runPlay(room, logger))
	default:
		kctx.Exit(runServe(room, logger))
	}
}

// runPlay spins one table offline at full speed and prints the session
// report once the requested number of hands is in.
func runPlay(room *config.Room, logger *log.Logger) int {
	tcfg := room.Tables[0]
	if cli.Play.Table != "" {
		t := room.TableByName(cli.Play.Table)
		if t == nil {
			logger.Error("no such table in configuration", "table", cli.Play.Table)
			return 1
		}
		tcfg = *t
	}
	tcfg.HandPauseMS = 1
	npcs := room.NPCsForTable(tcfg.Name)
	if len(npcs) < 2 {
		logger.Error("need at least two automated seats to simulate", "table", tcfg.Name)
		return 1
	}

	runner := NewRunner(tcfg, Deps{
		Log:     logger,
		Advisor: llm.NewAdvisorFromEnv("", logger.WithPrefix("llm")),
		Seed:    int64(config.AtoiDef(os.Getenv("DECK_SEED"), 0)),
	})
	for _, n := range npcs {
		if err := runner.SeatNPC(n); err != nil {
			logger.Error("npc not seated", "npc", n.Name, "err", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = runner.Run(runCtx) }()

	target := cli.Play.Hands
	for ctx.Err() == nil && handsPlayed(runner) < target {
		time.Sleep(50 * time.Millisecond)
	}
	cancel()

	fmt.Printf("\n%-10s %6s %6s %6s %6s %6s %9s %9s\n",
		"seat", "hands", "vpip", "pfr", "af", "wtsd", "net", "bb/100")
	for _, l := range runner.Stats() {
		fmt.Printf("%-10s %6d %5.1f%% %5.1f%% %6.2f %5.1f%% %9d %9.1f\n",
			l.Name, l.Hands, l.VPIPPct, l.PFRPct, l.AF, l.WTSDPct, l.NetChips, l.BBPer100)
	}
	fmt.Println()
	for i, e := range runner.Leaders() {
		fmt.Printf("%d. %-10s %7.1f\n", i+1, e.Name, e.Elo)
	}
	return 0
}

func handsPlayed(r *Runner) int {
	most := 0
	for _, l := range r.Stats() {
		if l.Hands > most {
			most = l.Hands
		}
	}
	return most
}

func runMigrate(logger *log.Logger) int {
	dsn := config.Getenv("DATABASE_URL", "")
	if dsn == "" {
		logger.Error("DATABASE_URL is required for migrate")
		return 1
	}
	db, err := store.Open(dsn)
	if err != nil {
		logger.Error("database open failed", "err", err)
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer db.Close(ctx)
	if err := store.Migrate(ctx, db); err != nil {
		logger.Error("migrate failed", "err", err)
		return 1
	}
	logger.Info("schema applied")
	return 0
}

func runServe(room *config.Room, logger *log.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := openStore(ctx, logger)
	if db != nil {
		defer db.Close(context.Background())
	}
	advisor := llm.NewAdvisorFromEnv("", logger.WithPrefix("llm"))
	if advisor.Enabled() {
		logger.Info("llm advice enabled")
	}

	reg := NewRegistry()
	g, ctx := errgroup.WithContext(ctx)
	seed := int64(config.AtoiDef(os.Getenv("DECK_SEED"), 0))

	for _, tcfg := range room.Tables {
		runner := NewRunner(tcfg, Deps{
			Log:     logger,
			DB:      db,
			Advisor: advisor,
			Seed:    seed,
		})
		for _, n := range room.NPCsForTable(tcfg.Name) {
			if err := runner.SeatNPC(n); err != nil {
				logger.Warn("npc not seated", "table", tcfg.Name, "npc", n.Name, "err", err)
			}
		}
		reg.Add(runner)
		g.Go(func() error { return runner.Run(ctx) })
	}

	srv := &http.Server{
		Addr:              room.Server.Addr,
		Handler:           Router(reg, db, logger.WithPrefix("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("listening", "addr", room.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown with error", "err", err)
		return 1
	}
	logger.Info("bye")
	return 0
}

// openStore connects when DATABASE_URL is set; the room runs fine
// without it, just without history or persisted ratings.
func openStore(ctx context.Context, logger *log.Logger) *store.DB {
	dsn := config.Getenv("DATABASE_URL", "")
	if dsn == "" {
		logger.Info("DATABASE_URL not set; hand history disabled")
		return nil
	}
	db, err := store.Open(dsn)
	if err != nil {
		logger.Warn("database open failed; hand history disabled", "err", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		logger.Warn("database unreachable; hand history disabled", "err", err)
		db.Close(context.Background())
		return nil
	}
	if config.AsBool(os.Getenv("MIGRATE_ON_START")) {
		if err := store.Migrate(pingCtx, db); err != nil {
			logger.Warn("schema apply failed", "err", err)
		}
	}
	return db
}
