package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/addressing"
	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/channels"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/handlers"
	"github.com/Austin-J-B/tomcat/pkg/intent"
	"github.com/Austin-J-B/tomcat/pkg/logger"
	"github.com/Austin-J-B/tomcat/pkg/nlp"
	"github.com/Austin-J-B/tomcat/pkg/pending"
	"github.com/Austin-J-B/tomcat/pkg/registry"
	"github.com/Austin-J-B/tomcat/pkg/router"
	"github.com/Austin-J-B/tomcat/pkg/schedule"
	"github.com/Austin-J-B/tomcat/pkg/spam"
	"github.com/Austin-J-B/tomcat/pkg/store"
	"github.com/Austin-J-B/tomcat/pkg/utils"
	"github.com/Austin-J-B/tomcat/pkg/vision"
	"github.com/Austin-J-B/tomcat/pkg/when"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	console := flag.Bool("console", false, "run the console channel regardless of config")
	flag.Parse()

	if err := run(*configPath, *console); err != nil {
		fmt.Fprintf(os.Stderr, "tomcat: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tomcat.json"
	}
	return filepath.Join(home, ".tomcat", "config.json")
}

func run(configPath string, forceConsole bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if forceConsole {
		cfg.Channels.Console.Enabled = true
	}

	if cfg.Logging.FileEnabled {
		path := config.ExpandHome(cfg.Logging.FilePath)
		if err := logger.EnableFileLogging(path, cfg.Logging.RotationEnabled,
			cfg.Logging.MaxSizeMB, cfg.Logging.MaxAgeDays); err != nil {
			logger.WarnCF("main", "file logging unavailable", map[string]any{"error": err.Error()})
		}
	}

	reg := registry.New(cfg.Registry)
	dates := when.NewExtractor(cfg.Bot.Timezone)
	detector := addressing.NewDetector(cfg.Bot.WakeWords)
	silent := utils.NewSwitch(cfg.Bot.SilentMode)

	storePath := cfg.StorePath()
	if dir := filepath.Dir(storePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	scorer, err := nlp.FromConfig(cfg.NLP)
	if err != nil {
		return fmt.Errorf("nlp: %w", err)
	}
	cv := vision.FromConfig(cfg.Vision)

	mbus := bus.NewMessageBus()
	sender := router.NewMutedSender(mbus, silent)

	manager, err := channels.NewManager(cfg, mbus)
	if err != nil {
		return fmt.Errorf("channels: %w", err)
	}

	hs := handlers.New(cfg, reg, db, cv, dates, sender, silent, manager)
	resolver := intent.NewResolver(cfg.Intents, reg, scorer, dates)
	spamEngine := spam.NewEngine(cfg.Spam, scorer)
	slots := pending.NewStore(time.Duration(cfg.Intents.PairWindowMinutes) * time.Minute)
	rt := router.New(cfg, detector, resolver, spamEngine, slots, hs, mbus, db, sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx, rt.Handler()); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	var sched *schedule.Scheduler
	if cfg.Schedule.Enabled {
		sched, err = schedule.New(cfg, reg, db, dates, sender, rt)
		if err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		sched.Start()
	}

	logger.InfoCF("main", "tomcat running", map[string]any{
		"bot": cfg.Bot.Name, "store": storePath,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.InfoC("main", "shutting down")
	cancel()
	if sched != nil {
		sched.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	manager.Stop(shutdownCtx)
	mbus.Close()
	return nil
}
