package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/web3guy0/fundingbot/core"
	"github.com/web3guy0/fundingbot/internal/arbitrage"
	"github.com/web3guy0/fundingbot/internal/capture"
	"github.com/web3guy0/fundingbot/internal/config"
	"github.com/web3guy0/fundingbot/internal/extract"
	"github.com/web3guy0/fundingbot/internal/notify"
	"github.com/web3guy0/fundingbot/internal/ocr"
	"github.com/web3guy0/fundingbot/internal/report"
	"github.com/web3guy0/fundingbot/internal/venue"
	"github.com/web3guy0/fundingbot/types"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	layoutFile := flag.String("layout", "", "capture layout TOML (overrides CAPTURE_LAYOUT_FILE)")
	flag.Parse()

	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *layoutFile != "" {
		layout, err := config.LoadLayout(*layoutFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid capture layout")
		}
		cfg.Layout = layout
	}

	setupLogging(cfg)

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msg("              FUNDINGBOT - SPREAD & FUNDING MONITOR")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	// 1. Venue sources
	parser := extract.NewParser(extract.Policy{MaxBidAskGap: cfg.MaxBidAskGap})
	lighter := venue.NewLighter(venue.LighterOptions{
		URL:         cfg.LighterURL,
		Viewport:    cfg.Layout.Viewport,
		FundingClip: cfg.Layout.FundingClip,
		SpreadClip:  cfg.Layout.SpreadClip,
		Settle:      cfg.CaptureSettle,
		DumpDir:     cfg.OCRDumpDir,
	}, capture.NewChrome(cfg.ChromePath, cfg.CaptureTimeout), ocr.NewTesseract(cfg.OCRLanguage), parser)

	sources := []venue.Source{
		lighter,
		venue.NewExtended(cfg.ExtendedAPIURL, cfg.ExtendedSymbol, cfg.HTTPTimeout),
		venue.NewHyperliquid(cfg.HyperliquidAPIURL, cfg.HyperliquidSymbol, cfg.HyperliquidMidOffset, cfg.HTTPTimeout),
	}
	log.Info().Int("count", len(sources)).Msg("✅ Venue sources initialized")

	// 2. Comparator + report
	comparator := arbitrage.NewComparator(cfg.FundingPeriodsPerYear, cfg.PeriodsPerYear)
	formatter := report.NewFormatter(map[types.Venue]string{
		types.VenueLighter:     cfg.LighterSymbol,
		types.VenueExtended:    cfg.ExtendedSymbol,
		types.VenueHyperliquid: cfg.HyperliquidSymbol,
	}, comparator)

	// 3. Notifier
	var sender notify.Sender = notify.LogSender{}
	if !cfg.DryRun {
		tg, err := notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramMinInterval)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram")
		}
		sender = tg
	}
	notifier := notify.NewNotifier(sender)
	log.Info().Str("sender", sender.Name()).Msg("✅ Notifier initialized")

	// 4. Scheduler
	scheduler := core.NewScheduler(core.Config{
		Interval:     cfg.PollInterval,
		CycleTimeout: cfg.CycleTimeout,
		Pairs:        cfg.Pairs,
	}, sources, comparator, formatter, notifier)

	// ═══════════════════════════════════════════════════════════════════════════════
	// PRINT CONFIG
	// ═══════════════════════════════════════════════════════════════════════════════

	mode := "LIVE (Telegram)"
	if cfg.DryRun {
		mode = "DRY RUN (log only)"
	}
	log.Info().Msg("")
	log.Info().Msgf("  Mode:      %s", mode)
	log.Info().Msgf("  Symbols:   lighter=%s extended=%s hyperliquid=%s",
		cfg.LighterSymbol, cfg.ExtendedSymbol, cfg.HyperliquidSymbol)
	log.Info().Msgf("  Interval:  %s (cycle timeout %s)", cfg.PollInterval, cfg.CycleTimeout)
	log.Info().Msgf("  Layout:    v%d %dx%d@%.1f", cfg.Layout.Version,
		cfg.Layout.Viewport.Width, cfg.Layout.Viewport.Height, cfg.Layout.Viewport.ScaleFactor)
	for _, p := range cfg.Pairs {
		log.Info().Msgf("  Pair:      %s vs %s", p.A.Title(), p.B.Title())
	}
	log.Info().Msg("")

	// ═══════════════════════════════════════════════════════════════════════════════
	// START
	// ═══════════════════════════════════════════════════════════════════════════════

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		scheduler.RunOnce(ctx)
		return
	}

	scheduler.Start(ctx)
	log.Info().Msg("🚀 All systems running...")

	// ═══════════════════════════════════════════════════════════════════════════════
	// GRACEFUL SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════════

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("🛑 Shutting down...")
	scheduler.Stop()

	log.Info().Msg("👋 Goodbye!")
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		})
	}
	log.Logger = log.Output(out)

	// log.Ctx falls back to the global logger when a context carries none
	zerolog.DefaultContextLogger = &log.Logger

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
