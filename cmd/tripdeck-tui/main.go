package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tripdeck/tui-go/internal/agent"
	"github.com/tripdeck/tui-go/internal/approval"
	"github.com/tripdeck/tui-go/internal/clarify"
	"github.com/tripdeck/tui-go/internal/config"
	"github.com/tripdeck/tui-go/internal/conversation"
	"github.com/tripdeck/tui-go/internal/gaps"
	"github.com/tripdeck/tui-go/internal/logging"
	"github.com/tripdeck/tui-go/internal/model"
	"github.com/tripdeck/tui-go/internal/render"
	"github.com/tripdeck/tui-go/internal/tui"
)

var (
	flagConfig       string
	flagTrip         string
	flagAPIURL       string
	flagNoTypewriter bool
	flagDebug        bool
)

var rootCmd = &cobra.Command{
	Use:   "tripdeck-tui",
	Short: "Terminal assistant for planning trips",
	Long: `tripdeck-tui is a terminal front end for the Tripdeck planning
assistant. It holds a conversation with the routing service, surfaces
approval and clarification prompts inline, and keeps a live panel of
gaps detected in the current trip's itinerary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to a config file (default: .tripdeck/config.json, then ~/.tripdeck/config.json)")
	rootCmd.Flags().StringVar(&flagTrip, "trip", "", "trip id to scope the session to")
	rootCmd.Flags().StringVar(&flagAPIURL, "api-url", "", "base URL of the routing service")
	rootCmd.Flags().BoolVar(&flagNoTypewriter, "no-typewriter", false, "show answers immediately instead of revealing them")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "write debug-level logs")
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagTrip != "" {
		cfg.TripID = flagTrip
	}
	if flagAPIURL != "" {
		cfg.APIBaseURL = flagAPIURL
	}
	if flagNoTypewriter {
		cfg.Typewriter.Enabled = false
	}

	logger, err := logging.New(flagDebug)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Sync()

	userID := cfg.UserID
	if userID == "" {
		userID = "local"
	}

	client := agent.NewClient(cfg.APIBaseURL, userID,
		time.Duration(cfg.RequestTimeoutSeconds)*time.Second, logger)

	journal, err := agent.NewJournal(cfg.TripID)
	if err != nil {
		logger.Warn("conversation journal unavailable", zap.Error(err))
	}
	defer journal.Close()

	var tripID *string
	if cfg.TripID != "" {
		tripID = &cfg.TripID
	}

	gate := approval.NewGate(logger)
	orch := conversation.New(client, gate, journal, tripID, logger)
	renderer := render.New()

	gapStore := gaps.NewPreferenceStore(model.GapDisplayPreferences{
		Collapsed:        cfg.GapPanel.Collapsed,
		ShowOnlyCritical: cfg.GapPanel.ShowOnlyCritical,
		FilterTypes:      cfg.GapPanel.FilterTypes,
	})
	gapCoord := gaps.NewCoordinator(agent.NewGapService(client), gapStore, cfg.TripID, logger)

	clarifyCtl := clarify.NewController(agent.NewClarificationService(client), logger)

	p := tea.NewProgram(
		tui.NewRootModel(cfg, orch, renderer, gapStore, gapCoord, clarifyCtl, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		logger.Error("program exited with error", zap.Error(err))
		return err
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFrom(flagConfig)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
