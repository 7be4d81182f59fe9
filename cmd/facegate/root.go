package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/capture"
	"github.com/facegate/facegate/pkg/config"
	"github.com/facegate/facegate/pkg/dlib"
	"github.com/facegate/facegate/pkg/embedding"
	"github.com/facegate/facegate/pkg/face"
	"github.com/facegate/facegate/pkg/logging"
	"github.com/facegate/facegate/pkg/session"
	"github.com/facegate/facegate/pkg/storage"
)

const version = "0.1.0"

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "facegate",
	Short:   "On-device face enrollment and verification",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil && cfgFile != "" {
			return fmt.Errorf("could not load config: %w", err)
		}

		cfg.ExpandPaths()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logLevel := cfg.Logging.Level
		if debug {
			logLevel = "debug"
		}
		if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not initialize file logging: %v\n", err)
		}

		logging.Debugf("facegate v%s starting, storage dir: %s", version, cfg.Storage.DataDir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore builds the secure embedding store. Commands that only
// touch profiles use this and skip model loading entirely.
func openStore() (*storage.EmbeddingStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	fileStore, err := storage.NewFileStore(filepath.Join(cfg.Storage.DataDir, "secure"))
	if err != nil {
		return nil, err
	}
	return storage.NewEmbeddingStore(fileStore, cfg.Storage.Namespace), nil
}

// openSession builds the full pipeline: dlib recognizer behind the
// detector and inference capabilities, capture controller, and the
// orchestrator. maxSamples <= 0 takes the configured default.
func openSession(maxSamples int) (*session.Orchestrator, *dlib.Recognizer, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	recognizer := dlib.NewRecognizer()
	if err := recognizer.LoadModels(cfg.Models.Path); err != nil {
		return nil, nil, err
	}

	controller := capture.NewController(recognizer, capture.Options{
		Throttle:       time.Duration(cfg.Capture.ThrottleMillis) * time.Millisecond,
		BufferSize:     cfg.Capture.BufferSize,
		RequiredStreak: cfg.Capture.RequiredStreak,
	})
	extractor := embedding.NewExtractor(recognizer)

	if maxSamples <= 0 {
		maxSamples = cfg.Enrollment.MaxTrainingSamples
	}
	orch := session.New(controller, extractor, store, session.Options{
		Requirements: face.Requirements{
			MinQualityScore: cfg.Capture.MinQualityScore,
			MinConfidence:   cfg.Capture.MinConfidence,
			RequireCentered: cfg.Capture.RequireCentered,
		},
		MaxTrainingSamples:  maxSamples,
		PacingMode:          embedding.PacingMode(cfg.Enrollment.PacingMode),
		SimilarityThreshold: cfg.Enrollment.SimilarityThreshold,
		SessionTimeout:      time.Duration(cfg.Session.TimeoutSeconds) * time.Second,
		RevertDelay:         time.Duration(cfg.Session.RevertDelayMillis) * time.Millisecond,
		CancelDelay:         time.Duration(cfg.Session.CancelDelayMillis) * time.Millisecond,
	})
	if err := orch.Initialize(); err != nil {
		recognizer.Close()
		return nil, nil, err
	}

	return orch, recognizer, nil
}
