package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Current Configuration:")
		fmt.Println("======================")
		fmt.Println()
		fmt.Println("[Capture]")
		fmt.Printf("  Throttle:         %dms\n", cfg.Capture.ThrottleMillis)
		fmt.Printf("  Buffer size:      %d\n", cfg.Capture.BufferSize)
		fmt.Printf("  Required streak:  %d\n", cfg.Capture.RequiredStreak)
		fmt.Printf("  Min quality:      %.2f\n", cfg.Capture.MinQualityScore)
		fmt.Printf("  Min confidence:   %.2f\n", cfg.Capture.MinConfidence)
		fmt.Printf("  Require centered: %t\n", cfg.Capture.RequireCentered)
		fmt.Println()
		fmt.Println("[Enrollment]")
		fmt.Printf("  Min samples:      %d\n", cfg.Enrollment.MinSamples)
		fmt.Printf("  Max samples:      %d\n", cfg.Enrollment.MaxTrainingSamples)
		fmt.Printf("  Pacing mode:      %s\n", cfg.Enrollment.PacingMode)
		fmt.Printf("  Threshold:        %.2f\n", cfg.Enrollment.SimilarityThreshold)
		fmt.Println()
		fmt.Println("[Session]")
		fmt.Printf("  Timeout:          %ds\n", cfg.Session.TimeoutSeconds)
		fmt.Printf("  Revert delay:     %dms\n", cfg.Session.RevertDelayMillis)
		fmt.Printf("  Cancel delay:     %dms\n", cfg.Session.CancelDelayMillis)
		fmt.Println()
		fmt.Println("[Models]")
		fmt.Printf("  Path:             %s\n", cfg.Models.Path)
		fmt.Println()
		fmt.Println("[Storage]")
		fmt.Printf("  Data dir:         %s\n", cfg.Storage.DataDir)
		fmt.Printf("  Namespace:        %s\n", cfg.Storage.Namespace)
		fmt.Println()
		fmt.Println("[Logging]")
		fmt.Printf("  Level:            %s\n", cfg.Logging.Level)
		fmt.Printf("  File:             %s\n", cfg.Logging.File)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
