package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/session"
)

var verifyFramesDir string

var verifyCmd = &cobra.Command{
	Use:   "verify <user>",
	Short: "Verify a user against their enrolled profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(args[0])
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFramesDir, "frames", "", "directory of frame images to verify from")
	_ = verifyCmd.MarkFlagRequired("frames")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(userID string) error {
	frames, err := loadFrames(verifyFramesDir)
	if err != nil {
		return err
	}

	orch, recognizer, err := openSession(0)
	if err != nil {
		return err
	}
	defer recognizer.Close()

	if err := orch.AuthenticateUser(userID); err != nil {
		return err
	}

	fmt.Printf("Verifying '%s'...\n", userID)

	stop := make(chan struct{})
	defer close(stop)
	interval := time.Duration(cfg.Capture.ThrottleMillis) * time.Millisecond
	go pumpFrames(orch, frames, interval, stop)

	for ev := range orch.Events() {
		switch ev.Kind {
		case session.EventCaptureStatus:
			fmt.Printf("  %s\n", ev.CaptureStatus)
		case session.EventCompleted:
			if ev.Success {
				fmt.Printf("Match: '%s' verified (similarity %.4f)\n", userID, ev.Similarity)
				return nil
			}
			if ev.Err != nil && ev.Err.Code == session.ErrCodeNotMatched {
				return fmt.Errorf("no match for '%s' (similarity %.4f)", userID, ev.Similarity)
			}
			return fmt.Errorf("verification failed: %s", ev.Err.Message)
		}
	}
	return nil
}
