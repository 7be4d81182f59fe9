package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/pkg/session"
)

var (
	enrollName      string
	enrollFramesDir string
	enrollSamples   int
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user>",
	Short: "Enroll a user from a stream of camera frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll(args[0])
	},
}

func init() {
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "display name for the profile")
	enrollCmd.Flags().StringVar(&enrollFramesDir, "frames", "", "directory of frame images to enroll from")
	enrollCmd.Flags().IntVar(&enrollSamples, "samples", 0, "training samples to capture (default from config)")
	_ = enrollCmd.MarkFlagRequired("frames")
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(userID string) error {
	displayName := enrollName
	if displayName == "" {
		displayName = userID
	}

	frames, err := loadFrames(enrollFramesDir)
	if err != nil {
		return err
	}

	orch, recognizer, err := openSession(enrollSamples)
	if err != nil {
		return err
	}
	defer recognizer.Close()

	if err := orch.RegisterUser(userID, displayName); err != nil {
		return err
	}

	fmt.Printf("Enrolling '%s'...\n", userID)
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionClearOnFinish(),
	)

	stop := make(chan struct{})
	defer close(stop)
	interval := time.Duration(cfg.Capture.ThrottleMillis) * time.Millisecond
	go pumpFrames(orch, frames, interval, stop)

	for ev := range orch.Events() {
		switch ev.Kind {
		case session.EventProgress:
			_ = bar.Set(int(ev.Progress * 100))
		case session.EventEpoch:
			bar.Describe(fmt.Sprintf("epoch %d/%d loss=%.3f acc=%.3f", ev.Epoch, ev.Epochs, ev.Loss, ev.Accuracy))
		case session.EventCompleted:
			_ = bar.Finish()
			if !ev.Success {
				return fmt.Errorf("enrollment failed: %s", ev.Err.Message)
			}
			fmt.Printf("Enrolled '%s' (%s), %d sample(s) on record.\n",
				ev.Profile.UserID, ev.Profile.DisplayName, ev.Profile.SamplesCount)
			return nil
		}
	}
	return nil
}
