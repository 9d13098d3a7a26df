package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "danceframe",
	Short: "Pose-matching photo capture for dancers",
	Long: `DanceFrame turns a dance video into a sequence of target poses and
captures a photo each time the dancer matches one. It extracts distinct
poses from reference footage, scores the live camera feed against the
current target, and fires the shutter automatically on a match or after
a countdown.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
