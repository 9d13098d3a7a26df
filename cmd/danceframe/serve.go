package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/danceframe/danceframe/internal/app"
	"github.com/danceframe/danceframe/internal/config"
	"github.com/danceframe/danceframe/internal/server"
	"github.com/danceframe/danceframe/internal/session"
	"github.com/danceframe/danceframe/internal/store"
	"github.com/danceframe/danceframe/internal/tray"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture service",
	Long: `Start the DanceFrame capture service: camera pipeline, pose engine,
HTTP API, MJPEG preview stream and WebSocket score feed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	a := app.New(app.Config{
		Store:            st,
		CameraID:         cfg.CameraID,
		DetectionRate:    cfg.DetectionRate,
		Mirror:           cfg.Mirror,
		ScoreScaleFactor: cfg.ScoreScaleFactor,
		Machine: session.Config{
			WaitSeconds:         int(cfg.WaitTimeout.Seconds()),
			CountdownSeconds:    int(cfg.Countdown.Seconds()),
			SimilarityThreshold: cfg.MatchThreshold,
			SettleDelay:         cfg.SettleDelay,
		},
	})
	if err := a.Start(); err != nil {
		return err
	}
	defer a.Stop()

	srv := server.New(server.Config{
		StaticDir: findWebDir(),
		Store:     st,
		App:       a,
	})

	log.Printf("Starting server on %s", cfg.Addr)

	if !cfg.Tray {
		return srv.ListenAndServe(cfg.Addr)
	}

	// With the tray enabled, systray owns the main goroutine.
	go func() {
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	tr := tray.New()
	tr.OnToggle(func(paused bool) {
		if paused {
			a.Pause()
		} else {
			a.Resume()
		}
	})
	tr.OnQuit(a.Stop)

	// Keep the tray's score display in sync with the feed.
	updates, cancel := a.Publisher().Subscribe()
	defer cancel()
	go func() {
		for u := range updates {
			tr.SetLastScore(u.Similarity)
		}
	}()

	tr.Run()
	return nil
}

// openStore resolves the database path under ~/.danceframe when it is not
// absolute, and opens the store.
func openStore(dbPath string) (*store.Store, error) {
	if !filepath.IsAbs(dbPath) {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			dataDir := filepath.Join(homeDir, ".danceframe")
			if err := os.MkdirAll(dataDir, 0o755); err == nil {
				dbPath = filepath.Join(dataDir, dbPath)
			}
		}
	}
	return store.New(dbPath)
}

// findWebDir searches for the web directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".danceframe", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
