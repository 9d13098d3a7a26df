// Package config reads DanceFrame settings from the environment. A .env
// file, when present, is loaded by the command layer before Load runs.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/danceframe/danceframe/internal/pose"
	"github.com/danceframe/danceframe/internal/session"
)

// Config holds the runtime settings of the capture service.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DBPath is the SQLite database file.
	DBPath string

	// CameraID selects the capture device.
	CameraID int

	// DetectionRate is the target pose detections per second.
	DetectionRate int

	// WaitTimeout is the wait window per target. If no match arrives
	// before it runs out, the forced-capture countdown starts.
	WaitTimeout time.Duration

	// Countdown is the forced-capture countdown after the wait window
	// expires.
	Countdown time.Duration

	// SettleDelay is the pause after the shutter before advancing to the
	// next target.
	SettleDelay time.Duration

	// MatchThreshold is the similarity score (0-100) at which a pose
	// counts as matched.
	MatchThreshold int

	// ScoreScaleFactor maps normalized pose distance to the 0-100 score.
	ScoreScaleFactor float64

	// HammingThreshold controls target-frame clustering during extraction.
	HammingThreshold int

	// Mirror flips the preview and captures horizontally so the dancer
	// sees themselves as in a mirror.
	Mirror bool

	// Tray enables the system tray icon.
	Tray bool
}

// Load builds a Config from the environment, falling back to defaults for
// anything unset.
func Load() *Config {
	return &Config{
		Addr:             envString("DANCEFRAME_ADDR", ":8420"),
		DBPath:           envString("DANCEFRAME_DB", "danceframe.db"),
		CameraID:         envInt("DANCEFRAME_CAMERA_ID", 0),
		DetectionRate:    envInt("DANCEFRAME_DETECTION_RATE", 30),
		WaitTimeout:      envDuration("DANCEFRAME_WAIT_TIMEOUT", 10*time.Second),
		Countdown:        envDuration("DANCEFRAME_COUNTDOWN", 5*time.Second),
		SettleDelay:      envDuration("DANCEFRAME_SETTLE_DELAY", 500*time.Millisecond),
		MatchThreshold:   envInt("DANCEFRAME_MATCH_THRESHOLD", session.DefaultSimilarityThreshold),
		ScoreScaleFactor: envFloat("DANCEFRAME_SCORE_SCALE", pose.DefaultScaleFactor),
		HammingThreshold: envInt("DANCEFRAME_HASH_THRESHOLD", 6),
		Mirror:           envBool("DANCEFRAME_MIRROR", true),
		Tray:             envBool("DANCEFRAME_TRAY", false),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
