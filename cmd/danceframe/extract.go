package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danceframe/danceframe/internal/config"
	"github.com/danceframe/danceframe/internal/extract"
	"github.com/danceframe/danceframe/internal/store"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video-file]",
	Short: "Extract target poses from a dance video",
	Long: `Extract distinct poses from reference footage. Frames are sampled,
fingerprinted with a perceptual hash and clustered; one representative
frame per cluster is written out as a capture target.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("out", "frames", "Directory for extracted target frames")
	extractCmd.Flags().String("session", "", "Create a session with this name over the extracted targets")
	extractCmd.Flags().Int("fps", extract.DefaultSampleFPS, "Frames sampled per second of video")
	extractCmd.Flags().Int("threshold", 0, "Hamming distance threshold for clustering (0 = configured default)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	cfg := config.Load()

	outDir := mustGetString(cmd, "out")
	sessionName := mustGetString(cmd, "session")
	fps := mustGetInt(cmd, "fps")
	threshold := mustGetInt(cmd, "threshold")
	if threshold <= 0 {
		threshold = cfg.HammingThreshold
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	e := extract.NewExtractor()
	e.SampleFPS = fps
	e.HammingThreshold = threshold

	var bar *progressbar.ProgressBar
	e.OnProgress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Sampling frames"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("frames"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		bar.Set(done)
	}

	reps, err := e.Run(videoPath)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	refs := make([]string, 0, len(reps))
	for i, rep := range reps {
		name := fmt.Sprintf("%03d.jpg", i)
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, rep.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		refs = append(refs, path)
		fmt.Printf("target %3d: %s (cluster of %d, t=%dms)\n", i, path, rep.ClusterSize, rep.TimestampMs)
	}
	fmt.Printf("Extracted %d targets from %s\n", len(reps), videoPath)

	if sessionName == "" {
		return nil
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	sess := &store.Session{ID: uuid.NewString(), Name: sessionName}
	if err := st.Sessions().Create(sess); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	for i, ref := range refs {
		target := &store.Target{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			Idx:       i,
			ImageRef:  ref,
		}
		if err := st.Targets().Create(target, nil); err != nil {
			return fmt.Errorf("failed to create target %d: %w", i, err)
		}
	}
	fmt.Printf("Created session %q (%s) with %d targets\n", sessionName, sess.ID, len(refs))

	return nil
}
