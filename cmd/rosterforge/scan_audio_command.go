package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"rosterforge/internal/mapping"
)

func newScanAudioCommand(ctx *commandContext) *cobra.Command {
	var libraryFlag string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "scan-audio",
		Short: "Rebuild the audio asset map from the donor library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			library := strings.TrimSpace(libraryFlag)
			if library == "" {
				library = cfg.Paths.DonorAudioDir
			}
			if library == "" {
				return fmt.Errorf("no donor audio library configured; pass --library or set donor_audio_dir")
			}
			target := strings.TrimSpace(outFlag)
			if target == "" {
				target = cfg.Mappings.AudioAssetMapPath
			}
			if target == "" {
				return fmt.Errorf("no output path; pass --out or set audio_asset_map")
			}

			// Prefixes from an earlier scan are kept.
			prior, err := mapping.LoadAudioAssetMap(target)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			result, err := mapping.ScanAudioLibrary(library, prior)
			if err != nil {
				return err
			}
			if err := result.Map.Save(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d container(s) into %s\n", result.Scanned, target)
			for _, skipped := range result.Skipped {
				fmt.Fprintf(out, "skipped: %s\n", skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&libraryFlag, "library", "", "Donor audio library to scan (defaults to donor_audio_dir)")
	cmd.Flags().StringVar(&outFlag, "out", "", "Destination for the asset map (defaults to audio_asset_map)")
	return cmd
}
