package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aanand-mishra/student-roster/internal/config"
	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
)

// dumpCmd prints what the server would load at startup.
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the stored roster",
	Long: `Print the stored roster and running total without starting the server.

Unreadable entries are shown as the defaults the server would fall back
to (empty roster, zero total).

Example:
  roster dump -c config/local.yaml --format json`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringP("format", "f", "yaml", "output format: yaml or json")
}

type dumpOutput struct {
	Students []types.Student `json:"students" yaml:"students"`
	Summary  types.Summary   `json:"summary"  yaml:"summary"`
}

func runDump(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unknown format %q: use yaml or json", format)
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return err
	}

	kv, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	// Only warnings about unreadable entries are worth showing here.
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := roster.New(cmd.Context(), kv, roster.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	snap := store.Snapshot()
	return writeDump(cmd.OutOrStdout(), format, dumpOutput{
		Students: snap.Students,
		Summary:  snap.Summary,
	})
}

func writeDump(w io.Writer, format string, out dumpOutput) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(out)
}
