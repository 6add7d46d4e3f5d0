package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"evalgo.org/gridmapper/internal/storage"
	"evalgo.org/gridmapper/models"
)

var (
	genCallsign   string
	genContinents []string
	genOut        string
	genGrid       string
	genJSON       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [log-file]",
	Short: "Generate maps from a local contest log",
	Long: `Generate grid square maps from a Cabrillo or CSV contest log and write
them below the output directory.

Examples:
  gridmapper generate contest.cbr --callsign W1ABC
  gridmapper generate export.csv --callsign W1ABC --continents EU,north_america
  gridmapper generate contest.log --callsign W1ABC/P --grid FN42 --out ./maps --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genCallsign, "callsign", "", "operator callsign (required)")
	generateCmd.Flags().StringSliceVar(&genContinents, "continents", nil, "continents to map, codes or names (default: all)")
	generateCmd.Flags().StringVar(&genOut, "out", "", "output directory (default: storage.path)")
	generateCmd.Flags().StringVar(&genGrid, "grid", "", "operator grid locator, overrides the log")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "print the generation result as JSON")
	_ = generateCmd.MarkFlagRequired("callsign")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	out := genOut
	if out == "" {
		out = cfg.Storage.Path
	}
	// No base URL: the store reports file paths
	store, err := storage.NewFileStore(out, "", "", cfg.Storage.URLTTL)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), store)
	if err != nil {
		return err
	}
	defer a.Close()

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}

	req := &models.GenerationRequest{
		Callsign:    genCallsign,
		Continents:  genContinents,
		FileContent: base64.StdEncoding.EncodeToString(content),
		FileName:    filepath.Base(args[0]),
		GridLocator: genGrid,
	}
	res := a.generator.Generate(cmd.Context(), req)

	if genJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), res)
	}

	if !res.Success {
		return fmt.Errorf("generation failed: %s", res.Error)
	}
	return nil
}

func printResult(w io.Writer, res *models.GenerationResult) {
	if res.LogOutput != "" {
		fmt.Fprintln(w, res.LogOutput)
		fmt.Fprintln(w)
	}

	if !res.Success {
		fmt.Fprintf(w, "✗ %s\n", res.Error)
		return
	}

	fmt.Fprintf(w, "✓ %d map(s) for %s\n", res.MapsGenerated, res.Callsign)
	for _, m := range res.Maps {
		size := ""
		if fi, err := os.Stat(m.DownloadURL); err == nil {
			size = " (" + humanize.Bytes(uint64(fi.Size())) + ")"
		}
		fmt.Fprintf(w, "  %s%s\n", m.DownloadURL, size)
	}
}
