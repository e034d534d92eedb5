// Package cli implements the leaselens command-line interface.  Commands run
// the extraction, scoring, and comparison pipeline locally on contract text
// files; no server is required.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leaselens/leaselens/internal/application/analysis"
	"github.com/leaselens/leaselens/internal/application/comparison"
	"github.com/leaselens/leaselens/internal/application/fairness"
	"github.com/leaselens/leaselens/internal/intelligence/fieldex"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	OutputFormat string
	Condition    string
}

// NewRootCommand creates the root cobra command with all global flags and
// subcommands mounted.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "leaselens",
		Short: "LeaseLens - vehicle lease and loan contract analysis",
		Long: "LeaseLens extracts the key terms from vehicle lease and loan contract text,\n" +
			"scores each offer for consumer fairness, estimates fair valuations, and ranks\n" +
			"competing offers side by side.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.StringVar(&opts.Condition, "condition", "good", "assumed vehicle condition (excellent, good, fair, poor)")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newExtractCmd(opts),
		newCompareCmd(opts),
	)

	return cmd
}

// Execute is the CLI entry point.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", err.Error())
		return err
	}
	return nil
}

// newLocalService builds a pipeline service with no external collaborators.
func newLocalService() *analysis.Service {
	return analysis.NewService(
		fieldex.NewExtractor(fieldex.DefaultConfig(), nil),
		fairness.NewEngine(fairness.DefaultThresholds(), nil),
		comparison.NewComparator(comparison.DefaultWeights(), nil),
		analysis.Options{}, nil)
}

// readContractText reads one contract: from the named file, or stdin when the
// argument is "-" or absent.
func readContractText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read contract file: %w", err)
	}
	return string(data), nil
}

// printResult writes data in the selected output format.
func printResult(cmd *cobra.Command, opts *RootOptions, data interface{}) error {
	if strings.EqualFold(opts.OutputFormat, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// formatTable renders headers and rows as an aligned ASCII table.
func formatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	for i, h := range headers {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(padRight(h, widths[i]))
	}
	sb.WriteString("\n")
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteString("\n")
	for _, row := range rows {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			sb.WriteString(padRight(val, widths[i]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
