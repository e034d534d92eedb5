package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leaselens/leaselens/internal/application/comparison"
	"github.com/leaselens/leaselens/internal/domain/valuation"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// newCompareCmd creates the compare command: rank two or more contract files.
func newCompareCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <file> <file> [file...]",
		Short: "Rank two or more competing offers",
		Long: "Analyze each contract file and rank the offers against each other on\n" +
			"monthly cost, financing rate, fees, and valuation spread.  Offers are\n" +
			"labelled by file name in the output.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := newLocalService()

			offers := make([]comparison.Offer, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read contract file: %w", err)
				}
				fields := svc.Extract(string(data))

				// A contract without enough pricing data still competes; it
				// just carries no valuation metric.
				val, err := valuation.ForContract(fields, valuation.Condition(opts.Condition), 0)
				if err != nil {
					val = nil
				}

				offers = append(offers, comparison.Offer{
					ID:        filepath.Base(path),
					Fields:    fields,
					Valuation: val,
				})
			}

			result, err := svc.CompareOffers(offers)
			if err != nil {
				return err
			}

			if strings.EqualFold(opts.OutputFormat, "json") {
				return printResult(cmd, opts, result)
			}
			return printResult(cmd, opts, renderComparison(result))
		},
	}
}

// renderComparison formats rankings as an aligned table.
func renderComparison(result *contract.ComparisonResult) string {
	rows := make([][]string, 0, len(result.Rankings))
	for i, ranked := range result.Rankings {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			ranked.OfferID,
			fmt.Sprintf("%.2f", ranked.CompositeScore),
		})
	}

	var sb strings.Builder
	sb.WriteString(formatTable([]string{"Rank", "Offer", "Score"}, rows))
	fmt.Fprintf(&sb, "\nBest offer: %s (%.2f)\n", result.BestOffer.OfferID, result.BestOffer.CompositeScore)
	return strings.TrimRight(sb.String(), "\n")
}
