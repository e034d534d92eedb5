package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leaselens/leaselens/internal/application/analysis"
	"github.com/leaselens/leaselens/internal/domain/valuation"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// newAnalyzeCmd creates the analyze command: full pipeline on one contract.
func newAnalyzeCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze one contract: extract, value, and score",
		Long: "Run the full analysis pipeline on a single contract text file (or stdin):\n" +
			"extract the key terms, estimate a fair valuation where the inputs allow it,\n" +
			"and produce a fairness score with itemized reasons.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawText, err := readContractText(cmd, args)
			if err != nil {
				return err
			}

			offer, err := newLocalService().Analyze(cmd.Context(), analysis.AnalyzeRequest{
				RawText:   rawText,
				Condition: valuation.Condition(opts.Condition),
			})
			if err != nil {
				return err
			}

			if strings.EqualFold(opts.OutputFormat, "json") {
				return printResult(cmd, opts, offer)
			}
			return printResult(cmd, opts, renderOffer(offer))
		},
	}
}

// newExtractCmd creates the extract command: field extraction only.
func newExtractCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract contract fields without scoring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawText, err := readContractText(cmd, args)
			if err != nil {
				return err
			}

			fields := newLocalService().Extract(rawText)
			if strings.EqualFold(opts.OutputFormat, "json") {
				return printResult(cmd, opts, fields)
			}
			return printResult(cmd, opts, renderFields(fields))
		},
	}
}

// renderOffer formats a full analysis result for the terminal.
func renderOffer(offer *contract.AnalyzedOffer) string {
	var sb strings.Builder

	sb.WriteString(renderFields(offer.Fields))

	if offer.Valuation != nil {
		sb.WriteString("\nValuation\n")
		fmt.Fprintf(&sb, "  Estimated residual:  $%.2f\n", offer.Valuation.ResidualValue)
		fmt.Fprintf(&sb, "  Fair monthly lease:  $%.2f\n", offer.Valuation.FairMonthlyLease)
	}

	if offer.Assessment != nil {
		fmt.Fprintf(&sb, "\nFairness: %d/100 (%s)\n", offer.Assessment.Score, offer.Assessment.Rating)
		for _, reason := range offer.Assessment.Reasons {
			fmt.Fprintf(&sb, "  - %s\n", reason.String())
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// renderFields formats extracted fields for the terminal, skipping everything
// that was not found.
func renderFields(fields *contract.ContractFields) string {
	var sb strings.Builder
	sb.WriteString("Extracted fields\n")

	line := func(label, value string) {
		fmt.Fprintf(&sb, "  %-22s %s\n", label+":", value)
	}

	if fields.VIN != "" {
		line("VIN", fields.VIN)
	}
	if fields.Year != nil {
		line("Year", fmt.Sprintf("%d", *fields.Year))
	}
	if fields.Make != "" {
		line("Make", fields.Make)
	}
	if fields.Model != "" {
		line("Model", fields.Model)
	}
	if fields.VehiclePrice != nil {
		line("Vehicle price", fmt.Sprintf("$%.2f", *fields.VehiclePrice))
	}
	if fields.MonthlyPayment != nil {
		line("Monthly payment", fmt.Sprintf("$%.2f", *fields.MonthlyPayment))
	}
	if fields.DownPayment != nil {
		line("Down payment", fmt.Sprintf("$%.2f", *fields.DownPayment))
	}
	if fields.ResidualValue != nil {
		line("Residual value", fmt.Sprintf("$%.2f", *fields.ResidualValue))
	}
	if fields.BuyoutPrice != nil {
		line("Buyout price", fmt.Sprintf("$%.2f", *fields.BuyoutPrice))
	}
	if fields.APR != nil {
		line("APR", fmt.Sprintf("%.2f%%", *fields.APR))
	}
	if fields.TermMonths != nil {
		line("Term", fmt.Sprintf("%d months", *fields.TermMonths))
	}
	if fields.MileageAllowancePerYear != nil {
		line("Mileage allowance", fmt.Sprintf("%d mi/year", *fields.MileageAllowancePerYear))
	}
	if fields.ExcessMileageFeePerMile != nil {
		line("Excess mileage fee", fmt.Sprintf("$%.2f/mi", *fields.ExcessMileageFeePerMile))
	}
	if fields.DocumentationFee != nil {
		line("Documentation fee", fmt.Sprintf("$%.2f", *fields.DocumentationFee))
	}
	if fields.AcquisitionFee != nil {
		line("Acquisition fee", fmt.Sprintf("$%.2f", *fields.AcquisitionFee))
	}
	for _, fee := range fields.OtherFees {
		line("Fee ("+fee.Label+")", fmt.Sprintf("$%.2f", fee.Amount))
	}
	if fields.HasEarlyTerminationClause {
		line("Early termination", "clause present")
	}
	if fields.HasPenaltyClause {
		line("Penalty clause", "present")
	}
	if len(fields.Confidence) == 0 {
		sb.WriteString("  (none found)\n")
	}

	return sb.String()
}
