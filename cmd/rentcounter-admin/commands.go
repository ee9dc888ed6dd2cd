package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/admin"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/queries/reportqueries"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	seedFile string
	orgHex   string
	fromDate string
	toDate   string
)

// seedCmd loads fixtures from a YAML file
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load organizations, properties and readings from a fixtures file",
	Long: `Insert the organizations described in a fixtures file together with
their users, providers, tariffs, buildings, properties, tenants, meters and
readings. Organizations that already exist are skipped.`,
	RunE: runSeed,
}

// invoicesCmd groups invoice commands
var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Invoice maintenance",
}

// invoicesGenerateCmd bills every active tenant of an organization
var invoicesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate draft invoices for every active tenant of an organization",
	Long: `Generate a draft invoice for each active tenant of --org over the
period --from..--to. Tenants already invoiced for that exact period are
skipped; tenants with missing readings are reported and left unbilled.`,
	RunE: runInvoicesGenerate,
}

// circulationCmd groups hot-water circulation commands
var circulationCmd = &cobra.Command{
	Use:   "circulation",
	Short: "Hot-water circulation maintenance",
}

// circulationRecalcCmd refreshes stored summer averages
var circulationRecalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate summer circulation averages",
	Long:  `Recalculate the stored summer average of every building of --org, or of every building when --org is omitted.`,
	RunE:  runCirculationRecalc,
}

// reportsCmd groups reporting commands
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Reporting",
}

// reportsExportCmd writes every report as CSV to the configured storage
var reportsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export consumption, revenue and compliance reports as CSV",
	Long: `Render every report for --org (all organizations when omitted) over
--from..--to and store the CSV files in the configured export storage
(local directory or S3).`,
	RunE: runReportsExport,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "fixtures.yaml", "Fixtures file")

	invoicesGenerateCmd.Flags().StringVar(&orgHex, "org", "", "Organization ID (required)")
	invoicesGenerateCmd.Flags().StringVar(&fromDate, "from", "", "Period start, YYYY-MM-DD (required)")
	invoicesGenerateCmd.Flags().StringVar(&toDate, "to", "", "Period end, YYYY-MM-DD (required)")
	_ = invoicesGenerateCmd.MarkFlagRequired("org")
	_ = invoicesGenerateCmd.MarkFlagRequired("from")
	_ = invoicesGenerateCmd.MarkFlagRequired("to")
	invoicesCmd.AddCommand(invoicesGenerateCmd)

	circulationRecalcCmd.Flags().StringVar(&orgHex, "org", "", "Organization ID (default: all)")
	circulationCmd.AddCommand(circulationRecalcCmd)

	reportsExportCmd.Flags().StringVar(&orgHex, "org", "", "Organization ID (default: all)")
	reportsExportCmd.Flags().StringVar(&fromDate, "from", "", "Period start, YYYY-MM-DD (required)")
	reportsExportCmd.Flags().StringVar(&toDate, "to", "", "Period end, YYYY-MM-DD (required)")
	_ = reportsExportCmd.MarkFlagRequired("from")
	_ = reportsExportCmd.MarkFlagRequired("to")
	reportsCmd.AddCommand(reportsExportCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(seedFile)
	if err != nil {
		return fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	fx, err := admin.LoadFixtures(f)
	if err != nil {
		return err
	}

	return withRunner(true, func(ctx context.Context, r *admin.Runner) error {
		res, err := r.Seed(ctx, fx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"organizations: %d (skipped %d)\nusers: %d\nbuildings: %d\nproperties: %d\ntenants: %d\nproviders: %d\ntariffs: %d\nmeters: %d\nreadings: %d\n",
			res.Organizations, res.Skipped, res.Users, res.Buildings, res.Properties,
			res.Tenants, res.Providers, res.Tariffs, res.Meters, res.Readings)
		return nil
	})
}

func runInvoicesGenerate(cmd *cobra.Command, args []string) error {
	orgID, err := parseOrg(orgHex, true)
	if err != nil {
		return err
	}
	from, to, err := parsePeriod(fromDate, toDate)
	if err != nil {
		return err
	}

	return withRunner(false, func(ctx context.Context, r *admin.Runner) error {
		res, err := r.GenerateInvoices(ctx, orgID, from, to)
		printGenerate(cmd, res)
		if err != nil {
			return err
		}
		if _, _, failed := res.Counts(); failed > 0 {
			return fmt.Errorf("%d tenant(s) could not be invoiced", failed)
		}
		return nil
	})
}

func printGenerate(cmd *cobra.Command, res admin.GenerateResult) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TENANT\tRESULT\tINVOICE\tTOTAL")
	for _, o := range res.Outcomes {
		switch {
		case o.Err != nil:
			fmt.Fprintf(tw, "%s\tfailed: %v\t\t\n", o.TenantName, o.Err)
		case o.Skipped:
			fmt.Fprintf(tw, "%s\tskipped\t\t\n", o.TenantName)
		case o.Invoice != nil:
			fmt.Fprintf(tw, "%s\tgenerated\t%s\t%s\n", o.TenantName, o.Invoice.Number, o.Invoice.TotalAmount.StringFixed(2))
		}
	}
	_ = tw.Flush()
	generated, skipped, failed := res.Counts()
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d, skipped %d, failed %d\n", generated, skipped, failed)
}

func runCirculationRecalc(cmd *cobra.Command, args []string) error {
	orgID, err := parseOrg(orgHex, false)
	if err != nil {
		return err
	}

	return withRunner(false, func(ctx context.Context, r *admin.Runner) error {
		out, err := r.RecalcCirculation(ctx, orgID)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BUILDING\tAVERAGE")
		for _, o := range out {
			if o.Err != nil {
				fmt.Fprintf(tw, "%s\tskipped: %v\n", o.Name, o.Err)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\n", o.Name, o.Average.StringFixed(2))
		}
		_ = tw.Flush()
		return err
	})
}

func runReportsExport(cmd *cobra.Command, args []string) error {
	orgID, err := parseOrg(orgHex, false)
	if err != nil {
		return err
	}
	from, to, err := parsePeriod(fromDate, toDate)
	if err != nil {
		return err
	}

	return withRunner(false, func(ctx context.Context, r *admin.Runner) error {
		out, err := r.ExportReports(ctx, orgID, reportqueries.Period{From: from, To: to})
		for _, o := range out {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\t%s\n", o.Report, o.Rows, o.Object.Location)
		}
		return err
	})
}

// parseOrg decodes an organization ID. Empty means all organizations
// unless required.
func parseOrg(s string, required bool) (primitive.ObjectID, error) {
	if s == "" {
		if required {
			return primitive.NilObjectID, fmt.Errorf("--org is required")
		}
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid --org %q: %w", s, err)
	}
	return id, nil
}

// parsePeriod parses --from and --to as UTC dates.
func parsePeriod(from, to string) (time.Time, time.Time, error) {
	f, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: want YYYY-MM-DD", from)
	}
	t, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: want YYYY-MM-DD", to)
	}
	if t.Before(f) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s precedes --from %s", to, from)
	}
	return f, t, nil
}
