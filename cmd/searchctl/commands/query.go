package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/servicesearch/internal/app"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/request"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
)

var (
	queryLimit int
	queryLat   float64
	queryLng   float64
)

type queryRow struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      *string  `json:"description,omitempty"`
	ShortDescription *string  `json:"short_description,omitempty"`
	Status           string   `json:"status"`
	OrganizationName *string  `json:"organization_name,omitempty"`
	Similarity       float64  `json:"similarity"`
	Distance         *float64 `json:"distance,omitempty"`
}

// NewQueryCmd creates the query command.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run one catalog search",
		Long: `Run one catalog search through the full pipeline: embed the text,
then rank the catalog. Pass --lat and --lng together to keep only services
with a location inside the configured radius.

Examples:
  searchctl query "food pantry"
  searchctl query --limit 5 "mental health counseling"
  searchctl query --lat 44.97 --lng -93.26 --format json "legal aid"`,
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().IntVar(&queryLimit, "limit", request.DefaultLimit, "Maximum results to return")
	cmd.Flags().Float64Var(&queryLat, "lat", 0, "Latitude of the search origin")
	cmd.Flags().Float64Var(&queryLng, "lng", 0, "Longitude of the search origin")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	var lat, lng *float64
	if cmd.Flags().Changed("lat") {
		lat = &queryLat
	}
	if cmd.Flags().Changed("lng") {
		lng = &queryLng
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	policy := request.Policy{DefaultLimit: cfg.Search.DefaultLimit, MaxLimit: cfg.Search.MaxLimit}
	req, err := request.New(args[0], &queryLimit, lat, lng, policy)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(cmd.Context(), &cfg, log)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer a.Close()

	results, err := a.Search.Search(cmd.Context(), &req)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	return printResults(cmd, results)
}

func printResults(cmd *cobra.Command, results []result.Result) error {
	out := cmd.OutOrStdout()

	if outputFormat == FormatJSON {
		rows := make([]queryRow, len(results))
		for i := range results {
			r := &results[i]
			rows[i] = queryRow{
				ID:               r.ID(),
				Name:             r.Name(),
				Description:      r.Description(),
				ShortDescription: r.ShortDescription(),
				Status:           r.Status(),
				OrganizationName: r.OrganizationName(),
				Similarity:       r.Similarity(),
				Distance:         r.Distance(),
			}
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintln(out, "No services found")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SIMILARITY\tDISTANCE\tNAME\tORGANIZATION\tID\n")
	fmt.Fprintf(w, "----------\t--------\t----\t------------\t--\n")
	for i := range results {
		r := &results[i]
		dist := "-"
		if d := r.Distance(); d != nil {
			dist = fmt.Sprintf("%.0fm", *d)
		}
		org := "-"
		if o := r.OrganizationName(); o != nil {
			org = *o
		}
		fmt.Fprintf(w, "%.4f\t%s\t%s\t%s\t%s\n",
			r.Similarity(), dist, truncate(r.Name(), 40), truncate(org, 30), r.ID())
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	if !quiet {
		fmt.Fprintf(out, "\nFound %d service(s)\n", len(results))
	}
	return nil
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
