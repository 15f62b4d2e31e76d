package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/servicesearch/internal/app"
	"github.com/kailas-cloud/servicesearch/internal/db/postgres"
)

var errProbeFailed = errors.New("probe failed")

type probeReport struct {
	Addr           string `json:"addr"`
	Status         string `json:"status"`
	Kind           string `json:"kind,omitempty"`
	Error          string `json:"error,omitempty"`
	RequirePostGIS bool   `json:"require_postgis"`
	MaxConns       int32  `json:"max_conns,omitempty"`
	TotalConns     int32  `json:"total_conns,omitempty"`
}

// NewProbeCmd creates the probe command.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check database connectivity and extensions",
		Long: `Build the connection pool and run the startup probes the API server runs:
a liveness query, the pgvector type check and, unless disabled, the PostGIS
geography type check. Exits non-zero when any probe fails.

Examples:
  searchctl probe
  searchctl probe --format json`,
		Args: cobra.NoArgs,
		RunE: runProbe,
	}
	return cmd
}

func runProbe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pgCfg := app.PostgresConfig(cfg.Database)
	report := probeReport{Addr: pgCfg.Addr(), Status: "ok", RequirePostGIS: pgCfg.RequirePostGIS}

	pool, err := postgres.Connect(cmd.Context(), pgCfg, log)
	if err != nil {
		report.Status = "failed"
		report.Error = err.Error()
		var se *postgres.StartupError
		if errors.As(err, &se) {
			report.Kind = se.Kind.String()
		}
	} else {
		stat := pool.Stat()
		report.MaxConns = stat.MaxConns()
		report.TotalConns = stat.TotalConns()
		pool.Close()
	}

	if err := printProbe(cmd, report); err != nil {
		return err
	}
	if report.Status != "ok" {
		return errProbeFailed
	}
	return nil
}

func printProbe(cmd *cobra.Command, r probeReport) error {
	out := cmd.OutOrStdout()
	if outputFormat == FormatJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}

	if r.Status == "ok" {
		fmt.Fprintf(out, "%s: ok (pool %d/%d connections, postgis required: %t)\n",
			r.Addr, r.TotalConns, r.MaxConns, r.RequirePostGIS)
		return nil
	}
	fmt.Fprintf(out, "%s: %s\n  %s\n", r.Addr, r.Kind, r.Error)
	return nil
}
