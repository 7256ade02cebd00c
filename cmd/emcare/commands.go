package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/emcare/emcare/internal/config"
	"github.com/emcare/emcare/internal/domain/policy"
	"github.com/emcare/emcare/internal/domain/predictor"
	"github.com/emcare/emcare/internal/domain/simulation"
	"github.com/emcare/emcare/internal/platform/auth"
	"github.com/emcare/emcare/internal/platform/session"
)

// cohortOverrides replace configured values when non-zero.
type cohortOverrides struct {
	patients int
	seed     int64
	trees    int
}

// cliStore builds a session for one-shot commands.
func cliStore(cmd *cobra.Command, o cohortOverrides) (*session.Store, io.Closer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if o.patients > 0 {
		cfg.PatientCount = o.patients
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	if o.trees > 0 {
		cfg.ForestTrees = o.trees
	}
	logger, closer := newLogger(cfg, cmd.ErrOrStderr())
	store, err := newStore(cfg, logger, nil)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return store, closer, nil
}

func cohortFlags(cmd *cobra.Command, patients *int, seed *int64) {
	cmd.Flags().IntVar(patients, "patients", 0, "number of encounters to generate (default PATIENT_COUNT)")
	cmd.Flags().Int64Var(seed, "seed", 0, "generator seed (default SEED, 0 for time-based)")
}

func generateCmd() *cobra.Command {
	var (
		patients int
		seed     int64
		out      string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic cohort and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closer, err := cliStore(cmd, cohortOverrides{patients: patients, seed: seed})
			if err != nil {
				return err
			}
			defer closer.Close()

			ds := store.Dataset()
			if out != "" {
				if err := writeJSON(out, ds); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(session.Summarize(ds))
		},
	}
	cohortFlags(cmd, &patients, &seed)
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the full cohort to this file")
	return cmd
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func trainCmd() *cobra.Command {
	var (
		patients int
		seed     int64
		trees    int
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the triage model on a fresh cohort and report its quality",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closer, err := cliStore(cmd, cohortOverrides{patients: patients, seed: seed, trees: trees})
			if err != nil {
				return err
			}
			defer closer.Close()

			m, err := store.Train(cmd.Context())
			if err != nil {
				return err
			}
			printModel(cmd.OutOrStdout(), m)
			return nil
		},
	}
	cohortFlags(cmd, &patients, &seed)
	cmd.Flags().IntVar(&trees, "trees", 0, "forest size (default FOREST_TREES)")
	return cmd
}

func printModel(w io.Writer, m *predictor.TrainedModel) {
	fmt.Fprintf(w, "model %s: accuracy %.3f on %d held-out encounters (%d trees, %d training)\n",
		m.ID, m.Accuracy, m.TestSize, m.Trees, m.TrainSize)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tIMPORTANCE")
	for _, fi := range m.Importances {
		fmt.Fprintf(tw, "%s\t%.4f\n", fi.Feature, fi.Importance)
	}
	tw.Flush()
}

func recommendCmd() *cobra.Command {
	var (
		patients int
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print policy recommendations for a fresh cohort",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closer, err := cliStore(cmd, cohortOverrides{patients: patients, seed: seed})
			if err != nil {
				return err
			}
			defer closer.Close()

			ds := store.Dataset()
			printRecommendations(cmd.OutOrStdout(), policy.Recommendations(ds.Patients, ds.Facilities, time.Now()))
			return nil
		},
	}
	cohortFlags(cmd, &patients, &seed)
	return cmd
}

func printRecommendations(w io.Writer, recs []policy.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no recommendations")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tTYPE\tDISTRICT\tRECOMMENDATION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Priority, r.Type, r.District, r.Recommendation)
	}
	tw.Flush()
}

func simulateCmd() *cobra.Command {
	var (
		cycles   int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the live emergency feed and print each snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cycles <= 0 || interval <= 0 {
				return fmt.Errorf("--cycles and --interval must be positive")
			}
			store, closer, err := cliStore(cmd, cohortOverrides{})
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, cmd.OutOrStdout(), store, cycles, interval)
		},
	}
	cmd.Flags().IntVar(&cycles, "cycles", 8, "number of ticks to run")
	cmd.Flags().DurationVar(&interval, "interval", 4*time.Second, "time between ticks")
	return cmd
}

// runSimulation ticks the store every interval until cycles snapshots have
// been printed or ctx is done. The first tick happens immediately.
func runSimulation(ctx context.Context, w io.Writer, store *session.Store, cycles int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < cycles; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		snap, err := store.Tick()
		if err != nil {
			return err
		}
		printSnapshot(w, snap)
	}
	return nil
}

func printSnapshot(w io.Writer, s *simulation.Snapshot) {
	fmt.Fprintf(w, "cycle %d: %d active, %d critical, %d districts, latest %s\n",
		s.Cycle, s.Active, s.Critical, s.ActiveDistricts, s.LatestComplaint)
	for _, c := range s.RecentCritical {
		actions := "-"
		if len(c.ImmediateActions) > 0 {
			actions = strings.Join(c.ImmediateActions, "; ")
		}
		fmt.Fprintf(w, "  %s %s (%s) HR %d SBP %d SpO2 %d: %s\n",
			c.PatientID, c.Complaint, c.District, c.HR, c.SBP, c.SpO2, actions)
	}
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token for the write routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return fmt.Errorf("AUTH_SECRET must be set to issue tokens")
			}
			tok, err := auth.IssueToken([]byte(cfg.AuthSecret), subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "analyst", "token subject")
	cmd.Flags().StringSliceVar(&roles, "roles", []string{auth.RoleAnalyst}, "granted roles")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
