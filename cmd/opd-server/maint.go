package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opdemr/opdemr/internal/maintenance"
)

func maintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maint",
		Short: "Maintenance operations; each runs in one transaction",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset-patient-ids",
		Short: "Renumber patient ids onto 1..N and update every referencing table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := newServices(a.db, a.cfg)
			rep, err := maintenance.NewPatientIDNormalizer(a.db, svc.audit, a.log).Run(ctx)
			if err != nil {
				a.log.Error().Err(err).Msg("patient id reset rolled back")
				return err
			}
			for _, t := range rep.Tables {
				a.log.Info().Str("table", t.Table).Str("column", t.Column).Int64("rows", t.Rows).Msg("updated")
			}
			a.log.Info().Int("patients", rep.Patients).Int("changed", rep.Changed).Msg("patient id reset complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed-reference",
		Short: "Load dose patterns, lab catalog, report templates, suppliers and items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := newServices(a.db, a.cfg).loader.Load(ctx)
			if err != nil {
				a.log.Error().Err(err).Msg("reference load rolled back")
				return err
			}
			if len(rep) == 0 {
				a.log.Info().Msg("reference data already present")
			}
			for table, n := range rep {
				a.log.Info().Str("table", table).Int("inserted", n).Msg("seeded")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "fix-dose-patterns",
		Short: "Normalize dose values, merge duplicates and fill missing descriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := newServices(a.db, a.cfg).reference.FixDosePatterns(ctx)
			if err != nil {
				a.log.Error().Err(err).Msg("dose pattern fix rolled back")
				return err
			}
			a.log.Info().Int("scanned", rep.Scanned).Int("normalized", rep.Normalized).Int("merged", rep.Merged).
				Int("described", rep.Described).Int64("medicines", rep.Medicines).Msg("dose patterns fixed")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check-relationships",
		Short: "Report foreign key violations and orphaned rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := maintenance.CheckRelationships(ctx, a.db)
			if err != nil {
				return err
			}
			for _, v := range rep.Violations {
				a.log.Warn().Str("table", v.Table).Int64("row_id", v.RowID).Str("parent", v.Parent).Msg("foreign key violation")
			}
			for _, o := range rep.Orphans {
				a.log.Warn().Str("check", o.Check).Int("rows", o.Rows).Msg("orphaned rows")
			}
			if !rep.OK() {
				return fmt.Errorf("found %d violation(s) and %d orphan check(s) failing", len(rep.Violations), len(rep.Orphans))
			}
			a.log.Info().Msg("all relationships intact")
			return nil
		},
	})

	seedCmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Create fake patients with appointments for demos",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("patients")
			seed, _ := cmd.Flags().GetUint64("seed")
			ctx := context.Background()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := newServices(a.db, a.cfg)
			_, err = maintenance.NewDemoSeeder(a.db, svc.identity, svc.scheduling, seed, a.log).Seed(ctx, n)
			return err
		},
	}
	seedCmd.Flags().Int("patients", 25, "Number of patients to create")
	seedCmd.Flags().Uint64("seed", 0, "Random seed for reproducible data (0 is random)")
	cmd.AddCommand(seedCmd)

	return cmd
}
