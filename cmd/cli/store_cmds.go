package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"gounlearn/app"
	"gounlearn/domain/attack"
	"gounlearn/domain/experiment"
	"gounlearn/internal/config"
	"gounlearn/internal/testkit"
	"gounlearn/ports"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var parallel int64

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Store result files and workbooks as experiments",
		Long: `Import result files (.json or http(s) URLs) and workbooks (.xlsx, .csv)
into the experiment store configured by DATABASE_URL and DB_DRIVER.

Example: DB_DRIVER=sqlite DATABASE_URL=experiments.db unlearn-cli import run1.json run2.xlsx --parallel 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return fmt.Errorf("DATABASE_URL is required to import")
			}
			datasets, closeStore, err := openDatasets(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			byKind := map[experiment.Source][]ports.DatasetSource{}
			var kinds []experiment.Source
			for _, location := range args {
				src, kind := app.SourceFor(location)
				if _, seen := byKind[kind]; !seen {
					kinds = append(kinds, kind)
				}
				byKind[kind] = append(byKind[kind], src)
			}

			failed := 0
			for _, kind := range kinds {
				for _, res := range datasets.ImportAll(ctx, byKind[kind], kind, parallel) {
					if res.Err != nil {
						failed++
						fmt.Printf("FAILED %s: %v\n", res.Source, res.Err)
						continue
					}
					exp := res.Experiment
					fmt.Printf("Imported %s as %s (%d samples, %d metric rows, %s)\n",
						res.Source, exp.ID, exp.SampleCount, exp.MetricCount, exp.Fingerprint)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d imports failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&parallel, "parallel", 4, "Maximum concurrent imports")
	return cmd
}

func newExperimentsCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "List stored experiments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			datasets, closeStore, err := openDatasets(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			exps, err := datasets.Experiments(ctx, limit, offset)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSOURCE\tSAMPLES\tMETRICS\tCREATED")
			for _, e := range exps {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					e.ID, e.Name, e.Source, e.SampleCount, e.MetricCount, e.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum experiments to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Experiments to skip")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		genConfig = testkit.DefaultScoreConfig()
		store     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic unlearning run",
		Long: `Generate reproducible attack scores for a forget set (group A) and
unseen samples (group B). With --import the run is stored as an experiment.

Example: unlearn-cli generate --seed 7 --unlearned 0.8 --import`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			gen := testkit.NewScoreGenerator(genConfig)

			if !store {
				samples, err := gen.Samples(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%s\n", gen.Name())
				for _, sum := range attack.Summarize(samples) {
					fmt.Printf("  %s: n=%d mean=%.3f std=%.3f\n", sum.Group, sum.Count, sum.Mean, sum.StdDev)
				}
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			datasets, closeStore, err := openDatasets(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			exp, err := datasets.Import(ctx, gen, experiment.SourceGenerated)
			if err != nil {
				return err
			}
			fmt.Printf("Stored %s as %s (%d samples)\n", exp.Name, exp.ID, exp.SampleCount)
			return nil
		},
	}
	cmd.Flags().Int64Var(&genConfig.Seed, "seed", genConfig.Seed, "Random seed")
	cmd.Flags().IntVar(&genConfig.CountA, "a", genConfig.CountA, "Forget-set samples")
	cmd.Flags().IntVar(&genConfig.CountB, "b", genConfig.CountB, "Unseen samples")
	cmd.Flags().Float64Var(&genConfig.UnlearnedFraction, "unlearned", genConfig.UnlearnedFraction, "Share of the forget set that scores like unseen samples")
	cmd.Flags().BoolVar(&store, "import", false, "Store the run in the experiment store")
	return cmd
}
