package main

import (
	"context"
	"fmt"
	"os"

	"gounlearn/adapters/postgres"
	"gounlearn/app"
	"gounlearn/internal/config"
	"gounlearn/internal/errors"
	"gounlearn/internal/viewmodel"
	"gounlearn/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "unlearn-cli",
		Short: "Explore unlearning-attack thresholds from the command line",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(
		newBinsCmd(),
		newClassifyCmd(),
		newIntersectCmd(),
		newDragCmd(),
		newRenderCmd(),
		newSummaryCmd(),
		newImportCmd(),
		newGenerateCmd(),
		newExperimentsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is a loaded visualization plus the services behind it
type session struct {
	cfg      *config.Config
	datasets *app.DatasetService
	coord    *viewmodel.Coordinator
	dataset  viewmodel.Dataset
	close    func()
}

// openDatasets builds a dataset service, backed by the experiment store
// when DATABASE_URL is set
func openDatasets(ctx context.Context, cfg *config.Config) (*app.DatasetService, func(), error) {
	if !cfg.Database.Enabled() {
		return app.NewDatasetService(nil), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open experiment store")
	}
	return app.NewDatasetService(postgres.NewExperimentRepository(db)), func() { db.Close() }, nil
}

// openSession loads location (a file or URL), a stored experiment, or
// whatever the environment configures, in that order of preference
func openSession(ctx context.Context, location, experimentID string) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	datasets, closeStore, err := openDatasets(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var src ports.DatasetSource
	switch {
	case location != "":
		src, _ = app.SourceFor(location)
	case experimentID != "":
		data := cfg.Data
		data.ExperimentID = experimentID
		src, err = datasets.Resolve(ctx, data)
	default:
		src, err = datasets.Resolve(ctx, cfg.Data)
	}
	if err != nil {
		closeStore()
		return nil, err
	}

	ds, err := datasets.Load(ctx, src)
	if err != nil {
		closeStore()
		return nil, err
	}
	coord := viewmodel.NewCoordinator(cfg.Options())
	if _, err := coord.Load(ds); err != nil {
		closeStore()
		return nil, err
	}

	return &session{
		cfg:      cfg,
		datasets: datasets,
		coord:    coord,
		dataset:  ds,
		close: func() {
			coord.Close()
			closeStore()
		},
	}, nil
}

// sourceFlags registers the flags every dataset-reading command shares
func sourceFlags(cmd *cobra.Command, experimentID *string) {
	cmd.Flags().StringVar(experimentID, "experiment", "", "Stored experiment ID (requires DATABASE_URL)")
}

func locationArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// setThreshold moves the session to threshold when the flag was given
func setThreshold(cmd *cobra.Command, s *session, threshold float64) (float64, error) {
	if !cmd.Flags().Changed("threshold") {
		return s.coord.Threshold()
	}
	return s.coord.SetThreshold(threshold)
}
