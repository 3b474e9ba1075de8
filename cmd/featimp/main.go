package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"featimp/internal/cfg"
	"featimp/internal/dataset"
	"featimp/internal/features"
	"featimp/internal/importance"
	"featimp/internal/metrics"
	"featimp/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "Optional dotenv file")
		datasetName = flag.String("dataset", "", "Name of a stored dataset snapshot to analyse")
		barsPath    = flag.String("bars", "", "CSV file of price bars to build features from")
		window      = flag.Int("window", 20, "Bars: feature window length")
		saveAs      = flag.String("save-dataset", "", "Store the analysed dataset under this name")
		outputPath  = flag.String("output", "", "Write the run result as JSON to this file")
		samples     = flag.Int("samples", 1000, "Synthetic dataset: number of bars")
		informative = flag.Int("informative", 2, "Synthetic dataset: informative features")
		noise       = flag.Int("noise", 3, "Synthetic dataset: noise features")
		sigma       = flag.Float64("sigma", 0.5, "Synthetic dataset: noise on informative features")
		horizon     = flag.Int("horizon", 5, "Label horizon in bars")
		list        = flag.Bool("list", false, "List stored datasets and recent runs, then exit")
		since       = flag.Duration("since", 30*24*time.Hour, "List: how far back to look for runs")
		latest      = flag.String("latest", "", "Print the latest stored run of this method, then exit")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var store *storage.Store
	if config.DataPath != "" {
		store, err = storage.New(config.DataPath)
		if err != nil {
			log.Fatal().Err(err).Str("data_path", config.DataPath).Msg("Failed to open store")
		}
		defer store.Close()
	}

	if *list || *latest != "" {
		if store == nil {
			log.Fatal().Msg("Listing stored runs requires DATA_PATH")
		}
		if *list {
			if err := listStore(os.Stdout, store, time.Now(), *since); err != nil {
				log.Fatal().Err(err).Msg("Failed to list store")
			}
		}
		if *latest != "" {
			if err := showLatest(os.Stdout, store, *latest); err != nil {
				log.Fatal().Err(err).Str("method", *latest).Msg("Failed to load latest run")
			}
		}
		return
	}

	src := source{
		store:     store,
		name:      *datasetName,
		bars:      *barsPath,
		build:     features.BuildConfig{Window: *window, Horizon: *horizon},
		synthetic: dataset.SyntheticConfig{
			Samples:     *samples,
			Informative: *informative,
			Noise:       *noise,
			Sigma:       *sigma,
			Interval:    time.Minute,
			Horizon:     *horizon,
			Start:       time.Now().Add(-time.Duration(*samples) * time.Minute).Truncate(time.Minute),
			Seed:        config.Seed,
		},
	}
	X, ev, err := src.load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	if *saveAs != "" {
		if store == nil {
			log.Fatal().Msg("Saving a dataset requires DATA_PATH")
		}
		if err := store.StoreDataset(*saveAs, X, ev); err != nil {
			log.Fatal().Err(err).Msg("Failed to store dataset")
		}
		log.Info().Str("dataset", *saveAs).Msg("Dataset stored")
	}

	m := metrics.New()
	engine := importance.NewEngine(metrics.NewWrapper(m))

	res, err := engine.Run(ctx, X, ev, importance.Options{
		Method:      config.Method,
		Scoring:     config.Scoring,
		NEstimators: config.NEstimators,
		NSplits:     config.NSplits,
		MaxSamples:  config.MaxSamples,
		NumThreads:  config.NumThreads,
		PctEmbargo:  config.PctEmbargo,
		MinWLeaf:    config.MinWLeaf,
		Seed:        config.Seed,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Feature importance run failed")
	}

	printReport(os.Stdout, res)

	if store != nil {
		if err := store.SaveRun(res); err != nil {
			log.Error().Err(err).Msg("Failed to store run")
		}
	}

	if *outputPath != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode result")
		}
		if err := os.WriteFile(*outputPath, data, 0o644); err != nil {
			log.Fatal().Err(err).Str("path", *outputPath).Msg("Failed to write result")
		}
	}

	if config.MetricsFile != "" {
		if err := m.WriteTextfile(config.MetricsFile); err != nil {
			log.Error().Err(err).Str("path", config.MetricsFile).Msg("Failed to write metrics")
		}
	}
}

// source selects where the analysed dataset comes from: a stored snapshot,
// a CSV of bars, or the synthetic generator.
type source struct {
	store     *storage.Store
	name      string
	bars      string
	build     features.BuildConfig
	synthetic dataset.SyntheticConfig
}

func (s source) load() (*dataset.Matrix, *dataset.Events, error) {
	switch {
	case s.name != "":
		if s.store == nil {
			return nil, nil, fmt.Errorf("loading dataset %q requires DATA_PATH", s.name)
		}
		return s.store.LoadDataset(s.name)
	case s.bars != "":
		bars, err := features.LoadCSV(s.bars)
		if err != nil {
			return nil, nil, err
		}
		return features.Build(bars, s.build)
	default:
		log.Info().
			Int("samples", s.synthetic.Samples).
			Int("informative", s.synthetic.Informative).
			Int("noise", s.synthetic.Noise).
			Msg("Generating synthetic dataset")
		return dataset.Synthetic(s.synthetic)
	}
}
