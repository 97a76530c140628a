package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-datagen/internal/config"
	"github.com/dvloznov/finance-datagen/internal/gcsuploader"
	"github.com/dvloznov/finance-datagen/internal/logger"
	"github.com/dvloznov/finance-datagen/internal/metrics"
	"github.com/dvloznov/finance-datagen/internal/persona"
	"github.com/dvloznov/finance-datagen/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "replay":
		runReplay(os.Args[2:])
	case "upload":
		runUpload(os.Args[2:])
	case "policies":
		runPolicies(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Synthetic financial data generator")
	fmt.Println("\nUsage:")
	fmt.Println("  datagen <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate  Synthesize users, accounts, liabilities and transactions")
	fmt.Println("  replay    Synthesize users and accounts, sample transactions from a CSV/XLSX table")
	fmt.Println("  upload    Upload the files of an output directory to GCS")
	fmt.Println("  policies  Print the resolved persona policy table")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'datagen <command> -h' for more information on a command.")
}

// runFlags are shared by generate and replay. Only flags given on the command
// line override the config file.
type runFlags struct {
	fs         *flag.FlagSet
	configPath *string
	jsonLogs   *bool
	population *int
	seed       *uint64
	out        *string
	workers    *int
	asOf       *string
	metrics    *string
	source     *string
	sample     *int
	bucket     *string
	prefix     *string
}

func newRunFlags(name string) *runFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &runFlags{
		fs:         fs,
		configPath: fs.String("config", "", "Path to a YAML/TOML/JSON config file"),
		jsonLogs:   fs.Bool("json-logs", false, "Log JSON lines instead of console output"),
		population: fs.Int("population", 0, "Number of users to generate"),
		seed:       fs.Uint64("seed", 0, "Random seed"),
		out:        fs.String("out", "", "Output directory"),
		workers:    fs.Int("workers", 0, "Concurrent transaction synthesis workers"),
		asOf:       fs.String("as-of", "", "Last day of the window (YYYY-MM-DD, defaults to today)"),
		metrics:    fs.String("metrics-file", "", "Prometheus textfile to write (relative paths go into -out)"),
		source:     fs.String("source", "", "Source table for replay (local path or gs:// URI)"),
		sample:     fs.Int("sample", 0, "Number of source rows to sample (0 keeps all)"),
		bucket:     fs.String("bucket", "", "GCS bucket to upload outputs to"),
		prefix:     fs.String("prefix", "", "Object prefix inside -bucket"),
	}
}

func (f *runFlags) load(args []string) (*config.Config, zerolog.Logger) {
	f.fs.Parse(args)

	cfg, err := config.Load(*f.configPath)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load config")
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "population":
			cfg.Generation.Population = *f.population
		case "seed":
			cfg.Generation.Seed = *f.seed
		case "out":
			cfg.Output.Dir = *f.out
		case "workers":
			cfg.Generation.Workers = *f.workers
		case "as-of":
			cfg.Generation.AsOf = *f.asOf
		case "metrics-file":
			cfg.Output.MetricsFile = *f.metrics
		case "source":
			cfg.Source.Path = *f.source
		case "sample":
			cfg.Source.SampleSize = *f.sample
		case "bucket":
			cfg.Storage.Bucket = *f.bucket
		case "prefix":
			cfg.Storage.Prefix = *f.prefix
		}
	})

	log, err := logger.Configure(cfg.Log.Level, *f.jsonLogs)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Invalid log level")
	}
	return cfg, log
}

func storageService(cfg *config.Config) *gcsuploader.GCSStorageService {
	return gcsuploader.NewGCSStorageService(gcsuploader.Options{
		CredentialsFile: cfg.Storage.CredentialsFile,
		Endpoint:        cfg.Storage.Endpoint,
	})
}

func runGenerate(args []string) {
	cfg, log := newRunFlags("generate").load(args)
	run(cfg, log, pipeline.NewGeneratePipeline)
}

func runReplay(args []string) {
	cfg, log := newRunFlags("replay").load(args)
	if cfg.Source.Path == "" {
		log.Fatal().Msg("Error: -source (or source.path) is required")
	}
	run(cfg, log, pipeline.NewReplayPipeline)
}

func run(cfg *config.Config, log zerolog.Logger, build func(pipeline.Deps) *pipeline.Pipeline) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	deps := pipeline.Deps{
		Storage: storageService(cfg),
		Metrics: metrics.NewCollector(),
		Now:     time.Now,
	}
	state := &pipeline.PipelineState{Config: cfg}

	start := time.Now()
	if err := build(deps).Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Generation failed")
	}

	log.Info().
		Int("users", len(state.Households)).
		Int("transactions", len(state.Rows)).
		Dur("elapsed", time.Since(start)).
		Msg("Generation completed")

	for _, p := range state.OutputPaths {
		fmt.Println(p)
	}
	for _, uri := range state.UploadedURIs {
		fmt.Println(uri)
	}
}

func runUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a config file")
	dir := fs.String("dir", "", "Directory whose files are uploaded (defaults to output.dir)")
	bucket := fs.String("bucket", "", "GCS bucket name (defaults to storage.bucket)")
	prefix := fs.String("prefix", "", "Object prefix (defaults to storage.prefix)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load config")
	}
	log, err := logger.Configure(cfg.Log.Level, false)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Invalid log level")
	}

	if *dir == "" {
		*dir = cfg.Output.Dir
	}
	if *bucket == "" {
		*bucket = cfg.Storage.Bucket
	}
	if *prefix == "" {
		*prefix = cfg.Storage.Prefix
	}
	if *bucket == "" {
		log.Fatal().Msg("Usage: datagen upload -bucket NAME [-dir PATH] [-prefix PREFIX]")
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("Failed to read output directory")
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(*dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		log.Fatal().Str("dir", *dir).Msg("Nothing to upload")
	}

	ctx := logger.WithContext(context.Background(), log)
	log.Info().
		Str("bucket", *bucket).
		Str("prefix", *prefix).
		Int("files", len(paths)).
		Msg("Uploading outputs to GCS")

	uris, err := gcsuploader.UploadOutputs(ctx, storageService(cfg), *bucket, *prefix, paths)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	for _, uri := range uris {
		fmt.Println(uri)
	}
}

func runPolicies(args []string) {
	fs := flag.NewFlagSet("policies", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a config file")
	fs.Parse(args)

	log := logger.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	table, err := cfg.PolicyTable()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid persona policies")
	}
	weights, err := cfg.PersonaWeights()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid persona weights")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERSONA\tWEIGHT\tCHECKING\tCARDS\tUTILIZATION\tAPR\tSUBSCRIPTIONS\tMIN_SUB_SPEND\tSAVINGS_CADENCE\tINCOME")
	for _, p := range persona.All {
		pol := table.Get(p)
		fmt.Fprintf(w, "%s\t%v\t%.0f-%.0f\t%v\t%.2f-%.2f\t%.1f-%.1f\t%d-%d\t%.2f\t%d-%d\t%s\n",
			p, weights[p],
			pol.CheckingBalance.Min, pol.CheckingBalance.Max,
			pol.CardCountWeights,
			pol.Utilization.Min, pol.Utilization.Max,
			pol.APR.Min, pol.APR.Max,
			pol.Subscriptions.Min, pol.Subscriptions.Max,
			pol.MinMonthlySubscriptionSpend,
			pol.SavingsCadenceDays.Min, pol.SavingsCadenceDays.Max,
			pol.Income,
		)
	}
	w.Flush()

	overrides := make([]string, 0, len(cfg.Personas))
	for name := range cfg.Personas {
		overrides = append(overrides, name)
	}
	sort.Strings(overrides)
	if len(overrides) > 0 {
		fmt.Printf("\nOverridden by config: %v\n", overrides)
	}
}
