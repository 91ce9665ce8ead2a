package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/advisor"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/config"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/database"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/llm"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/metrics"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/pipeline"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/server"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/vectorindex"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	log        = logger.Nop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "advisor",
	Short:   "Curriculum scraper and course advisor",
	Long:    "advisor collects degree programs, curriculum trees and module handbooks, indexes the courses and answers study questions over them.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		log, err = logger.New(cfg.Logging.Mode, level)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(courseCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("advisor", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/advisor/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the program, vector index and LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Curriculum:")
		fmt.Printf("  Degree programs: %d\n", stats.Programs)
		fmt.Printf("  Entries: %d\n", stats.Entries)
		fmt.Printf("  Entries with module links: %d\n", stats.LinkedEntries)
		fmt.Println("\nModules:")
		fmt.Printf("  Total: %d\n", stats.Modules)
		fmt.Printf("  Primary extraction: %d\n", stats.PrimaryModules)
		fmt.Printf("  Fallback extraction: %d\n", stats.FallbackModules)
		fmt.Printf("  Failed: %d\n", stats.FailedModules)

		store, closeStore, err := openCatalog(db)
		if err != nil {
			return err
		}
		defer closeStore()
		fmt.Println("\nCourse catalog:")
		fmt.Printf("  Course store: %s\n", describeCatalog())
		if err := pingCatalog(cmd.Context(), store); err != nil {
			fmt.Printf("  Reachable: no (%v)\n", err)
		} else {
			fmt.Println("  Reachable: yes")
		}
		fmt.Printf("  Vector backend: %s\n", cfg.Vector.Backend)
		return nil
	},
}

// --- collect commands ---

var (
	programID   string
	retryFailed bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Scrape degree programs, curriculum trees or module pages",
}

var collectProgramsCmd = &cobra.Command{
	Use:   "programs",
	Short: "Collect the degree program list",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		collector, closeSources := newCollector(db, nil)
		defer closeSources()

		n, err := collector.CollectPrograms(cmd.Context(), cfg.Scrape.ProgramsURL)
		if err != nil {
			return err
		}
		fmt.Printf("Stored %d degree programs.\n", n)
		return nil
	},
}

var collectCurriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Collect and parse the curriculum tree of a program",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		collector, closeSources := newCollector(db, nil)
		defer closeSources()

		pipe := pipeline.New(cfg, db, collector, nil, log)
		url, err := pipe.CurriculumURL(program())
		if err != nil {
			return err
		}
		entries, err := collector.CollectCurriculum(cmd.Context(), program(), url)
		if err != nil {
			return err
		}

		linked := 0
		for _, e := range entries {
			if e.Link != "" {
				linked++
			}
		}
		fmt.Println("Curriculum collected:")
		fmt.Printf("  Program: %s\n", program())
		fmt.Printf("  Entries: %d\n", len(entries))
		fmt.Printf("  With module links: %d\n", linked)
		return nil
	},
}

var moduleLimit int

var collectModulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Collect module handbook pages for curriculum entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.GetEntriesNeedingModules(programID, retryFailed)
		if err != nil {
			return err
		}
		if moduleLimit > 0 && len(entries) > moduleLimit {
			entries = entries[:moduleLimit]
		}
		if len(entries) == 0 {
			fmt.Println("No curriculum entries need module pages.")
			return nil
		}
		fmt.Printf("Collecting %d module pages...\n", len(entries))

		collector, closeSources := newCollector(db, nil)
		defer closeSources()

		result, err := collector.CollectModules(cmd.Context(), entries)
		fmt.Println("\nModule collection complete:")
		fmt.Printf("  Processed: %d\n", result.Processed)
		fmt.Printf("  Primary extraction: %d\n", result.Primary)
		fmt.Printf("  Fallback extraction: %d\n", result.Fallback)
		fmt.Printf("  Failed: %d\n", result.Failed)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		return err
	},
}

func init() {
	collectCurriculumCmd.Flags().StringVarP(&programID, "program", "p", "", "Study program id (default from config)")
	collectModulesCmd.Flags().StringVarP(&programID, "program", "p", "", "Study program id (default all programs)")
	collectModulesCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Also retry entries whose module page failed")
	collectModulesCmd.Flags().IntVar(&moduleLimit, "limit", 0, "Collect at most this many module pages")

	collectCmd.AddCommand(collectProgramsCmd)
	collectCmd.AddCommand(collectCurriculumCmd)
	collectCmd.AddCommand(collectModulesCmd)
}

// --- export command ---

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the course table and curriculum as CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		dir := exportDir
		if dir == "" {
			dir = cfg.GetDataDir()
		}
		counts, err := db.ExportCSV(dir)
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s:\n", dir)
		for _, f := range []string{database.ModuleDetailsCSV, database.CurriculumCSV, database.DegreeProgramsCSV} {
			fmt.Printf("  %s: %d rows\n", f, counts[f])
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "Output directory (default data dir)")
}

// --- index command ---

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed catalog courses and store them in the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		indexer, closeIndex, err := newIndexer(ctx, db)
		if err != nil {
			return err
		}
		defer closeIndex()

		n, err := indexer.Run(ctx, programID)
		fmt.Printf("Indexed %d courses.\n", n)
		return err
	},
}

func init() {
	indexCmd.Flags().StringVarP(&programID, "program", "p", "", "Only index this study program")
}

// --- run command ---

var (
	dryRun    bool
	skipIndex bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: programs -> curriculum -> modules -> export -> index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m := metrics.New()
		collector, closeSources := newCollector(db, m)
		defer closeSources()

		var indexer pipeline.Indexer
		if !skipIndex && !dryRun {
			ix, closeIndex, err := newIndexer(ctx, db)
			if err != nil {
				return err
			}
			defer closeIndex()
			indexer = ix
		}

		pipe := pipeline.New(cfg, db, collector, indexer, log)
		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(program())
		} else {
			result = pipe.Run(ctx, program(), retryFailed)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/5: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun && !result.Failed() {
			fmt.Println("\nPipeline complete! Run 'advisor serve' to answer questions.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&programID, "program", "p", "", "Study program id (default from config)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Also retry entries whose module page failed")
	runCmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Do not embed courses into the vector index")
}

// --- ask command ---

var (
	studyPlanID string
	bearer      string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the course advisor a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, closeEngine, err := newEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer closeEngine()

		if bearer == "" {
			bearer = os.Getenv("ADVISOR_BEARER_TOKEN")
		}
		turn := engine.Ask(ctx, advisor.Request{
			Question:    strings.Join(args, " "),
			StudyPlanID: studyPlanID,
			Bearer:      bearer,
		})

		fmt.Println(turn.Answer)
		if len(turn.CourseCodes) > 0 {
			fmt.Printf("\nCourse codes: %s\n", strings.Join(turn.CourseCodes, ", "))
		}
		if verbose {
			fmt.Printf("\nStates: %v\n", turn.States)
			for _, h := range turn.Hits {
				fmt.Printf("  %.3f  %s  %s\n", h.Score, h.ModuleID, h.Name)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&studyPlanID, "study-plan", "s", "", "Study plan id used to restrict courses to its program")
	askCmd.Flags().StringVar(&bearer, "token", "", "Bearer token for the study plan service (default $ADVISOR_BEARER_TOKEN)")
}

// --- course command ---

var courseCmd = &cobra.Command{
	Use:   "course [code]",
	Short: "Look up a course by module id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store, closeStore, err := openCatalog(db)
		if err != nil {
			return err
		}
		defer closeStore()

		course, err := store.Course(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(course)
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat and course API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store, closeStore, err := openCatalog(db)
		if err != nil {
			return err
		}
		defer closeStore()

		m := metrics.New()
		engine, closeEngine, err := newEngine(ctx, m)
		if err != nil {
			return err
		}
		defer closeEngine()

		srv, err := server.New(server.Options{
			Chat:           engine,
			Courses:        store,
			Metrics:        m,
			Logger:         log,
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Chat.RequestTimeout,
		})
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func program() string {
	if programID != "" {
		return programID
	}
	return cfg.Scrape.ProgramID
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DBPath())
}

func llmOptions() llm.Options {
	return llm.Options{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		EmbeddingProvider: cfg.LLM.EmbeddingProvider,
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		OllamaURL:         cfg.LLM.OllamaURL,
		OpenAIModel:       cfg.LLM.OpenAIModel,
		GeminiModel:       cfg.LLM.GeminiModel,
		APIKeyEnv:         cfg.LLM.APIKeyEnv,
		Temperature:       cfg.LLM.Temperature,
		Timeout:           cfg.LLM.Timeout,
		Logger:            log,
	}
}

// checkEmbedder probes the embedder and compares its width with the index.
func checkEmbedder(ctx context.Context, e llm.Embedder, idx vectorindex.Index) error {
	dim, err := llm.ProbeDimension(ctx, e)
	if err != nil {
		return fmt.Errorf("probing embedding dimension: %w", err)
	}
	if err := vectorindex.CheckDimension(idx, dim); err != nil {
		return err
	}
	log.Info("embedding dimension verified", "vector_dim", dim)
	return nil
}
