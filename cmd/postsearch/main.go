// Package main is the postsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ezpogue/IRProjectPhase2/internal/analysis"
	"github.com/ezpogue/IRProjectPhase2/internal/cli"
	"github.com/ezpogue/IRProjectPhase2/internal/config"
	"github.com/ezpogue/IRProjectPhase2/internal/corpus"
	"github.com/ezpogue/IRProjectPhase2/internal/keyword"
	"github.com/ezpogue/IRProjectPhase2/internal/models"
	"github.com/ezpogue/IRProjectPhase2/internal/ranking"
	"github.com/ezpogue/IRProjectPhase2/internal/search"
	"github.com/ezpogue/IRProjectPhase2/internal/server"
	"github.com/ezpogue/IRProjectPhase2/internal/storage"
	"github.com/ezpogue/IRProjectPhase2/internal/watcher"
	"github.com/ezpogue/IRProjectPhase2/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/postsearch/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config falls back to built-in defaults.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.DefaultConfig(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("postsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (queries, builds, watcher events)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Corpus.Directory != "" && cfg.Corpus.RebuildOnStartOrDefault() {
		if _, err := components.Engine.Reload(ctx); err != nil {
			logger.Warn("startup rebuild failed", zap.String("corpus", cfg.Corpus.Directory), zap.Error(err))
		}
	}
	if !components.Index.Available() {
		logger.Warn("no committed index; searches return 503 until a rebuild succeeds")
	}

	if cfg.Corpus.Watch && cfg.Corpus.Directory != "" {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		engine := components.Engine
		watchSvc := watcher.NewWatcher(cfg.Corpus.Directory, cfg.Corpus.Extensions,
			func(ctx context.Context) {
				if _, err := engine.Reload(ctx); err != nil {
					logger.Warn("watch rebuild failed", zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(components.Engine, &cfg.Server, logger, components.Registry)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: postsearch search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Profiles weight relevance, recency and upvotes differently:
  relevance  mostly text relevance (default)
  upvotes    mostly popularity
  time       mostly recency

Examples:
  postsearch search happy dog
  postsearch search --profile time "election results"
  postsearch search --server "" --output json pasta   # read the index directly
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the index directly)")
	profile := fs.String("profile", "", "weight profile: relevance, upvotes, time or a custom profile")
	limit := fs.Int("limit", 10, "number of results")
	candidates := fs.Int("candidates", 0, "lexical candidates to re-rank (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:          queryStr,
		Profile:        *profile,
		Limit:          *limit,
		CandidateLimit: *candidates,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// The HTTP API avoids opening the index while a server holds it.
		response, err = searchViaHTTP(*serverURL, searchQuery)
	} else {
		response, err = withDirectEngine(*configPath, func(c *Components) (*models.SearchResponse, error) {
			return c.Engine.Search(context.Background(), searchQuery)
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// withDirectEngine opens the index read-only for a single CLI call.
func withDirectEngine[T any](configPath string, fn func(*Components) (T, error)) (T, error) {
	var zero T
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return zero, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return zero, fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return zero, fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()
	return fn(components)
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	var response models.SearchResponse
	if err := doJSON(http.MethodPost, serverURL+"/api/v1/search", body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// doJSON sends body (nil for none) and decodes a 200 response into out.
func doJSON(method, url string, body []byte, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError turns a non-200 API response into an error carrying the server's message.
func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// statusReport is what the status command prints.
type statusReport struct {
	Index  *models.IndexStatus
	Builds []*storage.Build
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the index directly)")
	builds := fs.Int("builds", 5, "number of recent builds to list (0 = none)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil || format == cli.OutputCompact {
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	var report *statusReport
	if *serverURL != "" {
		report, err = statusViaHTTP(*serverURL, *builds)
	} else {
		report, err = withDirectEngine(*configPath, func(c *Components) (*statusReport, error) {
			return collectStatus(context.Background(), c.Engine, *builds)
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, report.Index, report.Builds, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func collectStatus(ctx context.Context, engine *search.Engine, builds int) (*statusReport, error) {
	st, err := engine.Status(ctx)
	if err != nil {
		return nil, err
	}
	report := &statusReport{Index: st}
	if builds > 0 {
		if report.Builds, err = engine.Builds(ctx, builds); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func statusViaHTTP(serverURL string, builds int) (*statusReport, error) {
	report := &statusReport{Index: &models.IndexStatus{}}
	if err := doJSON(http.MethodGet, serverURL+"/api/v1/status", nil, report.Index); err != nil {
		return nil, err
	}
	if builds > 0 {
		var out struct {
			Builds []*storage.Build `json:"builds"`
		}
		if err := doJSON(http.MethodGet, serverURL+"/api/v1/index/builds?limit="+strconv.Itoa(builds), nil, &out); err != nil {
			return nil, err
		}
		report.Builds = out.Builds
	}
	return report, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "ask a running server to rebuild from its corpus directory instead")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		var result keyword.BuildResult
		if err := doJSON(http.MethodPost, *serverURL+"/api/v1/index/rebuild", nil, &result); err != nil {
			fmt.Printf("Rebuild failed: %v\n", err)
			os.Exit(1)
		}
		printBuildResult(&result)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		cfg.Corpus.Directory = fs.Arg(0)
	}
	if cfg.Corpus.Directory == "" {
		fmt.Println("Usage: postsearch index [flags] <corpus-directory>")
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Engine.Reload(context.Background())
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	printBuildResult(result)
}

func printBuildResult(result *keyword.BuildResult) {
	fmt.Printf("Indexed %d post(s) into generation %s in %s\n",
		result.Documents, result.Generation, result.Duration.Round(time.Millisecond))
}

// Components holds all initialized components.
type Components struct {
	Catalog  storage.Catalog
	Index    *keyword.Index
	Engine   *search.Engine
	Registry *prometheus.Registry
}

// Close releases all resources.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

// analyzerOptions translates the analysis config section into analyzer options.
func analyzerOptions(cfg config.AnalysisConfig) ([]analysis.Option, error) {
	var opts []analysis.Option
	switch {
	case cfg.StopWords == nil:
	case len(cfg.StopWords) == 0:
		opts = append(opts, analysis.WithoutStopWords())
	default:
		opts = append(opts, analysis.WithStopWords(cfg.StopWords))
	}
	if len(cfg.FieldPolicies) > 0 {
		policies := make(analysis.Policies, len(cfg.FieldPolicies))
		for field, name := range cfg.FieldPolicies {
			p, err := analysis.ParseFieldPolicy(name)
			if err != nil {
				return nil, fmt.Errorf("analysis.field_policies.%s: %w", field, err)
			}
			policies[field] = p
		}
		opts = append(opts, analysis.WithPolicies(policies))
	}
	return opts, nil
}

// profilesFromConfig builds the profile table from the built-ins plus configured profiles.
func profilesFromConfig(cfg *config.Config) (*ranking.Profiles, error) {
	custom := make(map[string]ranking.WeightProfile, len(cfg.Profiles))
	for name, p := range cfg.Profiles {
		custom[name] = ranking.WeightProfile{
			Name:            name,
			UpvoteWeight:    p.UpvoteWeight,
			TimeWeight:      p.TimeWeight,
			RelevanceWeight: p.RelevanceWeight,
		}
	}
	profiles, err := ranking.NewProfiles(custom)
	if err != nil {
		return nil, err
	}
	if !profiles.Has(cfg.Search.DefaultProfile) {
		return nil, fmt.Errorf("search.default_profile %q is not a known profile", cfg.Search.DefaultProfile)
	}
	return profiles, nil
}

// initializeComponents wires the catalog, keyword index, ranker and engine. readOnly opens
// the index for searching only, as the one-shot CLI commands do.
func initializeComponents(cfg *config.Config, logger *zap.Logger, readOnly bool) (*Components, error) {
	profiles, err := profilesFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	azOpts, err := analyzerOptions(cfg.Analysis)
	if err != nil {
		return nil, err
	}
	analyzer, err := analysis.New(azOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}

	if cfg.Storage.CatalogPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.CatalogPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	catalog, err := storage.NewSQLiteCatalog(cfg.Storage.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	idxOpts := []keyword.IndexOption{
		keyword.WithLogger(logger),
		keyword.WithMaxQueryTerms(cfg.Search.MaxQueryTerms),
	}
	if readOnly {
		idxOpts = append(idxOpts, keyword.WithReadOnly())
	}
	index, err := keyword.Open(context.Background(), cfg.Storage.IndexDir, analyzer, catalog, idxOpts...)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	rankCfg := ranking.DefaultRankingConfig()
	rankCfg.ResultLimit = cfg.Search.ResultLimit
	rankCfg.CacheSize = cfg.Search.CacheSize
	ranker, err := ranking.NewRanker(analyzer, rankCfg)
	if err != nil {
		_ = index.Close()
		_ = catalog.Close()
		return nil, fmt.Errorf("invalid ranking config: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := search.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		_ = index.Close()
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	engineOpts := []search.EngineOption{
		search.WithLogger(logger),
		search.WithMetrics(metrics),
		search.WithCatalog(catalog),
	}
	if cfg.Corpus.Directory != "" {
		loader := corpus.NewLoader(corpus.WithExtensions(cfg.Corpus.Extensions), corpus.WithLogger(logger))
		engineOpts = append(engineOpts, search.WithCorpus(loader, cfg.Corpus.Directory))
	}
	if cfg.Search.SuggestionsOrDefault() {
		engineOpts = append(engineOpts, search.WithSpellChecker(
			keyword.NewSpellChecker(index, keyword.WithTokenizer(analyzer.QueryTerms))))
	}
	engine := search.NewEngine(index, ranker, profiles, &cfg.Search, engineOpts...)

	return &Components{
		Catalog:  catalog,
		Index:    index,
		Engine:   engine,
		Registry: registry,
	}, nil
}

func printUsage() {
	fmt.Println(`postsearch - Social media post search with re-ranking

Usage:
  postsearch server [flags]            Start the HTTP server
  postsearch search [flags] <query>    Search posts
  postsearch index [flags] [corpus]    Build a new index generation from a corpus directory
  postsearch status [flags]            Show the served index and recent builds
  postsearch version                   Show version
  postsearch help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/postsearch/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string      Config file path (direct mode)
  --server string      Server URL (default: http://localhost:8080). Use --server "" to read the index directly.
  --profile string     Weight profile: relevance (default), upvotes, time, or a custom profile
  --limit int          Number of results (default: 10)
  --candidates int     Lexical candidates to re-rank (default from config)
  --output string      Output format: text, compact or json (default: text)

Index Flags:
  --config string    Config file path
  --server string    Ask a running server to rebuild from its corpus directory

Status Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --builds int       Number of recent builds to list (default: 5)
  --output string    Output format: text or json (default: text)

Examples:
  postsearch server
  postsearch index ./data/posts
  postsearch index --server http://localhost:8080
  postsearch search "happy dog"
  postsearch search --profile upvotes --output json pasta
  postsearch status --output json`)
}
