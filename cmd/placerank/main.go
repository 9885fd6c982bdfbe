// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/placerank"
	"github.com/poiesic/placerank/benchmark"
	"github.com/poiesic/placerank/config"
	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/expansion"
	"github.com/poiesic/placerank/httpapi"
	"github.com/poiesic/placerank/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "placerank",
		Usage: "Rank property listings by relevance and guest sentiment",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"PLACERANK_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index a listings CSV file (optionally gzipped)",
				Action: indexCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:     "listings",
						Usage:    "Path to the listings CSV",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent indexing workers",
					},
				),
			},
			{
				Name:   "import-reviews",
				Usage:  "Import a classified review snapshot into the review store",
				Action: importReviewsCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:     "snapshot-file",
						Usage:    "Path to the JSON sentiment snapshot to import",
						Required: true,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "fields",
						Usage: "Comma separated fields to search (name, room_type, description, neighborhood_overview)",
					},
					&cli.StringFlag{
						Name:  "room-type",
						Usage: "Keep only listings of this room type",
					},
					&cli.StringFlag{
						Name:  "sentiment",
						Usage: `Requested sentiment tags, e.g. "joy not anger"`,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of results to show (defaults to the configured page size)",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of results to skip",
					},
				),
			},
			{
				Name:      "expand",
				Usage:     "Show the expanded form of a query",
				ArgsUsage: "QUERY",
				Action:    expandCommand,
				Flags: append(engineFlags(),
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "List the accepted candidates and their similarity per word",
					},
				),
			},
			{
				Name:      "correct",
				Usage:     "Suggest a spelling correction for a query",
				ArgsUsage: "QUERY",
				Action:    correctCommand,
				Flags:     engineFlags(),
			},
			{
				Name:   "sentiment",
				Usage:  "Show the review history and sentiment of a listing",
				Action: sentimentCommand,
				Flags: append(engineFlags(),
					&cli.Int64Flag{
						Name:     "listing",
						Usage:    "Listing id",
						Required: true,
					},
				),
			},
			{
				Name:   "benchmark",
				Usage:  "Measure retrieval quality of model variants on a query set",
				Action: benchmarkCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:     "queries",
						Usage:    "Path to the JSON benchmark query set",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "variant",
						Usage: "Variant to run (repeatable); all variants when omitted",
					},
				),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
					},
				),
			},
		},
	}
}

// engineFlags override configuration file values.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "index-path", Aliases: []string{"i"}, Usage: "Path to the bleve listing index"},
		&cli.StringFlag{Name: "snapshot", Usage: "Path to a JSON sentiment snapshot"},
		&cli.StringFlag{Name: "store", Usage: "Path to the BadgerDB review store directory"},
		&cli.StringFlag{Name: "strategy", Usage: "Scoring strategy (lexical, inline, rerank)"},
		&cli.StringFlag{Name: "policy", Usage: "Term policy (and, or)"},
		&cli.StringFlag{Name: "expansion", Usage: "Query expansion (none, thesaurus, generative)"},
		&cli.BoolFlag{Name: "autoexpand", Usage: "Search on expanded queries"},
		&cli.StringFlag{Name: "ai-host", Usage: "OpenAI-compatible host for embeddings and mask filling"},
		&cli.StringFlag{Name: "embedding-model", Usage: "Embedding model name"},
		&cli.StringFlag{Name: "masking-model", Usage: "Mask filling model name"},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := config.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	setString := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	setString("index-path", &cfg.Index.Path)
	setString("snapshot", &cfg.Sentiment.Snapshot)
	setString("store", &cfg.Sentiment.Store)
	setString("strategy", &cfg.Retrieval.Strategy)
	setString("policy", &cfg.Retrieval.TermPolicy)
	setString("expansion", &cfg.Expansion.Strategy)
	setString("embedding-model", &cfg.AI.EmbeddingModel)
	setString("masking-model", &cfg.AI.MaskingModel)
	setString("addr", &cfg.HTTP.Addr)
	if c.IsSet("ai-host") {
		cfg.AI.EmbeddingHost = c.String("ai-host")
		cfg.AI.MaskingHost = c.String("ai-host")
	}
	if c.IsSet("autoexpand") {
		cfg.Retrieval.Autoexpansion = c.Bool("autoexpand")
	}
	if c.IsSet("workers") {
		cfg.Index.Workers = c.Int("workers")
	}

	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func openEngine(c *cli.Context) (*placerank.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	engine, err := placerank.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func queryText(c *cli.Context) (string, error) {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return "", fmt.Errorf("a query is required")
	}
	return text, nil
}

func indexCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	n, err := engine.IndexListings(c.Context, c.String("listings"), c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("indexing failed after %d listings: %w", n, err)
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d listings into %s\n", n, engine.Config().Index.Path)
	return nil
}

func importReviewsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	manifest, changed, err := engine.ImportReviews(c.Context, c.String("snapshot-file"), c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if !changed {
		fmt.Fprintf(c.App.Writer, "Snapshot unchanged since %s, nothing imported\n", manifest.ImportedAt.Format("2006-01-02 15:04"))
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Imported %d reviews for %d listings\n", manifest.Reviews, manifest.Listings)
	return nil
}

func searchCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}
	q := core.Query{
		Text:          text,
		RoomType:      c.String("room-type"),
		SentimentTags: c.String("sentiment"),
	}
	if raw := c.String("fields"); raw != "" {
		if q.Fields, err = core.ParseSearchFields(raw); err != nil {
			return err
		}
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	model, err := engine.Model()
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	if limit <= 0 {
		limit = engine.Config().Retrieval.PageSize
	}

	res, err := model.Run(c.Context, q, limit, c.Int("offset"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if suggestion := model.Correct(c.Context, q); suggestion != "" && suggestion != text {
		fmt.Fprintf(w, "Did you mean: %s\n", suggestion)
	}
	if res.Executed != text {
		fmt.Fprintf(w, "Expanded query: %s\n", res.Executed)
	}
	fmt.Fprintf(w, "%d results\n", res.Total)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tid\tname\troom type\tscore")
	for i, r := range res.Hits {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.4f\n", c.Int("offset")+i+1, r.DocumentID, r.Name, r.RoomType, r.FinalScore)
	}
	return tw.Flush()
}

func expandCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	model, err := engine.Model()
	if err != nil {
		return err
	}
	expanded, err := model.Expand(c.Context, text)
	if err != nil {
		return fmt.Errorf("expansion failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, expanded)
	if !c.Bool("explain") {
		return nil
	}

	exp, err := engine.Expander(engine.ConfiguredVariant().Expansion)
	if err != nil {
		return err
	}
	explainer, ok := exp.(expansion.Explainer)
	if !ok {
		return nil
	}
	tokens, err := explainer.Explain(c.Context, text)
	if err != nil {
		return fmt.Errorf("expansion failed: %w", err)
	}
	for _, tok := range tokens {
		for _, cand := range tok.Candidates {
			fmt.Fprintf(c.App.Writer, "  %s -> %s (%.3f)\n", tok.Token, cand.Term, cand.Similarity)
		}
	}
	return nil
}

func correctCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	model, err := engine.Model()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, model.Correct(c.Context, core.Query{Text: text}))
	return nil
}

func sentimentCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	id := core.ListingID(c.Int64("listing"))
	report := engine.ListingSentiment(id)
	w := c.App.Writer
	if len(report.Reviews) == 0 {
		fmt.Fprintf(w, "Listing %d has no reviews\n", id)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "review\tdate\tscores")
	for _, r := range report.Reviews {
		scores := make([]string, len(r.Scores))
		for i, s := range r.Scores {
			scores[i] = s.Label + "=" + strconv.FormatFloat(s.Score, 'f', 3, 64)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Date.Format("2006-01-02"), strings.Join(scores, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "decayed: %s\nmean:    %s\n", formatVector(report.Decayed), formatVector(report.Mean))
	return nil
}

func formatVector(v core.SentimentVector) string {
	labels := make([]string, 0, len(v))
	for label := range v {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = label + "=" + strconv.FormatFloat(v[label], 'f', 3, 64)
	}
	return strings.Join(parts, " ")
}

func benchmarkCommand(c *cli.Context) error {
	queries, err := benchmark.LoadDatasetFile(c.String("queries"))
	if err != nil {
		return err
	}
	var variants []placerank.Variant
	for _, name := range c.StringSlice("variant") {
		v, err := placerank.LookupVariant(name)
		if err != nil {
			return err
		}
		variants = append(variants, v)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	_, err = engine.Benchmark(c.Context, queries, variants, c.App.Writer)
	return err
}

func serveCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	model, err := engine.Model()
	if err != nil {
		return err
	}
	metrics.Register()

	cfg := engine.Config()
	server := httpapi.NewServer(model, engine,
		httpapi.WithPageSize(cfg.Retrieval.PageSize),
		httpapi.WithLogger(slog.Default().With("component", "httpapi")))
	return httpapi.ListenAndServe(c.Context, cfg.HTTP, server.Handler(), slog.Default())
}
