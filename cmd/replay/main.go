package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/google/uuid"

	"github.com/dvloznov/storefront-analytics/internal/config"
	"github.com/dvloznov/storefront-analytics/internal/dispatch"
	"github.com/dvloznov/storefront-analytics/internal/events"
	"github.com/dvloznov/storefront-analytics/internal/ga4"
	"github.com/dvloznov/storefront-analytics/internal/logger"
	"github.com/dvloznov/storefront-analytics/internal/sink"
	"github.com/dvloznov/storefront-analytics/internal/sink/bq"
	"github.com/dvloznov/storefront-analytics/internal/sink/ga4mp"
)

// replay reads newline-delimited pixel events from a file and pushes them
// through the same map-then-dispatch path the relay server uses. Useful for
// local testing and backfills without a storefront.
func main() {
	cfg := config.FromEnv()

	var (
		file     = flag.String("file", "", "path to newline-delimited pixel events (required)")
		sinkKind = flag.String("sink", cfg.Sink, "analytics sink: ga4 or bigquery")
		debug    = flag.Bool("debug", cfg.Debug, "enable diagnostic logging")
	)
	flag.Parse()
	cfg.Sink = *sinkKind
	cfg.Debug = *debug

	log := logger.New(cfg.Debug)

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	var out sink.Sink
	switch cfg.Sink {
	case config.SinkBigQuery:
		bqSink, err := bq.New(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery sink")
		}
		defer bqSink.Close()
		out = bqSink
	default:
		out = ga4mp.NewClient(cfg.GA4MeasurementID, cfg.GA4APISecret, cfg.GA4Endpoint, "")
	}

	if err := out.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sink")
	}

	mapper := ga4.NewMapper(ga4.Settings{
		DefaultCurrency: cfg.DefaultCurrency,
		FallbackBrand:   cfg.FallbackBrand,
		IDPrefix:        cfg.IDPrefix,
	}, log)
	rules := mapper.Rules()
	dispatcher := dispatch.New(out, log)

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to open events file")
	}
	defer f.Close()

	var line, dispatched, skipped int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var evt events.PixelEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping malformed event")
			skipped++
			continue
		}
		if evt.ID == "" {
			evt.ID = uuid.NewString()
		}

		rule, ok := rules[evt.Name]
		if !ok {
			log.Debug().Int("line", line).Str("event_name", evt.Name).Msg("No mapping rule, skipping")
			skipped++
			continue
		}

		mapped, err := rule(&evt)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Str("event_name", evt.Name).Msg("Skipping unmappable event")
			skipped++
			continue
		}

		dispatcher.Dispatch(ctx, mapped)
		dispatched++
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed reading events file")
	}

	log.Info().
		Int("lines", line).
		Int("dispatched", dispatched).
		Int("skipped", skipped).
		Msg("Replay finished")
}
