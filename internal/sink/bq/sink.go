// Package bq implements the analytics sink on top of BigQuery streaming
// inserts, one row per canonical event.
package bq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const tableID = "events"

// Sink streams canonical events into <dataset>.events.
type Sink struct {
	client  *bigquery.Client
	dataset string
}

// eventRow is the BigQuery row schema for one canonical event. Params are
// stored as serialized JSON so the table never chases the payload schema.
type eventRow struct {
	EventID    string    `bigquery:"event_id"`
	EventName  string    `bigquery:"event_name"`
	Params     string    `bigquery:"params"`
	RecordedTS time.Time `bigquery:"recorded_ts"`
}

// New creates a BigQuery sink for the given project and dataset. opts are
// forwarded to the client; tests use them to point at a fake endpoint.
func New(ctx context.Context, projectID, dataset string, opts ...option.ClientOption) (*Sink, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bq: creating client: %w", err)
	}
	return &Sink{client: client, dataset: dataset}, nil
}

// Init implements sink.Sink. It creates the dataset and events table when
// missing; an already-existing dataset or table is not an error, so the
// call is safe to repeat.
func (s *Sink) Init(ctx context.Context) error {
	ds := s.client.Dataset(s.dataset)
	if err := ds.Create(ctx, nil); err != nil && !alreadyExists(err) {
		return fmt.Errorf("bq: creating dataset %s: %w", s.dataset, err)
	}

	schema := bigquery.Schema{
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "event_name", Type: bigquery.StringFieldType, Required: true},
		{Name: "params", Type: bigquery.StringFieldType},
		{Name: "recorded_ts", Type: bigquery.TimestampFieldType, Required: true},
	}
	if err := ds.Table(tableID).Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil && !alreadyExists(err) {
		return fmt.Errorf("bq: creating table %s.%s: %w", s.dataset, tableID, err)
	}
	return nil
}

// Record implements sink.Sink.
func (s *Sink) Record(ctx context.Context, eventName string, params map[string]any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("bq: encoding event %s: %w", eventName, err)
	}

	row := &eventRow{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		Params:     string(payload),
		RecordedTS: time.Now(),
	}
	if err := s.client.Dataset(s.dataset).Table(tableID).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("bq: inserting event %s: %w", eventName, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 409
}
