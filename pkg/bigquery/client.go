// Package bigquery holds the analytics dataset handle used by the
// analytics worker.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/multierr"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

const probeTimeout = 10 * time.Second

var errNotInitialized = errors.New("bigquery client not initialized")

// Client is bound to one dataset. The dataset and every table the worker
// writes to must already exist; schemas are managed outside the service.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	tables := requiredTables(cfg)
	switch {
	case project == "":
		return nil, errors.New("bigquery: gcp project id is required")
	case dataset == "":
		return nil, errors.New("bigquery: dataset is required")
	case len(tables) == 0:
		return nil, errors.New("bigquery: at least one table is required")
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: connect: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(dataset), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": dataset, "tables": tables}), "bigquery dataset verified")
	}
	return c, nil
}

func requiredTables(cfg config.BigQueryConfig) []string {
	var out []string
	if t := strings.TrimSpace(cfg.OrderEventsTable); t != "" {
		out = append(out, t)
	}
	return out
}

// Ping reads dataset and table metadata. Every missing table is reported.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return probeError("dataset", c.dataset.DatasetID, err)
	}
	var errs error
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			errs = multierr.Append(errs, probeError("table", name, err))
		}
	}
	return errs
}

func probeError(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("bigquery: %s %q does not exist", kind, name)
	}
	return fmt.Errorf("bigquery: read %s %q: %w", kind, name, err)
}

// InsertRows streams rows into table. Each row must be a struct pointer or
// implement bigquery.ValueSaver.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return errNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errors.New("bigquery: table name is required")
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}
