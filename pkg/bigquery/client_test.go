package bigquery

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/washfold-backend/pkg/config"
)

func TestRequiredTables(t *testing.T) {
	assert.Equal(t, []string{"order_events"}, requiredTables(config.BigQueryConfig{OrderEventsTable: " order_events "}))
	assert.Empty(t, requiredTables(config.BigQueryConfig{OrderEventsTable: "  "}))
}

func TestNewClientRejectsIncompleteConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "washfold", OrderEventsTable: "order_events"}, nil)
	assert.ErrorContains(t, err, "project id")

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{OrderEventsTable: "order_events"}, nil)
	assert.ErrorContains(t, err, "dataset")

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "washfold"}, nil)
	assert.ErrorContains(t, err, "table")
}

func TestProbeError(t *testing.T) {
	missing := probeError("table", "order_events", &googleapi.Error{Code: http.StatusNotFound})
	assert.EqualError(t, missing, `bigquery: table "order_events" does not exist`)

	cause := &googleapi.Error{Code: http.StatusForbidden}
	denied := probeError("dataset", "washfold", cause)
	assert.ErrorIs(t, denied, cause)

	assert.ErrorContains(t, probeError("table", "x", errors.New("timeout")), "timeout")
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	assert.ErrorIs(t, c.InsertRows(context.Background(), "order_events", []any{1}), errNotInitialized)
	assert.NoError(t, c.Close())
}
