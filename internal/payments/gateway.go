package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
)

const (
	gatewayProviderName   = "gateway"
	gatewayErrorReadLimit = 1024
	defaultGatewayTimeout = 10 * time.Second
)

var (
	errGatewayBaseURLRequired = errors.New("payment gateway base url is required")
	errGatewayKeyRequired     = errors.New("payment gateway key id and secret are required")
)

// Gateway opens a remote payment order that the client completes in checkout.
type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// IntentRequest is the amount and references sent to the gateway.
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	SourceID    string
	Notes       map[string]string
}

// Intent identifies the gateway-side order.
type Intent struct {
	RemoteOrderID string
	Provider      string
}

// GatewayOption configures optional REST gateway behavior.
type GatewayOption func(*RESTGateway)

// WithGatewayHTTPClient overrides the default HTTP client.
func WithGatewayHTTPClient(client *http.Client) GatewayOption {
	return func(g *RESTGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// RESTGateway talks to an orders-style gateway over JSON with basic auth.
type RESTGateway struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

// NewRESTGateway builds the gateway client from payments config.
func NewRESTGateway(cfg config.PaymentsConfig, opts ...GatewayOption) (*RESTGateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errGatewayBaseURLRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, errGatewayKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	g := &RESTGateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

func (g *RESTGateway) Name() string { return gatewayProviderName }

// CreateIntent posts a new remote order and returns its id.
func (g *RESTGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if g == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	body := struct {
		Amount   int64             `json:"amount"`
		Currency string            `json:"currency"`
		Receipt  string            `json:"receipt"`
		Notes    map[string]string `json:"notes,omitempty"`
	}{
		Amount:   req.AmountMinor,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal gateway order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, gatewayErrorReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"payment gateway rejected order").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	var apiResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode gateway order response")
	}
	if strings.TrimSpace(apiResp.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway order response missing id")
	}

	return &Intent{RemoteOrderID: apiResp.ID, Provider: gatewayProviderName}, nil
}
