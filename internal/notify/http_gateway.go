package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPGateway posts notification requests to a rendering/delivery service.
type HTTPGateway struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewHTTPGateway constructs a gateway client for the given endpoint.
func NewHTTPGateway(url string, log *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

type sendRequest struct {
	UseCase    UseCase           `json:"use_case"`
	Recipients []string          `json:"recipients"`
	Params     map[string]string `json:"params"`
}

// Send posts the notification request. Delivery past the gateway is
// asynchronous; a 2xx response only acknowledges acceptance.
func (g *HTTPGateway) Send(ctx context.Context, useCase UseCase, recipients []string, params map[string]string) error {
	body, err := json.Marshal(sendRequest{UseCase: useCase, Recipients: recipients, Params: params})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification gateway returned %d", resp.StatusCode)
	}
	g.log.Info("notification accepted",
		zap.String("use_case", string(useCase)),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}
