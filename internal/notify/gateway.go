package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewaySink hands deliveries to the platform adapter over HTTP. The
// adapter owns the actual chat connection; this core only posts what
// should be sent.
type GatewaySink struct {
	baseUrl    string
	token      string
	httpClient *http.Client
}

func NewGatewaySink(baseUrl, token string) *GatewaySink {
	return &GatewaySink{
		baseUrl:    baseUrl,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type deliveryRequest struct {
	UserID   string    `json:"user_id"`
	Content  string    `json:"content"`
	Controls *Controls `json:"controls,omitempty"`
}

type gatewayError struct {
	Error string `json:"error"`
}

func (s *GatewaySink) Deliver(ctx context.Context, userID, content string, controls *Controls) error {
	body, err := json.Marshal(deliveryRequest{
		UserID:   userID,
		Content:  content,
		Controls: controls,
	})
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseUrl+"/deliveries", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build request (gateway): %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver to %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		errorBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error body (gateway): %w", err)
		}

		var gwErr gatewayError
		if err := json.Unmarshal(errorBody, &gwErr); err == nil && gwErr.Error != "" {
			return fmt.Errorf("gateway error: %s", gwErr.Error)
		}
		return fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	return nil
}
