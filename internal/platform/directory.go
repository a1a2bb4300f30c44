// Package platform holds HTTP clients for the chat platform's APIs.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// UserDirectory resolves user display names against the platform's
// user API.
type UserDirectory struct {
	baseUrl    string
	token      string
	httpClient *http.Client
}

func NewUserDirectory(baseUrl, token string) *UserDirectory {
	return &UserDirectory{
		baseUrl: baseUrl,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type userResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type directoryError struct {
	Error string `json:"error"`
}

// Lookup fetches the display name for a user id.
func (d *UserDirectory) Lookup(ctx context.Context, userID string) (string, error) {
	url := fmt.Sprintf("%s/users/%s", d.baseUrl, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request (lookup user): %w", err)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request (lookup user): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr directoryError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("directory returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decoding response (lookup user): %w", err)
	}

	if user.DisplayName != "" {
		return user.DisplayName, nil
	}
	if user.Name != "" {
		return user.Name, nil
	}
	return "", fmt.Errorf("directory returned no name for user %s", userID)
}
