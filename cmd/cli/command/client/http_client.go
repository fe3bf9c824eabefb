package client

// http_client.go talks to a peer's local API and to the session server's admin API.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"darwinawards/internal/microservices/http-api/dto"
	"darwinawards/internal/microservices/http-api/service"
	"darwinawards/internal/settings"
)

// ErrNoMessage is returned when a posted death could not be classified.
var ErrNoMessage = errors.New("no cause of death could be determined")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// do sends body as JSON and decodes the response into out when both are set.
func (c *HTTPClient) do(method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Login exchanges admin credentials for a token on the session server.
func (c *HTTPClient) Login(request *dto.LoginRequest) (*dto.AuthResponse, error) {
	var result dto.AuthResponse
	if _, err := c.do(http.MethodPost, "/admin/login", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PostDeath reports a death of the peer's player.
func (c *HTTPClient) PostDeath(request *dto.DeathSignalRequest) (*dto.DeathResponse, error) {
	var result dto.DeathResponse
	status, err := c.do(http.MethodPost, "/api/deaths", request, &result)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, ErrNoMessage
	}
	return &result, nil
}

func (c *HTTPClient) GetDeaths() ([]dto.DisplayEntryResponse, error) {
	var result struct {
		Deaths []dto.DisplayEntryResponse `json:"deaths"`
	}
	if _, err := c.do(http.MethodGet, "/api/deaths", nil, &result); err != nil {
		return nil, err
	}
	return result.Deaths, nil
}

func (c *HTTPClient) GetSettings() (*settings.Settings, error) {
	var result settings.Settings
	if _, err := c.do(http.MethodGet, "/api/settings", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateSettings changes the peer's local display settings.
func (c *HTTPClient) UpdateSettings(request *dto.UpdateSettingsRequest) (*settings.Settings, error) {
	var result settings.Settings
	if _, err := c.do(http.MethodPut, "/api/settings", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) GetSessionSettings() (*settings.Settings, error) {
	var result settings.Settings
	if _, err := c.do(http.MethodGet, "/admin/settings", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateSessionSettings changes the settings pushed to every peer.
func (c *HTTPClient) UpdateSessionSettings(request *dto.AdminSettingsRequest) (*settings.Settings, error) {
	var result settings.Settings
	if _, err := c.do(http.MethodPut, "/admin/settings", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ReloadCorpus() (*service.CorpusStatus, error) {
	var result service.CorpusStatus
	if _, err := c.do(http.MethodPost, "/admin/corpus/reload", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Revisions(limit int) ([]dto.RevisionResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/admin/corpus/revisions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result struct {
		Revisions []dto.RevisionResponse `json:"revisions"`
	}
	if _, err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Revisions, nil
}

func (c *HTTPClient) Health() (*dto.HealthResponse, error) {
	var result dto.HealthResponse
	if _, err := c.do(http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
