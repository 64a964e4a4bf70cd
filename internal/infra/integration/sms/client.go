package sms

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
)

var ErrNotConfigured = errors.New("sms provider not configured")

// Client talks to a JSON SMS gateway: POST {baseURL}/messages with a bearer
// token, answering with the provider message id.
type Client struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, from string) *Client {
	return &Client{
		apiKey:     apiKey,
		from:       from,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if c.apiKey == "" || c.baseURL == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(SendMessageRequest{From: c.from, To: to, Body: body})
	if err != nil {
		return "", fmt.Errorf("encode sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("sms api status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result SendMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode sms response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("sms api: %s (code %d)", result.Error.Message, result.Error.Code)
	}
	if result.ID == "" {
		return "", errors.New("sms api returned no message id")
	}
	return result.ID, nil
}
