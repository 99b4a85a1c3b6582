package notify

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

const (
	defaultWebhookTimeout = 10 * time.Second
	errorBodyLimit        = 512
)

// WebhookConfig controls how the push gateway is reached.
type WebhookConfig struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

// WebhookNotifier posts Expo-style push messages to an HTTP gateway.
type WebhookNotifier struct {
	url        string
	token      string
	httpClient httpDoer
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type pushMessage struct {
	To    string   `json:"to"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Data  pushData `json:"data"`
}

type pushData struct {
	Kind    string `json:"kind"`
	MatchID string `json:"matchId"`
}

// NewWebhookNotifier validates cfg and builds a notifier.
func NewWebhookNotifier(cfg WebhookConfig) (*WebhookNotifier, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("push webhook url is required")
	}
	var client httpDoer = cfg.HTTPClient
	if cfg.HTTPClient == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookNotifier{url: cfg.URL, token: cfg.Token, httpClient: client}, nil
}

// Notify posts one message; any non-2xx response is a *DeliveryError.
func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(pushMessage{
		To:    n.RecipientID,
		Title: n.Title,
		Body:  n.Body,
		Data:  pushData{Kind: string(n.Kind), MatchID: n.MatchID},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push to %s: %w", n.RecipientID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &DeliveryError{
			RecipientID: n.RecipientID,
			StatusCode:  resp.StatusCode,
			Message:     strings.TrimSpace(string(body)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
