// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DefaultExpoPushURL is the Expo push API endpoint.
const DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

// ErrNoPushToken is returned by ExpoNotifier when the notification carries no token.
var ErrNoPushToken = errors.New("no push token")

// ExpoConfig configures the Expo push notifier.
type ExpoConfig struct {
	PushURL string        `json:"push_url"`
	Enabled bool          `json:"enabled"`
	Timeout time.Duration `json:"timeout"`

	// RatePerSecond and Burst bound outgoing requests. Zero disables limiting.
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
}

// ExpoMessage is one Expo push message.
type ExpoMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

// ExpoNotifier sends push notifications to the user's device via Expo.
type ExpoNotifier struct {
	pushURL string
	enabled bool
	client  *http.Client
	limiter *rate.Limiter
}

// NewExpoNotifier creates an Expo push notifier.
func NewExpoNotifier(config ExpoConfig) *ExpoNotifier {
	if config.PushURL == "" {
		config.PushURL = DefaultExpoPushURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RatePerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), burst)
	}

	return &ExpoNotifier{
		pushURL: config.PushURL,
		enabled: config.Enabled,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: limiter,
	}
}

// Name returns the notifier name.
func (n *ExpoNotifier) Name() string {
	return "expo"
}

// Enabled returns whether this notifier is enabled.
func (n *ExpoNotifier) Enabled() bool {
	return n.enabled && n.pushURL != ""
}

// BuildExpoMessage renders the push message for a notification.
func BuildExpoMessage(notification *Notification) ExpoMessage {
	return ExpoMessage{
		To:    notification.PushToken,
		Title: "Security alert",
		Body:  "We detected unusual activity: " + string(notification.Reason),
		Sound: "default",
	}
}

// Send delivers one push message.
func (n *ExpoNotifier) Send(ctx context.Context, notification *Notification) error {
	if notification.PushToken == "" {
		return ErrNoPushToken
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("expo rate limit wait: %w", err)
	}

	body, err := json.Marshal(BuildExpoMessage(notification))
	if err != nil {
		return fmt.Errorf("failed to marshal expo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.pushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create expo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send expo push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("expo push returned status %d", resp.StatusCode)
	}
	return nil
}
