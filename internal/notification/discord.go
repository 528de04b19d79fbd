// Package notification posts run outcomes to Discord webhooks.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forest-guardian/sentinel-prep/internal/properties"
)

const (
	colorRed    = 16711680
	colorGreen  = 65280
	colorOrange = 16753920
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Discord sends to one webhook for failures and one for successes. An empty
// URL disables that kind of message.
type Discord struct {
	ErrorURL   string
	SuccessURL string
	Client     *http.Client
}

// FromProperties reads the webhook URLs from configuration.
func FromProperties() *Discord {
	return &Discord{
		ErrorURL:   properties.DiscordErrorNotificationUrl(),
		SuccessURL: properties.DiscordSuccessNotificationUrl(),
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Discord) Error(ctx context.Context, run string, err error) error {
	if d == nil {
		return nil
	}
	return d.send(ctx, d.ErrorURL, DiscordEmbed{
		Title:       "🚨 " + run + " failed",
		Description: fmt.Sprintf("An error occurred: %s", err),
		Color:       colorRed,
	})
}

// Partial reports a run that finished with some failed batches.
func (d *Discord) Partial(ctx context.Context, run, summary string) error {
	if d == nil {
		return nil
	}
	return d.send(ctx, d.ErrorURL, DiscordEmbed{
		Title:       "⚠️ " + run + " finished with failures",
		Description: summary,
		Color:       colorOrange,
	})
}

func (d *Discord) Success(ctx context.Context, run, summary string) error {
	if d == nil {
		return nil
	}
	return d.send(ctx, d.SuccessURL, DiscordEmbed{
		Title:       "✅ " + run + " finished",
		Description: summary,
		Color:       colorGreen,
	})
}

func (d *Discord) send(ctx context.Context, url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}
	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}
