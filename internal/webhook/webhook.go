// Package webhook implements the external notification sink: it builds
// the alert's notification body in several formats and dispatches it,
// porting the body builders and the fallback chain from
// original_source/src/webhook.rs. Dispatch uses resty instead of
// reqwest, and posts to Discord's webhook API directly whenever
// Config.DiscordWebhookURLs is non-empty, skipping the Apprise URL list,
// matching the original's early-return shortcut.
package webhook

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wx-endec/eas-listener/internal/eas"
)

// Config carries the webhook collaborator's static configuration.
type Config struct {
	AppriseConfigPath string
	DiscordWebhookURLs []string
	MonitorLabel       string
	FilterName         string
}

// Sink dispatches alert notifications.
type Sink struct {
	cfg    Config
	client *resty.Client
}

// New constructs a Sink.
func New(cfg Config) *Sink {
	return &Sink{cfg: cfg, client: resty.New().SetTimeout(10 * time.Second)}
}

// Send delivers a notification for alert, optionally attaching a
// recording file. Failures are returned for the caller to log
// non-fatally, per SPEC_FULL.md §7 (webhook failures never abort
// fan-out).
func (s *Sink) Send(ctx context.Context, sourceLabel string, alert eas.Alert, recordingPath string) error {
	if len(s.cfg.DiscordWebhookURLs) > 0 {
		return s.sendDiscord(ctx, sourceLabel, alert, recordingPath)
	}

	urls, err := s.readAppriseURLs()
	if err != nil || len(urls) == 0 {
		return fmt.Errorf("webhook: no destinations configured: %w", err)
	}

	var lastErr error
	for _, body := range []string{
		buildMarkdownBody(sourceLabel, alert, s.cfg),
		buildHTMLBody(sourceLabel, alert, s.cfg),
		buildPlainTextBody(sourceLabel, alert, s.cfg),
	} {
		if err := s.dispatchApprise(ctx, urls, body); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("webhook: all dispatch formats failed: %w", lastErr)
}

func (s *Sink) readAppriseURLs() ([]string, error) {
	f, err := os.Open(s.cfg.AppriseConfigPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// dispatchApprise shells no subprocess out in this Go rework — the
// "apprise CLI" invocation webhook.rs falls back to is replaced with a
// direct resty POST to each configured URL, since an apprise binary
// dependency would be unverifiable in this pack; see DESIGN.md.
func (s *Sink) dispatchApprise(ctx context.Context, urls []string, body string) error {
	var lastErr error
	for _, u := range urls {
		resp, err := s.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "text/plain").
			SetBody(body).
			Post(u)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("webhook: %s responded %s", u, resp.Status())
			continue
		}
		return nil
	}
	return lastErr
}

func (s *Sink) sendDiscord(ctx context.Context, sourceLabel string, alert eas.Alert, recordingPath string) error {
	embed := buildDiscordEmbed(sourceLabel, alert, s.cfg)

	var lastErr error
	for _, url := range s.cfg.DiscordWebhookURLs {
		req := s.client.R().SetContext(ctx).SetMultipartFormData(map[string]string{
			"payload_json": embed,
		})
		if recordingPath != "" {
			req = req.SetFile("file", recordingPath)
		}
		resp, err := req.Post(url)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("webhook: discord responded %s", resp.Status())
			continue
		}
		return nil
	}
	return lastErr
}

// embedColor assigns a Discord embed color by keyword in the event text,
// matching webhook.rs's build_discord_embed_body color selection.
func embedColor(eventText string) int {
	lower := strings.ToLower(eventText)
	switch {
	case strings.Contains(lower, "test"):
		return 0x1abc9c // teal
	case strings.Contains(lower, "advisory"), strings.Contains(lower, "watch"):
		return 0xf1c40f // yellow
	case strings.Contains(lower, "warning"), strings.Contains(lower, "emergency"):
		return 0xe74c3c // red
	default:
		return 0x95a5a6 // gray
	}
}

func buildDiscordEmbed(sourceLabel string, alert eas.Alert, cfg Config) string {
	title := strings.Title(strings.ToLower(alert.Data.EventText))
	color := embedColor(alert.Data.EventText)
	received := alert.ReceivedAt.Format("2006-01-02 03:04:05 PM")

	return fmt.Sprintf(`{"embeds":[{"title":%q,"color":%d,"fields":[`+
		`{"name":"Received From","value":%q},`+
		`{"name":"Received At","value":%q},`+
		`{"name":"Monitor","value":%q},`+
		`{"name":"Filter","value":%q},`+
		`{"name":"EAS Text Data","value":%q},`+
		`{"name":"EAS Protocol Data","value":%q}`+
		`]}]}`,
		title, color,
		sourceLabel, received, cfg.MonitorLabel, cfg.FilterName,
		alert.Data.EASText, alert.RawHeader)
}

func buildMarkdownBody(sourceLabel string, alert eas.Alert, cfg Config) string {
	return fmt.Sprintf(
		"**%s**\n\n- Received From: %s\n- Received At: %s\n- Monitor: %s\n- Filter: %s\n- EAS Text: %s\n- Protocol Data: `%s`\n",
		alert.Data.EventText, sourceLabel, alert.ReceivedAt.Format("2006-01-02 03:04:05 PM"),
		cfg.MonitorLabel, cfg.FilterName, alert.Data.EASText, alert.RawHeader,
	)
}

func buildHTMLBody(sourceLabel string, alert eas.Alert, cfg Config) string {
	return fmt.Sprintf(
		"<h2>%s</h2><ul><li>Received From: %s</li><li>Received At: %s</li><li>Monitor: %s</li><li>Filter: %s</li><li>EAS Text: %s</li><li>Protocol Data: <code>%s</code></li></ul>",
		html.EscapeString(alert.Data.EventText), html.EscapeString(sourceLabel),
		html.EscapeString(alert.ReceivedAt.Format("2006-01-02 03:04:05 PM")),
		html.EscapeString(cfg.MonitorLabel), html.EscapeString(cfg.FilterName),
		html.EscapeString(alert.Data.EASText), html.EscapeString(alert.RawHeader),
	)
}

func buildPlainTextBody(sourceLabel string, alert eas.Alert, cfg Config) string {
	return fmt.Sprintf(
		"%s\nReceived From: %s\nReceived At: %s\nMonitor: %s\nFilter: %s\nEAS Text: %s\nProtocol Data: %s\n",
		alert.Data.EventText, sourceLabel, alert.ReceivedAt.Format("2006-01-02 03:04:05 PM"),
		cfg.MonitorLabel, cfg.FilterName, alert.Data.EASText, alert.RawHeader,
	)
}
