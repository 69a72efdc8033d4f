package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Serdar715/pathguard/internal/config"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Reporter renders run results in one output format
type Reporter struct {
	format string
}

// New creates a new reporter with the specified format.
// Unknown formats fall back to JSON.
func New(format string) *Reporter {
	return &Reporter{format: strings.ToLower(format)}
}

// Render encodes result in the reporter's format
func (r *Reporter) Render(result *config.RunResult) ([]byte, error) {
	switch r.format {
	case "yaml", "yml":
		data, err := yaml.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return data, nil
	case "markdown", "md":
		return []byte(markdown(result)), nil
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return data, nil
	}
}

// Generate writes the rendered report to outputPath
func (r *Reporter) Generate(result *config.RunResult, outputPath string) error {
	data, err := r.Render(result)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func markdown(result *config.RunResult) string {
	var b strings.Builder
	b.WriteString("# PathGuard Run Report\n\n")
	fmt.Fprintf(&b, "**Run:** %s\n", result.RunID)
	fmt.Fprintf(&b, "**Target:** %s\n", result.Target)
	if result.WAFDetected != "" {
		fmt.Fprintf(&b, "**WAF:** %s\n", result.WAFDetected)
	}
	fmt.Fprintf(&b, "**Date:** %s\n", result.StartTime.Format(time.RFC1123))
	fmt.Fprintf(&b, "**Duration:** %s\n", result.Duration)
	fmt.Fprintf(&b, "**Result:** %d passed, %d failed, %d errors, %d skipped\n\n",
		result.Passed, result.Failed, result.Errored, result.Skipped)

	if result.Aborted {
		fmt.Fprintf(&b, "> Run aborted: %s\n\n", result.AbortReason)
	}

	b.WriteString("## Cases\n\n")
	if len(result.Cases) == 0 {
		b.WriteString("_No cases executed._\n")
	}
	for i, c := range result.Cases {
		fmt.Fprintf(&b, "### %d. %s (%s)\n", i+1, c.Name, strings.ToUpper(string(c.Status)))
		fmt.Fprintf(&b, "- **Kind:** %s\n", c.Kind)
		fmt.Fprintf(&b, "- **Path:** `%s`\n", c.Path)
		if c.Failure != "" {
			fmt.Fprintf(&b, "- **Failure:** %s\n", c.Failure)
		}
		if c.Detail != "" {
			fmt.Fprintf(&b, "- **Detail:** %s\n", c.Detail)
		}
		if c.Observed != "" {
			fmt.Fprintf(&b, "- **Observed:** `%s`\n", c.Observed)
		}
		if c.Evidence != "" {
			fmt.Fprintf(&b, "- **Evidence:** `%s`\n", c.Evidence)
		}
		fmt.Fprintf(&b, "- **Elapsed:** %dms\n\n", c.ElapsedMs)
	}

	if len(result.Errors) > 0 {
		b.WriteString("## Infrastructure Errors\n\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}

// SendWebhook posts a short summary to a webhook (e.g. Discord/Slack).
// Nothing is sent for a clean run.
func SendWebhook(ctx context.Context, result *config.RunResult, webhookURL string) error {
	if webhookURL == "" || result.OK() {
		return nil
	}

	message := fmt.Sprintf("**PathGuard run %s**\nTarget: %s\nFailed: **%d** Errors: %d\nDuration: %s",
		result.RunID, result.Target, result.Failed, result.Errored, result.Duration)
	if result.Aborted {
		message += "\nAborted: " + result.AbortReason
	}

	shown := 0
	for _, c := range result.Cases {
		if c.Status != config.StatusFail || shown >= 5 {
			continue
		}
		if shown == 0 {
			message += "\n\n**Failures:**"
		}
		message += fmt.Sprintf("\n- [%s] %s", c.Failure, c.Name)
		shown++
	}

	payload, err := json.Marshal(map[string]string{"content": message, "text": message})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}
	log.Debug().Str("run_id", result.RunID).Msg("Webhook notification sent")
	return nil
}
