package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/vaifllc/youyesyou-core/util"
)

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// SlackNotifier posts events as simple text messages to a slack "incoming
// webhook". The webhook must already be configured in the slack workspace.
type SlackNotifier struct {
	Client     *http.Client
	WebhookURL string
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		Client:     util.RobustHTTPClient(),
		WebhookURL: webhookURL,
	}
}

func (s *SlackNotifier) Send(ctx context.Context, event string, payload map[string]any) error {
	body, err := json.Marshal(SlackWebhookBody{Text: formatMessage(event, payload)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func formatMessage(event string, payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "`%s`", event)
	for _, k := range keys {
		fmt.Fprintf(buf, " %s=%v", k, payload[k])
	}
	return buf.String()
}

// NoopNotifier discards every event. Used when no webhook is configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, event string, payload map[string]any) error {
	return nil
}
