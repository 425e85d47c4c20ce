// Package push sends Pushover notifications.
package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KamdynS/agent-contrib/tools"
)

// Endpoint is the Pushover messages API.
const Endpoint = "https://api.pushover.net/1/messages.json"

// Notifier posts messages for one user.
type Notifier struct {
	Token    string
	User     string
	Endpoint string
	Client   *http.Client
}

// New returns a notifier for the given app token and user key.
func New(token, user string) *Notifier {
	return &Notifier{Token: token, User: user, Endpoint: Endpoint, Client: &http.Client{Timeout: 10 * time.Second}}
}

// Push sends text.
func (n *Notifier) Push(ctx context.Context, text string) error {
	form := url.Values{"token": {n.Token}, "user": {n.User}, "message": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pushover: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

// NewTool exposes n as send_push_notification. It answers "success" or a
// failure sentence.
func NewTool(n *Notifier) tools.Tool {
	return &pushTool{n: n}
}

type pushTool struct{ n *Notifier }

func (t *pushTool) Name() string { return "send_push_notification" }
func (t *pushTool) Description() string {
	return "Send a push notification to the user. Use when task is complete or urgent alert is needed."
}
func (t *pushTool) Schema() map[string]interface{} {
	return tools.InputSchema("The notification message to send")
}
func (t *pushTool) Execute(ctx context.Context, input string) (string, error) {
	if err := t.n.Push(ctx, input); err != nil {
		return "Failed to send notification: " + err.Error(), nil
	}
	return "success", nil
}
