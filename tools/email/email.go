// Package email sends HTML mail through SendGrid.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KamdynS/agent-contrib/tools"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Status is the JSON reply the send_email tool gives the model.
type Status struct {
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Poster abstracts sendgrid.Client for tests.
type Poster interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Sender delivers one message from From to To.
type Sender struct {
	From   string
	To     string
	Client Poster
}

// NewSender uses the SendGrid API with apiKey.
func NewSender(apiKey, from, to string) *Sender {
	return &Sender{From: from, To: to, Client: sendgrid.NewSendClient(apiKey)}
}

// Send posts the message and maps the outcome to a Status.
func (s *Sender) Send(ctx context.Context, subject, htmlBody string) Status {
	if s.Client == nil {
		return Status{Status: "error", Message: errors.New("no SendGrid client").Error()}
	}
	msg := mail.NewV3MailInit(mail.NewEmail("", s.From), subject, mail.NewEmail("", s.To), mail.NewContent("text/html", htmlBody))
	resp, err := s.Client.SendWithContext(ctx, msg)
	if err != nil {
		return Status{Status: "error", Message: err.Error()}
	}
	switch resp.StatusCode {
	case 200, 201, 202:
		return Status{Status: "success", Code: resp.StatusCode}
	default:
		return Status{Status: "warning", Code: resp.StatusCode, Message: resp.Body}
	}
}

// Args are the send_email tool arguments.
type Args struct {
	Subject  string `json:"subject" jsonschema:"description=Email subject line" validate:"required"`
	HTMLBody string `json:"html_body" jsonschema:"description=Email body in HTML format" validate:"required"`
}

// NewTool exposes s as send_email.
func NewTool(s *Sender) tools.Tool {
	return tools.NewFunc("send_email", "Send an email with the given subject and HTML body",
		func(ctx context.Context, a Args) (Status, error) {
			return s.Send(ctx, a.Subject, a.HTMLBody), nil
		})
}

// Succeeded reports whether a send_email tool output is a success.
func Succeeded(out string) error {
	var st Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return fmt.Errorf("email: unexpected tool output %q", out)
	}
	if st.Status != "success" {
		return fmt.Errorf("email %s (code %d): %s", st.Status, st.Code, st.Message)
	}
	return nil
}
