package email

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	code int
	err  error
	got  *mail.SGMailV3
}

func (f *fakePoster) SendWithContext(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.got = m
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.code, Body: "body"}, nil
}

func TestSendStatusMapping(t *testing.T) {
	ctx := context.Background()
	for _, code := range []int{200, 201, 202} {
		s := &Sender{From: "a@x.io", To: "b@x.io", Client: &fakePoster{code: code}}
		assert.Equal(t, Status{Status: "success", Code: code}, s.Send(ctx, "sub", "<p>hi</p>"))
	}
	s := &Sender{Client: &fakePoster{code: 401}}
	assert.Equal(t, Status{Status: "warning", Code: 401, Message: "body"}, s.Send(ctx, "sub", "x"))

	s = &Sender{Client: &fakePoster{err: errors.New("dial tcp")}}
	assert.Equal(t, Status{Status: "error", Message: "dial tcp"}, s.Send(ctx, "sub", "x"))
}

func TestToolBuildsHTMLMail(t *testing.T) {
	fp := &fakePoster{code: 202}
	tool := NewTool(&Sender{From: "from@x.io", To: "to@x.io", Client: fp})
	out, err := tool.Execute(context.Background(), `{"subject":"Report","html_body":"<h1>Hi</h1>"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","code":202}`, out)
	require.NoError(t, Succeeded(out))

	require.NotNil(t, fp.got)
	assert.Equal(t, "Report", fp.got.Subject)
	assert.Equal(t, "from@x.io", fp.got.From.Address)
	require.Len(t, fp.got.Content, 1)
	assert.Equal(t, "text/html", fp.got.Content[0].Type)

	assert.Error(t, Succeeded(`{"status":"warning","code":400}`))
}
