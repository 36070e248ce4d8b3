package journal

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"main/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const _pushbulletPushURL = "https://api.pushbullet.com/v2/pushes"

// Notifier pushes the end-of-day summary. A missing or unreachable
// Pushbullet account degrades to stdout logging, never to a failure.
type Notifier struct {
	client  *http.Client
	baseURL string
	token   string

	retries int
	backoff time.Duration
}

// NewNotifier builds a notifier for the given access token. An empty token
// yields a notifier that only logs.
func NewNotifier(client *http.Client, token string) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Notifier{
		client:  client,
		baseURL: _pushbulletPushURL,
		token:   token,
		retries: 5, // low, to avoid getting stuck in a loop past the report window
		backoff: 10 * time.Second,
	}
}

// PushNote sends one note, retrying connection failures a few times.
func (n *Notifier) PushNote(ctx context.Context, title, body string) error {
	if n.token == "" {
		logs.Infof("(push disabled) %s: %s", title, body)
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= n.retries; attempt++ {
		err := n.push(ctx, title, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logs.Warnf("push note failed (%d/%d), retrying in %s, err: %+v", attempt, n.retries, n.backoff, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.backoff):
		}
	}

	logs.Errorf("(push failed) unsent notification: %s: %s", title, body)
	return lastErr
}

func (n *Notifier) push(ctx context.Context, title, body string) error {
	payload, err := sonic.ConfigFastest.Marshal(map[string]string{
		"type":  "note",
		"title": title,
		"body":  body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Access-Token", n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "push note request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Wrap(exception.ErrInternal, "push note status").With("status", resp.StatusCode)
	}
	return nil
}
