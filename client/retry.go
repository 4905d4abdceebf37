package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// RetryTransport retries Bot API calls on flood waits, honouring the duration
// the server asks for. Transport errors and 5xx answers are retried only for
// methods that are safe to repeat; a send may already have been delivered.
type RetryTransport struct {
	Base    http.RoundTripper
	Retries int
	Wait    time.Duration
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}

	return t.Base
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for i := 0; i <= t.Retries; i++ {
		if i > 0 {
			if req, err = rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err = t.base().RoundTrip(req)

		repeatable := isRepeatable(req)

		if err != nil {
			if !repeatable || !t.sleep(req, t.Wait) {
				return nil, err
			}

			continue
		}

		if isServerFailure(resp.StatusCode) {
			if !repeatable || i == t.Retries || !t.sleep(req, t.Wait) {
				return resp, nil
			}

			_ = resp.Body.Close()
			continue
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(body))

		if readErr != nil {
			return resp, nil
		}

		var tgError tgbotapi.APIResponse

		if json.Unmarshal(body, &tgError) != nil || tgError.ErrorCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := t.Wait

		if tgError.Parameters != nil && tgError.Parameters.RetryAfter > 0 {
			wait = time.Duration(tgError.Parameters.RetryAfter) * time.Second
		}

		logrus.WithField("retryAfter", wait).Warn("bot api flood wait")

		if i == t.Retries || !t.sleep(req, wait) {
			return resp, nil
		}
	}

	return resp, err
}

func (t *RetryTransport) sleep(req *http.Request, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-req.Context().Done():
		return false
	case <-timer.C:
		return true
	}
}

func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.GetBody == nil {
		return req, nil
	}

	body, err := req.GetBody()

	if err != nil {
		return nil, err
	}

	clone := req.Clone(req.Context())
	clone.Body = body

	return clone, nil
}

// isRepeatable reports whether the Bot API method may run twice without a
// visible effect.
func isRepeatable(req *http.Request) bool {
	switch path.Base(req.URL.Path) {
	case "getMe", "editMessageText", "deleteMessage":
		return true
	default:
		return false
	}
}

func isServerFailure(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
