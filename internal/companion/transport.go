package companion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrRejected = errors.New("companion: frame rejected")

const maxReplyBody = 4 << 10

// HTTPTransport posts frames to <BaseURL>/deauth.
type HTTPTransport struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Send delivers one frame. The companion answers "OK" on success and
// "ERROR" when it cannot parse the frame, both with status 200.
func (t *HTTPTransport) Send(ctx context.Context, frame string) error {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/deauth", bytes.NewBufferString(frame))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post frame: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	if strings.EqualFold(strings.TrimSpace(string(body)), "ERROR") {
		return fmt.Errorf("%w: companion could not parse frame", ErrRejected)
	}
	return nil
}
