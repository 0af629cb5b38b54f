package rtc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Negotiate performs the one-shot SDP exchange: POST the local offer,
// authenticated by the ephemeral credential as a bearer token, and
// return the remote answer as plain text.
func Negotiate(ctx context.Context, client *http.Client, url, credential, offerSDP string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("build negotiation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("negotiate session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read negotiation answer: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf(
			"negotiation rejected: %s: %s",
			resp.Status, strings.TrimSpace(string(body)),
		)
	}

	return string(body), nil
}
