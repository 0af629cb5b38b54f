package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Fetch asks a running issuer for an ephemeral credential. This is
// the client half of the issuer contract.
func Fetch(ctx context.Context, client *http.Client, url string, req Request) (Credential, error) {
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Credential{}, fmt.Errorf("marshal token request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Credential{}, fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Credential{}, fmt.Errorf("token issuer: %s: %s", resp.Status, raw)
	}

	var cred Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	return cred, nil
}
