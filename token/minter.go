package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"parlo/wire"
)

// Request is what clients send to mint an ephemeral credential.
type Request struct {
	Instructions      string   `json:"instructions"`
	Voice             string   `json:"voice,omitempty"`
	Modalities        []string `json:"modalities,omitempty"`
	InputAudioFormat  string   `json:"input_audio_format,omitempty"`
	OutputAudioFormat string   `json:"output_audio_format,omitempty"`
}

// Credential is the short-lived, capability-scoped session credential.
type Credential struct {
	ClientSecret  string             `json:"client_secret"`
	ExpiresAt     time.Time          `json:"expires_at"`
	SessionID     string             `json:"session_id"`
	SessionConfig wire.SessionConfig `json:"session_config"`
}

// Minter exchanges the long-lived secret for a session credential.
type Minter interface {
	Mint(ctx context.Context, req Request) (Credential, error)
}

// UpstreamMinter mints against the remote service's sessions endpoint
// using the long-lived API key, which never leaves this process.
type UpstreamMinter struct {
	URL    string
	APIKey string
	Model  string
	Client *http.Client
}

type upstreamResponse struct {
	ID           string `json:"id"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

func (m *UpstreamMinter) Mint(ctx context.Context, req Request) (Credential, error) {
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(map[string]any{
		"model":               m.Model,
		"instructions":        req.Instructions,
		"voice":               req.Voice,
		"modalities":          req.Modalities,
		"input_audio_format":  req.InputAudioFormat,
		"output_audio_format": req.OutputAudioFormat,
	})
	if err != nil {
		return Credential{}, fmt.Errorf("marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Credential{}, fmt.Errorf("mint session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Credential{}, fmt.Errorf("mint session: %s: %s", resp.Status, raw)
	}

	var upstream upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil {
		return Credential{}, fmt.Errorf("decode session response: %w", err)
	}

	return Credential{
		ClientSecret: upstream.ClientSecret.Value,
		ExpiresAt:    time.Unix(upstream.ClientSecret.ExpiresAt, 0),
		SessionID:    upstream.ID,
		SessionConfig: wire.SessionConfig{
			Instructions:      req.Instructions,
			Voice:             req.Voice,
			Modalities:        req.Modalities,
			InputAudioFormat:  req.InputAudioFormat,
			OutputAudioFormat: req.OutputAudioFormat,
		},
	}, nil
}
