// Package wire implements the JSON control-channel protocol spoken
// over the data channel. Every frame is an object with a discriminant
// "type" field. The server event set is closed: anything outside it
// decodes to an error that callers log and drop, because one bad frame
// must never take down a healthy session.
package wire

import (
	"encoding/json"
	"fmt"
)

// Client event types.
const (
	TypeSessionUpdate  = "session.update"
	TypeResponseCreate = "response.create"
	TypeResponseCancel = "response.cancel"
	TypeInputCommit    = "input_audio_buffer.commit"
	TypeInputClear     = "input_audio_buffer.clear"
	TypeInputAppend    = "input_audio_buffer.append"
)

// Server event types.
const (
	TypeSessionCreated      = "session.created"
	TypeSessionUpdated      = "session.updated"
	TypeSpeechStarted       = "input_audio_buffer.speech_started"
	TypeSpeechStopped       = "input_audio_buffer.speech_stopped"
	TypeInputTranscriptDone = "conversation.item.input_audio_transcription.completed"
	TypeOutputDelta         = "response.audio_transcript.delta"
	TypeOutputDone          = "response.audio_transcript.done"
	TypeResponseCreated     = "response.created"
	TypeResponseDone        = "response.done"
	TypeError               = "error"
	TypeRateLimits          = "rate_limits.updated"
)

// SessionConfig is the session.update payload and also what the token
// issuer echoes back as session_config.
type SessionConfig struct {
	Instructions      string   `json:"instructions,omitempty"`
	Voice             string   `json:"voice,omitempty"`
	Modalities        []string `json:"modalities,omitempty"`
	InputAudioFormat  string   `json:"input_audio_format,omitempty"`
	OutputAudioFormat string   `json:"output_audio_format,omitempty"`
}

// ClientEvent is a client-originated control frame.
type ClientEvent struct {
	Type    string         `json:"type"`
	Session *SessionConfig `json:"session,omitempty"`
	Audio   string         `json:"audio,omitempty"`
}

func SessionUpdate(cfg SessionConfig) ClientEvent {
	return ClientEvent{Type: TypeSessionUpdate, Session: &cfg}
}

func ResponseCreate() ClientEvent { return ClientEvent{Type: TypeResponseCreate} }
func ResponseCancel() ClientEvent { return ClientEvent{Type: TypeResponseCancel} }
func InputCommit() ClientEvent    { return ClientEvent{Type: TypeInputCommit} }
func InputClear() ClientEvent     { return ClientEvent{Type: TypeInputClear} }
func InputAppend(b64 string) ClientEvent {
	return ClientEvent{Type: TypeInputAppend, Audio: b64}
}

func (e ClientEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	return data, nil
}

// ServerEvent is one of the closed set of decoded server frames.
type ServerEvent interface {
	EventType() string
}

type SessionCreated struct {
	SessionID string
}

type SessionUpdated struct{}

type SpeechStarted struct {
	AudioStartMs int
}

type SpeechStopped struct {
	AudioEndMs int
}

// InputTranscriptDone carries the batched, already-final transcript of
// what the user said.
type InputTranscriptDone struct {
	Transcript string
}

// OutputDelta is one incremental fragment of the translated output.
type OutputDelta struct {
	Delta string
}

// OutputDone carries the authoritative final output text; it replaces
// whatever deltas accumulated, it is not appended.
type OutputDone struct {
	Transcript string
}

type ResponseCreated struct {
	ResponseID string
}

type ResponseDone struct {
	ResponseID string
}

type ErrorEvent struct {
	ErrType string
	Code    string
	Message string
}

type RateLimit struct {
	Name      string  `json:"name"`
	Limit     int     `json:"limit"`
	Remaining int     `json:"remaining"`
	ResetSecs float64 `json:"reset_seconds"`
}

type RateLimitsUpdated struct {
	Limits []RateLimit
}

func (SessionCreated) EventType() string      { return TypeSessionCreated }
func (SessionUpdated) EventType() string      { return TypeSessionUpdated }
func (SpeechStarted) EventType() string       { return TypeSpeechStarted }
func (SpeechStopped) EventType() string       { return TypeSpeechStopped }
func (InputTranscriptDone) EventType() string { return TypeInputTranscriptDone }
func (OutputDelta) EventType() string         { return TypeOutputDelta }
func (OutputDone) EventType() string          { return TypeOutputDone }
func (ResponseCreated) EventType() string     { return TypeResponseCreated }
func (ResponseDone) EventType() string        { return TypeResponseDone }
func (ErrorEvent) EventType() string          { return TypeError }
func (RateLimitsUpdated) EventType() string   { return TypeRateLimits }
