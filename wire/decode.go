package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks frames whose "type" is outside the closed
// server event set.
var ErrUnknownType = errors.New("unknown event type")

type envelope struct {
	Type    string `json:"type"`
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	AudioStartMs int         `json:"audio_start_ms"`
	AudioEndMs   int         `json:"audio_end_ms"`
	Transcript   string      `json:"transcript"`
	Delta        string      `json:"delta"`
	RateLimits   []RateLimit `json:"rate_limits"`
}

// Decode parses one inbound control frame. Malformed JSON or an
// unknown type yields an error; the frame carries no partial result.
func Decode(data []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode control frame: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode control frame: missing type field")
	}

	switch env.Type {
	case TypeSessionCreated:
		return SessionCreated{SessionID: env.Session.ID}, nil
	case TypeSessionUpdated:
		return SessionUpdated{}, nil
	case TypeSpeechStarted:
		return SpeechStarted{AudioStartMs: env.AudioStartMs}, nil
	case TypeSpeechStopped:
		return SpeechStopped{AudioEndMs: env.AudioEndMs}, nil
	case TypeInputTranscriptDone:
		return InputTranscriptDone{Transcript: env.Transcript}, nil
	case TypeOutputDelta:
		return OutputDelta{Delta: env.Delta}, nil
	case TypeOutputDone:
		return OutputDone{Transcript: env.Transcript}, nil
	case TypeResponseCreated:
		return ResponseCreated{ResponseID: env.Response.ID}, nil
	case TypeResponseDone:
		return ResponseDone{ResponseID: env.Response.ID}, nil
	case TypeError:
		return ErrorEvent{
			ErrType: env.Error.Type,
			Code:    env.Error.Code,
			Message: env.Error.Message,
		}, nil
	case TypeRateLimits:
		return RateLimitsUpdated{Limits: env.RateLimits}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
