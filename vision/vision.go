// Package vision translates text found in images: one stateless
// request/response call to a vision model, no session involved.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
)

// MaxImageBytes is enforced on the decoded image before any model
// call is dispatched.
const MaxImageBytes = 10 << 20

// Request describes one image translation.
type Request struct {
	Image          []byte
	MimeType       string
	TargetLanguage string
	SourceLanguage string
}

// TextBlock is one region of detected text with its translation.
type TextBlock struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
}

// Result is the model's structured answer.
type Result struct {
	DetectedLanguage string      `json:"detectedLanguage"`
	TextBlocks       []TextBlock `json:"textBlocks"`
	Summary          string      `json:"summary"`
	CulturalNote     string      `json:"culturalNote,omitempty"`
}

type Service struct {
	model *genai.GenerativeModel
	log   *log.Logger
}

func New(client *genai.Client, logger *log.Logger) *Service {
	model := client.GenerativeModel("gemini-1.5-flash")
	model.GenerationConfig.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"
	return &Service{model: model, log: logger}
}

func (s *Service) Translate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if len(req.Image) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	if req.TargetLanguage == "" {
		return nil, fmt.Errorf("target language required")
	}

	format := "png"
	if req.MimeType != "" {
		format = strings.TrimPrefix(req.MimeType, "image/")
	}

	resp, err := s.model.GenerateContent(ctx,
		genai.ImageData(format, req.Image),
		genai.Text(prompt(req.TargetLanguage, req.SourceLanguage)),
	)
	if err != nil {
		return nil, fmt.Errorf("vision model: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("vision model returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(text.String()), &result); err != nil {
		return nil, fmt.Errorf("parse vision response: %w", err)
	}

	s.log.Info("image translated",
		"detected", result.DetectedLanguage,
		"blocks", len(result.TextBlocks),
	)
	return &result, nil
}

func prompt(target, source string) string {
	var b strings.Builder
	b.WriteString("Find all text in this image and translate it")
	if source != "" {
		b.WriteString(" from " + source)
	}
	b.WriteString(" into " + target + ".\n")
	b.WriteString(`Respond with JSON only:
{
  "detectedLanguage": "<BCP-47 code of the source text>",
  "textBlocks": [{"original": "...", "translation": "..."}],
  "summary": "<one-sentence summary of what the image says>",
  "culturalNote": "<optional note on idioms or cultural context>"
}`)
	return b.String()
}
