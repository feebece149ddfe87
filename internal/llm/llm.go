// Package llm wraps the Genkit generation API behind a small client
// that tolerates the malformed output real language models produce.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GenerateTimeout bounds every model call. The external service is
// assumed slow and unreliable; callers decide how to degrade.
const GenerateTimeout = 30 * time.Second

// maxResponseBytes limits response size before JSON parsing (64 KB).
const maxResponseBytes = 64 * 1024

// MalformedError indicates the model returned output that could not be
// parsed as the expected JSON shape. Raw carries a truncated sample for
// diagnostics.
type MalformedError struct {
	Raw string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed model output: %v (raw: %q)", e.Err, e.Raw)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Client calls the configured Gemini model through Genkit.
type Client struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// New creates a Client bound to the given model.
func New(g *genkit.Genkit, modelName string, logger *slog.Logger) (*Client, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{g: g, modelName: modelName, logger: logger}, nil
}

// Analyze sends the prompt and decodes the response into out, which
// must be a pointer to a JSON-decodable value. Code fences and prose
// around the JSON body are stripped before decoding. A response that
// still fails to decode yields a *MalformedError.
func (c *Client) Analyze(ctx context.Context, prompt string, out any) error {
	text, err := c.Complete(ctx, prompt)
	if err != nil {
		return err
	}

	text = extractJSON(stripCodeFences(text))
	if text == "" {
		return &MalformedError{Raw: "", Err: fmt.Errorf("empty response")}
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &MalformedError{Raw: truncate(text, 200), Err: err}
	}
	return nil
}

// Complete sends the prompt and returns the raw response text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	resp, err := genkit.Generate(genCtx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if len(text) > maxResponseBytes {
		return "", fmt.Errorf("model response too large: %d bytes", len(text))
	}
	return text, nil
}

// stripCodeFences removes ```json ... ``` wrapping from model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove opening fence (with optional language tag).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		// Remove closing fence.
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// extractJSON isolates the outermost JSON object or array from text the
// model may have wrapped in prose. Returns "" if no brackets are found.
func extractJSON(s string) string {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	end := strings.LastIndexByte(s, '}')
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		start = arrStart
		end = strings.LastIndexByte(s, ']')
	}
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

// truncate shortens s to at most n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
