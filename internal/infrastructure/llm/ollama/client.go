package ollama

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/medassist/chat-backend/internal/core/domain"
)

// Client generates model output through the Ollama HTTP API, either as a
// token stream or as a single response.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// GenerateStream starts a streamed generation and returns its event
// channel. The channel carries zero or more delta events followed by
// exactly one terminal event (Done with the assembled text, or Err) and is
// then closed.
func (c *Client) GenerateStream(ctx context.Context, req domain.GenerationRequest) (<-chan domain.GenerationEvent, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": buildGenerationPrompt(req),
		"stream": true,
	}
	if req.Attachment != nil && len(req.Attachment.Data) > 0 {
		reqBody["images"] = []string{base64.StdEncoding.EncodeToString(req.Attachment.Data)}
	}
	if options := profileOptions(req.Profile); len(options) > 0 {
		reqBody["options"] = options
	}

	resp, err := c.postStream(ctx, "/api/generate", reqBody, "generate stream")
	if err != nil {
		return nil, err
	}

	events := make(chan domain.GenerationEvent)
	go c.decodeStream(ctx, resp, events)
	return events, nil
}

func (c *Client) decodeStream(ctx context.Context, resp *http.Response, events chan<- domain.GenerationEvent) {
	defer close(events)
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
			Error    string `json:"error"`
		}
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			events <- domain.GenerationEvent{Err: fmt.Errorf("decode stream chunk: %w", err)}
			return
		}
		if chunk.Error != "" {
			events <- domain.GenerationEvent{Err: fmt.Errorf("ollama generate: %s", chunk.Error)}
			return
		}

		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if !sendDelta(ctx, events, domain.GenerationEvent{Delta: chunk.Response}) {
				return
			}
		}
		if chunk.Done {
			events <- domain.GenerationEvent{Done: true, Text: full.String()}
			return
		}
	}

	if err := scanner.Err(); err != nil {
		events <- domain.GenerationEvent{Err: fmt.Errorf("read generate stream: %w", err)}
		return
	}
	events <- domain.GenerationEvent{Err: fmt.Errorf("generate stream closed before done")}
}

// sendDelta aborts on context cancellation; terminal events are sent
// blocking instead, because consumers drain the channel until close and a
// timed-out generation must still surface its error event.
func sendDelta(ctx context.Context, events chan<- domain.GenerationEvent, event domain.GenerationEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// GenerateText runs a non-streamed generation, used for conversation titles.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func profileOptions(profile domain.PromptProfile) map[string]any {
	options := make(map[string]any, 2)
	if profile.MaxTokens > 0 {
		options["num_predict"] = profile.MaxTokens
	}
	if profile.Temperature > 0 {
		options["temperature"] = profile.Temperature
	}
	return options
}
