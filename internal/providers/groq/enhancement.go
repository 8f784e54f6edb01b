package groq

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"voicetype/internal/catalog"
	"voicetype/internal/domain"
)

const (
	// MinEnhanceRunes is the shortest input worth a round trip.
	MinEnhanceRunes = 10

	enhanceTemperature = 0.2
	enhanceMaxTokens   = 2048
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Enhancer rewrites transcripts through an ordered model chain.
type Enhancer struct {
	client *Client
	chain  []domain.ModelDescriptor
	style  domain.Style
}

func NewEnhancer(client *Client, chain []domain.ModelDescriptor, style domain.Style) *Enhancer {
	return &Enhancer{client: client, chain: chain, style: style}
}

// Enhance returns the first non-empty rewrite produced by the chain. It
// never fails: short input, exhaustion and transport errors all yield the
// input unchanged with Applied set to false. A model that times out hands
// over to the next one; an unreachable endpoint or a done ctx ends the chain.
func (e *Enhancer) Enhance(ctx context.Context, text string) domain.Enhancement {
	result := domain.Enhancement{Text: text}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinEnhanceRunes {
		e.client.logger.Debug().Msg("transcript too short, skipping enhancement")
		return result
	}

	for _, model := range e.chain {
		result.Attempts++
		log := e.client.logger.With().Str("model", model.ID).Logger()

		resp, err := e.client.postJSON(ctx, completionPath, e.request(model, text))
		if err != nil {
			log.Warn().Err(err).Msg("enhancement request failed")
			if ctx.Err() != nil || (domain.IsConnectivity(err) && !timedOut(err)) {
				break
			}
			continue
		}
		if !resp.ok() {
			log.Warn().
				Int("status", resp.status).
				Bool("rate_limited", resp.rateLimited()).
				Str("error", resp.message()).
				Msg("enhancement model failed, trying next")
			continue
		}

		content := extractContent(resp.body)
		if content == "" {
			log.Warn().Msg("enhancement returned empty content, trying next")
			continue
		}

		result.Text = content
		result.Model = model.ID
		result.Applied = true
		return result
	}

	e.client.logger.Warn().Int("attempts", result.Attempts).Msg("enhancement chain exhausted, using raw transcript")
	return result
}

func (e *Enhancer) request(model domain.ModelDescriptor, text string) chatRequest {
	req := chatRequest{
		Model: model.ID,
		Messages: []chatMessage{
			{Role: "system", Content: e.style.Prompt},
			{Role: "user", Content: text},
		},
		Temperature: enhanceTemperature,
		MaxTokens:   enhanceMaxTokens,
		Stream:      false,
	}
	if e.style.ID == catalog.AssistantStyle && model.Has(domain.CapabilityLiveSearch) {
		req.Tools = []chatTool{{Type: "browser_search"}}
		req.ToolChoice = "auto"
	}
	return req
}

func extractContent(body []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return ""
	}
	return StripReasoning(*parsed.Choices[0].Message.Content)
}

// StripReasoning removes <think> blocks some models prepend to their answer.
// An unterminated block swallows the rest of the text.
func StripReasoning(content string) string {
	content = thinkBlock.ReplaceAllString(content, "")
	if idx := strings.Index(content, "<think>"); idx >= 0 {
		content = content[:idx]
	}
	if idx := strings.LastIndex(content, "</think>"); idx >= 0 {
		content = content[idx+len("</think>"):]
	}
	return strings.TrimSpace(content)
}
