package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"voicetype/internal/domain"
)

// Transcriber uploads audio and walks the two-model transcription chain.
type Transcriber struct {
	client   *Client
	chain    []domain.ModelDescriptor
	language string
}

// NewTranscriber builds a transcriber. An empty language lets the service
// detect it.
func NewTranscriber(client *Client, chain []domain.ModelDescriptor, language string) *Transcriber {
	return &Transcriber{client: client, chain: chain, language: language}
}

type transcriptionResponse struct {
	Text *string `json:"text"`
}

// Transcribe uploads the audio at path with the fast model and retries the
// identical request once with the accurate model when rate limited.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (domain.Transcript, error) {
	if len(t.chain) == 0 {
		return domain.Transcript{}, domain.NewError(domain.ErrorCodeTranscription, "no transcription model configured", nil)
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		return domain.Transcript{}, domain.NewError(domain.ErrorCodeCapture, "failed to read audio buffer", err)
	}

	result := domain.Transcript{}
	for i, model := range t.chain {
		result.Model = model.ID
		result.Attempts++

		body, contentType, err := t.buildForm(model.ID, filepath.Base(path), audio)
		if err != nil {
			return result, domain.NewError(domain.ErrorCodeTranscription, "failed to build upload", err)
		}

		resp, err := t.client.post(ctx, transcriptionPath, contentType, body)
		if err != nil {
			return result, err
		}

		if resp.ok() {
			var parsed transcriptionResponse
			if err := json.Unmarshal(resp.body, &parsed); err != nil {
				return result, domain.NewError(domain.ErrorCodeTranscription, "unexpected transcription response", err)
			}
			if parsed.Text == nil || strings.TrimSpace(*parsed.Text) == "" {
				return result, domain.NewError(domain.ErrorCodeNoSpeech, "no speech detected", nil)
			}
			result.Text = strings.TrimSpace(*parsed.Text)
			return result, nil
		}

		if resp.rateLimited() {
			if i+1 < len(t.chain) {
				t.client.logger.Warn().
					Str("model", model.ID).
					Str("fallback", t.chain[i+1].ID).
					Msg("transcription rate limited, falling back")
				continue
			}
			return result, domain.NewError(domain.ErrorCodeRateLimited, resp.message(), nil)
		}

		return result, domain.NewError(
			domain.ErrorCodeTranscription,
			fmt.Sprintf("HTTP %d: %s", resp.status, resp.message()),
			nil,
		)
	}
	return result, domain.NewError(domain.ErrorCodeTranscription, "transcription chain exhausted", nil)
}

func (t *Transcriber) buildForm(model string, filename string, audio []byte) ([]byte, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := [][2]string{
		{"model", model},
		{"temperature", "0"},
		{"response_format", "json"},
	}
	if t.language != "" {
		fields = append(fields, [2]string{"language", t.language})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}
