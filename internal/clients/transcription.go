package clients

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-orchestrator/internal/models"
)

// TranscriptionClient uploads finished audio segments for
// transcription. A failed call is non-fatal to the session: the
// segment is dropped and the next boundary tries again.
type TranscriptionClient struct {
	httpClient
}

// NewTranscriptionClient creates a transcription service client. The
// timeout is generous; transcription of a long utterance is slow.
func NewTranscriptionClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *TranscriptionClient {
	return &TranscriptionClient{newHTTPClient(baseURL, apiKey, timeout, log.With().Str("client", "transcription").Logger())}
}

// Transcribe sends one audio segment as a multipart upload and returns
// the recognized text, plus any warning the service attached (e.g. low
// confidence). An empty text with no error is valid silence.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte, mimeHint string) (models.TranscriptionResult, error) {
	var result models.TranscriptionResult

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="speech-segment.%s"`, segmentExtension(mimeHint)))
	if mimeHint != "" {
		header.Set("Content-Type", mimeHint)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return result, err
	}
	if _, err := part.Write(audio); err != nil {
		return result, err
	}
	if err := writer.Close(); err != nil {
		return result, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe-audio", body)
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("calling /transcribe-audio: %w", err)
	}
	defer resp.Body.Close()

	if err := c.decode(resp, "/transcribe-audio", &result); err != nil {
		return models.TranscriptionResult{}, err
	}
	return result, nil
}

func segmentExtension(mimeHint string) string {
	if strings.Contains(mimeHint, "mp4") {
		return "m4a"
	}
	return "webm"
}
