package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"meetsync/internal/config"
	"meetsync/internal/model"
)

// SummarizerService produces meeting summaries via the Gemini API. It is
// only ever invoked detached from a lifecycle operation, so it never fails:
// any error yields a fallback string instead.
type SummarizerService struct {
	config *config.AIConfig
	client *http.Client
}

// NewSummarizerService creates a new summarizer service
func NewSummarizerService(cfg *config.AIConfig) *SummarizerService {
	return &SummarizerService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// Summarize formats the transcript and asks Gemini for a summary. Missing
// credential, network failure or an empty response all fall back to a
// human-readable placeholder.
func (s *SummarizerService) Summarize(ctx context.Context, messages []model.ChatMessage) string {
	transcript := FormatTranscript(messages)

	if !s.config.IsEnabled() {
		log.Println("summarizer: GEMINI_API_KEY not set, using fallback summary")
		return fallbackSummary(messages)
	}

	prompt := fmt.Sprintf(`Summarize the following meeting chat transcript in a short paragraph.
Mention the main topics discussed and any decisions or action items.

Transcript:
%s`, transcript)

	summary, err := s.callGemini(ctx, prompt)
	if err != nil {
		log.Printf("summarizer: %v", err)
		return fallbackSummary(messages)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fallbackSummary(messages)
	}
	return summary
}

// FormatTranscript renders messages chronologically, one line per message,
// as "{name} ({time}): {text}".
func FormatTranscript(messages []model.ChatMessage) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%s): %s", msg.UserName, msg.Timestamp.Format("15:04"), msg.Text)
	}
	return b.String()
}

func fallbackSummary(messages []model.ChatMessage) string {
	senders := make(map[string]struct{})
	for _, msg := range messages {
		senders[msg.UserID] = struct{}{}
	}
	return fmt.Sprintf("Summary unavailable. The meeting had %d messages from %d participants.",
		len(messages), len(senders))
}

// callGemini makes a request to the Gemini API
func (s *SummarizerService) callGemini(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", fmt.Errorf("empty response from Gemini")
}
