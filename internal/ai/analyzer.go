package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
)

// Analysis is the structured triage output for a ticket.
type Analysis struct {
	Summary       string                `json:"summary"`
	Priority      models.TicketPriority `json:"priority"`
	HelpfulNotes  string                `json:"helpfulNotes"`
	RelatedSkills []string              `json:"relatedSkills"`
}

// Analyzer produces a triage analysis for a ticket. A nil Analysis with a
// nil error means analysis was unavailable and the caller should fall back
// to defaults.
type Analyzer interface {
	Analyze(ctx context.Context, ticket *models.Ticket) (*Analysis, error)
}

// FallbackAnalysis is applied when no analysis could be produced, so a
// ticket always reaches a moderator in a workable state.
func FallbackAnalysis() *Analysis {
	return &Analysis{
		Summary:       "Summary unavailable.",
		Priority:      models.PriorityMedium,
		HelpfulNotes:  "AI analysis unavailable. Moderator can proceed manually.",
		RelatedSkills: []string{},
	}
}

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAnalyzer calls the Gemini generateContent endpoint and parses the
// JSON object out of the model reply.
type GeminiAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiAnalyzer(apiKey, model string) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewGeminiAnalyzerWithBaseURL is used by tests to point the analyzer at a
// stub server.
func NewGeminiAnalyzerWithBaseURL(apiKey, model, baseURL string) *GeminiAnalyzer {
	a := NewGeminiAnalyzer(apiKey, model)
	a.baseURL = strings.TrimRight(baseURL, "/")
	return a
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, ticket *models.Ticket) (*Analysis, error) {
	if a.apiKey == "" {
		return nil, nil
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(ticket)}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, a.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call analysis model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis model returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, nil
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	analysis := parseAnalysisText(text)
	if analysis == nil {
		logger.Warn("analysis reply was not parseable JSON", "ticketId", ticket.ID)
	}
	return analysis, nil
}

// parseAnalysisText extracts the JSON object from a model reply, tolerating
// a fenced ```json block or surrounding prose.
func parseAnalysisText(text string) *Analysis {
	candidate := text
	if start := strings.Index(text, "```json"); start >= 0 {
		rest := text[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate = rest[:end]
		} else {
			candidate = rest
		}
	} else if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			candidate = text[start : end+1]
		}
	}
	candidate = strings.TrimSpace(candidate)

	var analysis Analysis
	if err := json.Unmarshal([]byte(candidate), &analysis); err != nil {
		return nil
	}
	analysis.Priority = models.NormalizePriority(string(analysis.Priority))
	if analysis.RelatedSkills == nil {
		analysis.RelatedSkills = []string{}
	}
	return &analysis
}

func buildPrompt(ticket *models.Ticket) string {
	return fmt.Sprintf(`You are an expert AI assistant that processes technical support tickets.

Your job is to:
1. Summarize the issue.
2. Estimate its priority.
3. Provide helpful notes and resource links for a human moderator.
4. List relevant technical skills required.

IMPORTANT:
- Respond with only valid raw JSON.
- Do NOT include markdown, code fences, comments, or any extra formatting.
- The format must be a raw JSON object.

Analyze the following support ticket and provide a JSON object with:

- summary: A short 1-2 sentence summary of the issue.
- priority: One of "low", "medium", or "high".
- helpfulNotes: A detailed technical explanation that a moderator can use to solve this issue. Include useful external links and resources if possible.
- relatedSkills: An array of relevant skills required to solve the issue (e.g. ["React", "MongoDB"]).

Respond ONLY in this JSON format and do not include any other text or markdown in the answer:

{
  "summary": "Short summary of the ticket",
  "priority": "high",
  "helpfulNotes": "Here are useful tips...",
  "relatedSkills": ["React", "Node.js"]
}

---

Ticket information:

- Title: %s
- Description: %s`, ticket.Title, ticket.Description)
}
