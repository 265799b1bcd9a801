// Package extract turns a betting-slate screenshot into structured bet
// candidates using the Gemini vision API.
//
// The model does the heavy lifting (units iconography, bet-type defaults,
// league header cleaning) via the system instruction; Normalize applies the
// same rules again as a safety net over the returned JSON.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const systemInstruction = `
You are an expert sports betting assistant specialized in Table Tennis.
Your task is to analyze an image of a betting slate and extract the structured betting data.

The image typically contains rows with:
1. Time (e.g., 1:45 p.m.)
2. Player Names (Two players)
3. Bet Type (Usually "UNDER", "OVER", or "SPLIT").
4. Indicators of confidence/units (Hammers, Stars, Nuclear symbols).

CRITICAL RULES:
1. **Units**:
   - Hammer icon = **1.5** units.
   - Nuclear/Radioactive icon = **2** units.
   - Star or no icon = **1** unit.
2. **Bet Type**:
   - If the text explicitly says "UNDER", "OVER", or "SPLIT", use that.
   - **IMPORTANT**: If NO bet type text is found next to the players, assume the bet is **"OVER"**.
3. **League**:
   - Extract the league header.
   - **CLEANING**: If the league starts with "International: ", remove "International: ". (e.g., "International: TT Elite Series" -> "TT Elite Series").
   - If "Czech: Czech Liga Pro" -> "Czech Liga Pro".

Extract this into a JSON list.
`

// RawBet is one extracted candidate before it becomes a stored bet.
type RawBet struct {
	League  string  `json:"league"`
	PlayerA string  `json:"playerA"`
	PlayerB string  `json:"playerB"`
	Time    string  `json:"time"`
	Type    string  `json:"type"`
	Units   float64 `json:"units"`
}

// dataURLPrefix strips "data:image/png;base64," style prefixes the browser
// attaches to uploads.
var dataURLPrefix = regexp.MustCompile(`^data:image/(png|jpeg|jpg|webp);base64,`)

// leaguePrefix matches the known "International: " / "<Country>: " league
// headers the slates carry.
var leaguePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z ]*:\s+`)

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an extraction client. model defaults to
// "gemini-2.5-flash" when empty.
func NewClient(apiKey, model string, requestsPerMinute int, logger *slog.Logger) *Client {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		apiKey:     apiKey,
		model:      model,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// request/response shapes for the generateContent call.

type generateRequest struct {
	SystemInstruction *content         `json:"system_instruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

// betListSchema constrains the model to the raw candidate shape.
var betListSchema = json.RawMessage(`{
	"type": "ARRAY",
	"items": {
		"type": "OBJECT",
		"properties": {
			"league":  {"type": "STRING"},
			"playerA": {"type": "STRING"},
			"playerB": {"type": "STRING"},
			"time":    {"type": "STRING"},
			"type":    {"type": "STRING"},
			"units":   {"type": "NUMBER"}
		},
		"required": ["league", "playerA", "playerB", "time", "type", "units"]
	}
}`)

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeSlate extracts the bet rows from a base64-encoded slate image.
// The whole batch succeeds or nothing is returned: any transport, API or
// decode error fails the call without partial results.
func (c *Client) AnalyzeSlate(ctx context.Context, base64Image string) ([]RawBet, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("extraction API key is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	image := dataURLPrefix.ReplaceAllString(strings.TrimSpace(base64Image), "")
	if image == "" {
		return nil, fmt.Errorf("empty image payload")
	}

	reqBody := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{MimeType: "image/png", Data: image}},
			{Text: "Extract the table tennis bets from this image."},
		}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   betListSchema,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if gr.Error != nil {
		return nil, fmt.Errorf("gemini error %d: %s", gr.Error.Code, gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	raw, err := ParseCandidates(gr.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Slate analyzed",
		"model", c.model, "bets", len(raw),
		"duration", time.Since(start).Round(time.Millisecond))
	return raw, nil
}

// ParseCandidates decodes and normalizes the model's JSON list.
func ParseCandidates(text string) ([]RawBet, error) {
	var raw []RawBet
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("decode extraction result: %w", err)
	}
	for i := range raw {
		raw[i] = Normalize(raw[i])
	}
	return raw, nil
}

// Normalize applies the slate conventions to one candidate: known league
// prefixes stripped, empty league/type/units replaced with their defaults
// ("Unknown League", "OVER", 1 unit).
func Normalize(r RawBet) RawBet {
	r.League = strings.TrimSpace(leaguePrefix.ReplaceAllString(strings.TrimSpace(r.League), ""))
	if r.League == "" {
		r.League = "Unknown League"
	}
	r.PlayerA = strings.TrimSpace(r.PlayerA)
	r.PlayerB = strings.TrimSpace(r.PlayerB)
	r.Time = strings.TrimSpace(r.Time)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	if r.Type == "" {
		r.Type = "OVER"
	}
	if r.Units <= 0 {
		r.Units = 1
	}
	return r
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
