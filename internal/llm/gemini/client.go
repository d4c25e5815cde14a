package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"resume-review-backend/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client implements llm.Client using the Gemini generateContent API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new Gemini client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Review makes a single generateContent call and normalizes the response.
// Network, HTTP, and timeout failures surface as llm.ErrProviderUnavailable;
// unusable content surfaces as llm.ErrInvalidResponse. No internal retry.
func (c *Client) Review(ctx context.Context, input llm.ReviewInput) (llm.Review, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: BuildPrompt(input)}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			ResponseMIMEType: "application/json",
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Review{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.Review{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	// Key goes in a header so transport errors, which embed the request
	// URL in their message, never carry the credential.
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Review{}, fmt.Errorf("%w: request timeout: %v", llm.ErrProviderUnavailable, err)
		}
		return llm.Review{}, fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Review{}, fmt.Errorf("%w: read response: %v", llm.ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return llm.Review{}, fmt.Errorf("%w: status %d: %s", llm.ErrProviderUnavailable, resp.StatusCode, snippet(body))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Review{}, fmt.Errorf("%w: response parse: %v", llm.ErrProviderUnavailable, err)
	}
	if parsed.Error != nil {
		return llm.Review{}, fmt.Errorf("%w: %s (%s)", llm.ErrProviderUnavailable, parsed.Error.Message, parsed.Error.Status)
	}
	if len(parsed.Candidates) == 0 {
		return llm.Review{}, fmt.Errorf("%w: response missing candidates", llm.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	contentText := strings.TrimSpace(text.String())
	if contentText == "" {
		return llm.Review{}, fmt.Errorf("%w: empty content", llm.ErrInvalidResponse)
	}

	return llm.ParseReview([]byte(contentText), c.model)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	const maxLen = 300
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

var _ llm.Client = (*Client)(nil)
