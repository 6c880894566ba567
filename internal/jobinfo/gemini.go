package jobinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.0-flash"
	extractionTimeout = 20 * time.Second
)

// GeminiExtractor implements Extractor against the Gemini API.
type GeminiExtractor struct {
	client    *genai.Client
	modelName string
}

// NewGeminiExtractor creates a GeminiExtractor for the Gemini API backend.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &GeminiExtractor{client: client, modelName: model}, nil
}

// Extract sends the job text to Gemini and parses the structured response.
// Returns a zero JobInfo and an error on any failure; the matcher treats
// that as "no structured info available".
func (g *GeminiExtractor) Extract(ctx context.Context, jobText string) (JobInfo, error) {
	if strings.TrimSpace(jobText) == "" {
		return JobInfo{}, errors.New("job text is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(buildPrompt(jobText)), nil)
	if err != nil {
		return JobInfo{}, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	return parseJobInfo(builder.String())
}

// parseJobInfo extracts the JSON object from a model response that may be
// wrapped in prose or code fences.
func parseJobInfo(raw string) (JobInfo, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return JobInfo{}, fmt.Errorf("no JSON object in response")
	}

	var info JobInfo
	if err := json.Unmarshal([]byte(raw[start:end+1]), &info); err != nil {
		return JobInfo{}, fmt.Errorf("unmarshalling job info: %w", err)
	}
	return info, nil
}
