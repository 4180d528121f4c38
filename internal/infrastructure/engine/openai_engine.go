// Package engine provides analysis engine backends. Each backend satisfies
// analysis.Engine; the pipeline never depends on a concrete implementation.
package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/infrastructure/metrics"
)

const backendName = "openai"

const systemPrompt = "You are an engineering drawing analyst. Extract the " +
	"title block, drawing number, dimensions, parts list, and material " +
	"callouts from the drawing. Report dimension units as one of mm, cm, m, " +
	"inch and dimension types as one of length, width, height, radius, " +
	"diameter. Respond with JSON only."

// OpenAIEngine calls an OpenAI-compatible vision model to extract structured
// data from a drawing.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	schema *jsonschema.Schema
	log    zerolog.Logger
}

// NewOpenAIEngine builds the backend from configuration.
func NewOpenAIEngine(cfg *config.Config, log zerolog.Logger) (*OpenAIEngine, error) {
	if strings.TrimSpace(cfg.EngineAPIKey) == "" {
		return nil, errors.New("ANALYSIS_ENGINE_API_KEY is required for the openai engine")
	}

	clientCfg := openai.DefaultConfig(cfg.EngineAPIKey)
	if cfg.EngineBaseURL != "" {
		clientCfg.BaseURL = cfg.EngineBaseURL
	}

	schema, err := jsonschema.For[analysis.RawExtraction](nil)
	if err != nil {
		return nil, fmt.Errorf("build extraction schema: %w", err)
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.EngineModel,
		schema: schema,
		log:    log.With().Str("component", "openai-engine").Logger(),
	}, nil
}

// Analyze sends the drawing to the model and parses the structured reply.
func (e *OpenAIEngine) Analyze(ctx context.Context, req analysis.EngineRequest) (*analysis.RawExtraction, error) {
	report := func(pct int) {
		if req.Progress != nil {
			req.Progress(pct)
		}
	}

	userParts, err := buildUserParts(req)
	if err != nil {
		return nil, err
	}
	report(5)

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: userParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "drawing_extraction",
				Schema: e.schema,
				Strict: false,
			},
		},
	})
	if err != nil {
		metrics.RecordEngineCall(backendName, "error", time.Since(start).Seconds())
		return nil, classifyError(err)
	}
	metrics.RecordEngineCall(backendName, "success", time.Since(start).Seconds())
	report(80)

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", analysis.ErrEngineFailure)
	}

	var raw analysis.RawExtraction
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		e.log.Error().Err(err).Str("model", e.model).Msg("unparseable engine reply")
		return nil, fmt.Errorf("%w: unparseable reply: %v", analysis.ErrEngineFailure, err)
	}
	report(100)

	e.log.Debug().
		Str("file_id", req.File.ID).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("engine call finished")

	return &raw, nil
}

// buildUserParts renders the drawing for the model. Raster formats and PDFs
// go in as data URLs; DXF is ASCII and is inlined as text.
func buildUserParts(req analysis.EngineRequest) ([]openai.ChatMessagePart, error) {
	prompt := fmt.Sprintf("Analyze the engineering drawing %q.", req.File.Name)

	if req.File.Type == drawing.TypeDXF {
		return []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeText, Text: "DXF source:\n" + string(req.Data)},
		}, nil
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		req.File.MimeType, base64.StdEncoding.EncodeToString(req.Data))
	return []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
		{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
		},
	}, nil
}

// classifyError sorts backend failures into the retryable/terminal split the
// orchestrator acts on. Rate limits and 5xx are transient; other API errors
// mean the model rejected the content.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", analysis.ErrEngineUnavailable, err)
		}
		return fmt.Errorf("%w: %v", analysis.ErrEngineFailure, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	// Transport-level failure with no HTTP response.
	return fmt.Errorf("%w: %v", analysis.ErrEngineUnavailable, err)
}
