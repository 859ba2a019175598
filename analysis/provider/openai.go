package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"golang.org/x/time/rate"
)

// OpenAI generates text through the Responses API of OpenAI or any compatible endpoint
// (Groq and friends via BaseURL).
type OpenAI struct {
	client          *openai.Client
	model           string
	temperature     float64
	maxOutputTokens int64
	limiter         *rate.Limiter
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: missing API key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries belong to the analysis pipeline, not the transport.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{
		client:          &client,
		model:           cfg.model(),
		temperature:     cfg.Temperature,
		maxOutputTokens: int64(cfg.MaxOutputTokens),
		limiter:         cfg.limiter(),
	}, nil
}

func (o *OpenAI) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}
	params := responses.ResponseNewParams{
		Model:           o.model,
		Instructions:    openai.String(systemPrompt),
		Temperature:     openai.Float(o.temperature),
		MaxOutputTokens: openai.Int(o.maxOutputTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(userPrompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", classify("openai", err)
	}
	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", &CallError{Provider: "openai", Kind: KindEmpty, Err: errors.New("empty output text")}
	}
	return out, nil
}
