package describer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"
	"time"

	apperrors "github.com/anime-shed/lecture-indexer-go/internal/errors"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	SystemInstruction = "You are a helpful assistant that is given frames from a lecture video. " +
		"You help identify what's on the screen so the student knows when to rewatch the lecture. " +
		"You should concisely describe what is on the screen."
	UserPrompt = "Describe what is shown in this image concisely."

	DefaultMaxTokens = 50
)

// ErrDisabled is returned by the describer used when no model is configured.
var ErrDisabled = errors.New("description model not configured")

// Description is the model's answer for one frame.
// Blocked is set when the model's content filter refused to answer.
type Description struct {
	Text    string
	Blocked bool
	Reason  string
}

// Describer produces a short description of a frame
type Describer interface {
	Describe(ctx context.Context, img image.Image) (Description, error)
}

// Config configures the OpenAI-compatible describer
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAIDescriber calls any OpenAI-compatible chat completion endpoint with vision support.
type OpenAIDescriber struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// New builds an OpenAI-compatible describer.
func New(cfg Config) *OpenAIDescriber {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &OpenAIDescriber{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

func (d *OpenAIDescriber) Describe(ctx context.Context, img image.Image) (Description, error) {
	ctx, span := otel.Tracer("describer").Start(ctx, "describer.Describe")
	defer span.End()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	dataURL, err := encodeDataURL(img)
	if err != nil {
		return Description{}, apperrors.NewDescriptionUnavailableError("encode frame", err)
	}

	req := openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemInstruction,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: UserPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		MaxTokens: d.maxTokens,
		// A zero temperature is dropped from the request body, so use the smallest non-zero value.
		Temperature: math.SmallestNonzeroFloat32,
	}

	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && isContentFilterCode(apiErr.Code) {
			span.SetAttributes(attribute.Bool("describer.blocked", true))
			reason := apiErr.Message
			if reason == "" {
				reason = "content_filter"
			}
			return Description{Blocked: true, Reason: reason}, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Description{}, apperrors.NewTimeoutError("description request timed out", err)
		}
		return Description{}, apperrors.NewDescriptionUnavailableError("description request failed", err)
	}

	if len(resp.Choices) == 0 {
		return Description{}, apperrors.NewDescriptionUnavailableError("no choices in response", nil)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		span.SetAttributes(attribute.Bool("describer.blocked", true))
		return Description{Blocked: true, Reason: string(choice.FinishReason)}, nil
	}

	return Description{Text: strings.TrimSpace(choice.Message.Content)}, nil
}

func isContentFilterCode(code any) bool {
	s, ok := code.(string)
	return ok && (s == "content_filter" || s == "content_policy_violation")
}

func encodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Disabled is used when no description model is configured.
type Disabled struct{}

func (Disabled) Describe(ctx context.Context, img image.Image) (Description, error) {
	return Description{}, ErrDisabled
}

// Marker renders a describer outcome as the annotation's description text.
func Marker(desc Description, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("description unavailable: %v", err)
	case desc.Blocked:
		return fmt.Sprintf("blocked: %s", desc.Reason)
	default:
		return desc.Text
	}
}
