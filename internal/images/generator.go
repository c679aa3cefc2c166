package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/darglk/chairai-sub002/internal/config"
)

var (
	// ErrGeneratorUnavailable signals the upstream image model is not
	// accepting requests right now (circuit open). Callers should surface a
	// retryable 503.
	ErrGeneratorUnavailable = errors.New("image generator temporarily unavailable")
	// ErrEmptyGeneration signals the upstream returned no image data.
	ErrEmptyGeneration = errors.New("image generation returned no data")
)

// GenerationOutput is the decoded result of one upstream generation call.
type GenerationOutput struct {
	Data  []byte
	Model string
	Size  string
}

// Generator produces image bytes for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*GenerationOutput, error)
}

// OpenAIGenerator calls the OpenAI images API. Outbound calls pass through a
// token-bucket throttle (politeness cap toward the provider) and a circuit
// breaker that opens after consecutive upstream failures.
type OpenAIGenerator struct {
	client   openai.Client
	model    string
	size     string
	timeout  time.Duration
	throttle *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewOpenAIGenerator builds a generator from the image generation config.
func NewOpenAIGenerator(logger *zap.Logger, cfg config.ImageGenConfig, timeout time.Duration) *OpenAIGenerator {
	rps := cfg.OutboundRPS
	if rps <= 0 {
		rps = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai-images",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &OpenAIGenerator{
		client:   openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		model:    cfg.Model,
		size:     cfg.Size,
		timeout:  timeout,
		throttle: rate.NewLimiter(rate.Limit(rps), 1),
		breaker:  breaker,
		logger:   logger,
	}
}

// Generate requests one image for the prompt and returns the decoded PNG.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (*GenerationOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("images: outbound throttle: %w", err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.client.Images.Generate(ctx, openai.ImageGenerateParams{
			Prompt:         prompt,
			Model:          openai.ImageModel(g.model),
			N:              openai.Int(1),
			ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
			Size:           openai.ImageGenerateParamsSize(g.size),
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrGeneratorUnavailable
		}
		g.logger.Error("image generation call failed", zap.Error(err), zap.String("model", g.model))
		return nil, fmt.Errorf("images: generate: %w", err)
	}

	resp, ok := result.(*openai.ImagesResponse)
	if !ok || resp == nil || len(resp.Data) == 0 {
		return nil, ErrEmptyGeneration
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("images: decode b64 payload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyGeneration
	}

	return &GenerationOutput{
		Data:  data,
		Model: g.model,
		Size:  g.size,
	}, nil
}
