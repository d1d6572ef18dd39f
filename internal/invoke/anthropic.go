package invoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ecrowe/quorum/internal/config"
	"github.com/ecrowe/quorum/pkg/models"
)

// AnthropicInvoker runs workers against the Anthropic Messages API,
// either directly or through AWS Bedrock.
type AnthropicInvoker struct {
	client anthropic.Client
	// bedrock rewrites model names to inference-profile form.
	bedrock           bool
	maxTokens         int
	defaultConfidence float64
}

// NewAnthropicInvoker builds an invoker from the Anthropic config section.
func NewAnthropicInvoker(cfg config.AnthropicConfig) (*AnthropicInvoker, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	confidence := cfg.DefaultConfidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.8
	}

	return &AnthropicInvoker{
		client:            anthropic.NewClient(opts...),
		bedrock:           cfg.UseAWSBedrock,
		maxTokens:         maxTokens,
		defaultConfidence: confidence,
	}, nil
}

// Invoke sends the prompt to the worker's model with the worker's system
// prompt and temperature. All failures come back as *WorkerError so the
// scheduler can tell transient from permanent.
func (a *AnthropicInvoker) Invoke(ctx context.Context, worker *models.Worker, prompt string) (*Result, error) {
	model := anthropic.Model(worker.Model)
	if a.bedrock {
		model = translateModelForBedrock(model)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	params.System = []anthropic.TextBlockParam{
		{Text: systemText(worker)},
	}
	if worker.Temperature > 0 {
		params.Temperature = anthropic.Float(worker.Temperature)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &WorkerError{
			WorkerKey: worker.Key,
			Transient: classifyTransient(err),
			Err:       err,
		}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	if text.Len() == 0 {
		return nil, &WorkerError{
			WorkerKey: worker.Key,
			Transient: false,
			Err:       fmt.Errorf("empty response from model %s", worker.Model),
		}
	}

	return &Result{
		Text:       text.String(),
		Confidence: a.defaultConfidence,
	}, nil
}

// systemText frames the worker's persona, then appends its configured
// system prompt.
func systemText(worker *models.Worker) string {
	text := fmt.Sprintf("You are %s, a %s worker collaborating with other specialists on a shared project.", worker.Name, worker.Role)
	if worker.SystemPrompt != "" {
		text += "\n\n" + worker.SystemPrompt
	}
	return text
}

// classifyTransient decides whether an API failure is worth retrying.
// Rate limits, request timeouts, overloads, and server errors are
// transient; auth and validation failures are permanent.
func classifyTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 408, 409, 429:
			return true
		}
		return apierr.StatusCode >= 500
	}

	// Network-level failures with no HTTP status are assumed transient.
	return true
}

// translateModelForBedrock converts Anthropic model names to the Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	s := string(model)
	if strings.HasPrefix(s, "us.anthropic.") {
		return model
	}
	return anthropic.Model("us.anthropic." + s + "-v1:0")
}
