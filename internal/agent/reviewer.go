// Package agent runs the code review conversation with the Anthropic
// API. It presents the heuristic analyzers as tools, drives the
// tool-use loop until the model produces its final text, and shields
// the API behind retry, circuit-breaker, and concurrency limits.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"

	"reviewd/internal/analyzer"
)

const (
	// MaxReviewIterations prevents infinite loops in tool-use conversations
	MaxReviewIterations = 10

	// maxTokens is the response budget for a single review turn.
	maxTokens = 4096
)

// Reviewer drives a full code review against the Anthropic API.
type Reviewer struct {
	client   *anthropic.Client
	registry *analyzer.Registry
	model    string
	tools    []anthropic.ToolUnionParam
	retry    RetryConfig
	breaker  *CircuitBreaker
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

// Options configures a Reviewer.
type Options struct {
	APIKey   string
	Model    string
	Registry *analyzer.Registry // nil means the built-in analyzer set
	Retry    *RetryConfig       // nil means DefaultRetryConfig
	Logger   *slog.Logger
}

// New creates a Reviewer. The API key is required.
func New(opts Options) (*Reviewer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	registry := opts.Registry
	if registry == nil {
		registry = analyzer.Default()
	}

	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))

	r := &Reviewer{
		client:   &client,
		registry: registry,
		model:    opts.Model,
		tools:    buildTools(registry),
		retry:    retry,
		logger:   logger,
	}

	if retry.CircuitBreakerEnabled {
		r.breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout, logger)
	}
	if retry.MaxConcurrentCalls > 0 {
		r.sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return r, nil
}

// Model returns the model the reviewer calls.
func (r *Reviewer) Model() string {
	return r.model
}

// Review analyzes a code snippet and returns the model's full review
// text. The caller parses the text into sections.
func (r *Reviewer) Review(ctx context.Context, code string) (string, error) {
	start := time.Now()

	// The system context rides in the first user message.
	history := []anthropic.MessageParam{
		anthropic.NewUserMessage(
			anthropic.NewTextBlock(systemPrompt + "\n\n---\n\n" + buildQuery(code)),
		),
	}

	for iteration := 0; iteration < MaxReviewIterations; iteration++ {
		var response *anthropic.Message
		err := r.retryWithBackoff(ctx, "review message", func(attemptCtx context.Context) error {
			resp, err := r.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
				Model:     anthropic.Model(r.model),
				MaxTokens: maxTokens,
				Messages:  history,
				Tools:     r.tools,
			})
			if err != nil {
				return err
			}
			response = resp
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("API call failed: %w", err)
		}

		if response.StopReason == "tool_use" {
			// Add assistant's response to history (includes tool use blocks)
			history = append(history, response.ToParam())

			var toolResults []anthropic.ContentBlockParamUnion
			for _, block := range response.Content {
				variant := block.AsAny()
				toolUse, ok := variant.(anthropic.ToolUseBlock)
				if !ok {
					continue
				}

				result, err := r.executeTool(ctx, toolUse.Name, toolUse.Input)
				if err != nil {
					r.logger.Warn("tool execution failed",
						"tool", toolUse.Name, "error", err)
					toolResults = append(toolResults, anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("Error: %v", err), true))
				} else {
					r.logger.Debug("tool executed", "tool", toolUse.Name)
					toolResults = append(toolResults, anthropic.NewToolResultBlock(toolUse.ID, result, false))
				}
			}

			if len(toolResults) == 0 {
				return "", fmt.Errorf("model requested tool use but no tool blocks were found")
			}

			history = append(history, anthropic.NewUserMessage(toolResults...))
			continue
		}

		// Final turn: concatenate the text blocks.
		var text string
		for _, block := range response.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		if text == "" {
			return "", fmt.Errorf("model returned an empty review (stop reason %q)", response.StopReason)
		}

		r.logger.Info("review complete",
			"model", r.model,
			"iterations", iteration+1,
			"duration", time.Since(start).Round(time.Millisecond))
		return text, nil
	}

	return "", fmt.Errorf("review did not complete within %d tool-use iterations", MaxReviewIterations)
}
