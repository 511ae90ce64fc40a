package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/errs"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	maxAttempts    = 3
	baseBackoff    = 500 * time.Millisecond

	systemPrompt = "You are a biomedical research assistant. Answer strictly " +
		"from the provided abstracts and cite the PMID of every abstract you " +
		"draw on. If the abstracts do not answer the question, say so."
)

// Remote calls an OpenAI-compatible chat completions endpoint. Transient
// failures (network errors, 429, 5xx) are retried up to maxAttempts with
// exponential backoff; a Retry-After header overrides the computed delay.
type Remote struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *zap.Logger
}

// NewRemote builds a remote generator from cfg. The API key is passed in by
// the caller so the config file never holds secrets.
func NewRemote(cfg config.GeneratorConfig, apiKey string, logger *zap.Logger) *Remote {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       cfg.Model,
		temperature: cfg.TemperatureOrDefault(),
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends the prompt to the chat completions endpoint and returns the
// first choice. All attempts exhausting maps to GENERATION_FAILED.
func (r *Remote) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	const op = "generator.Remote.Generate"

	if err := opts.Validate(prompt); err != nil {
		return "", err
	}
	model := r.model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := r.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := r.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", errs.Wrap(errs.CodeGeneration, op, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			if retryAfter := retryAfterOf(lastErr); retryAfter > 0 {
				delay = retryAfter
			}
			r.logger.Debug("retrying generation",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", errs.Wrap(errs.CodeGeneration, op, ctx.Err())
			case <-time.After(delay):
			}
		}

		answer, err := r.call(ctx, body)
		if err == nil {
			return answer, nil
		}
		if ctx.Err() != nil {
			return "", errs.Wrap(errs.CodeGeneration, op, ctx.Err())
		}
		var re *requestError
		if asRequestError(err, &re) && !re.retryable {
			return "", errs.Wrap(errs.CodeGeneration, op, err)
		}
		lastErr = err
	}
	return "", errs.Wrap(errs.CodeGeneration, op,
		fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr))
}

func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// requestError carries enough of a failed HTTP exchange to decide whether a
// retry can help.
type requestError struct {
	status     int
	message    string
	retryable  bool
	retryAfter time.Duration
}

func (e *requestError) Error() string {
	if e.status > 0 {
		return fmt.Sprintf("http %d: %s", e.status, e.message)
	}
	return e.message
}

func asRequestError(err error, target **requestError) bool {
	re, ok := err.(*requestError)
	if ok {
		*target = re
	}
	return ok
}

func retryAfterOf(err error) time.Duration {
	var re *requestError
	if asRequestError(err, &re) {
		return re.retryAfter
	}
	return 0
}

func (r *Remote) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &requestError{message: err.Error(), retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &requestError{message: err.Error(), retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		re := &requestError{
			status:    resp.StatusCode,
			message:   strings.TrimSpace(string(respBody)),
			retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
				re.retryAfter = time.Duration(secs) * time.Second
			}
		}
		return "", re
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &requestError{message: fmt.Sprintf("malformed response: %v", err)}
	}
	if parsed.Error != nil {
		return "", &requestError{message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", &requestError{message: "response contains no choices"}
	}
	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &requestError{message: "empty completion", retryable: true}
	}
	return content, nil
}
