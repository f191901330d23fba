package namegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"qiming/entity"
	"qiming/lib/apperr"
	"qiming/lib/sl"
)

type Config struct {
	Url         string
	Model       string
	Key         string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	TopP        float64
	PromptFile  string
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	hc       *http.Client
	conf     Config
	template string
	log      *slog.Logger
}

func NewClient(conf Config, logger *slog.Logger) *Client {
	log := logger.With(sl.Module("namegen"))

	template := defaultPromptTemplate
	if conf.PromptFile != "" {
		data, err := os.ReadFile(conf.PromptFile)
		if err != nil {
			log.Error("prompt template load failed, using built-in", sl.Err(err),
				slog.String("path", conf.PromptFile))
		} else {
			template = string(data)
			log.Info("prompt template loaded", slog.String("path", conf.PromptFile))
		}
	}

	if conf.Timeout <= 0 {
		conf.Timeout = 60 * time.Second
	}
	if conf.MaxTokens <= 0 {
		conf.MaxTokens = 3000
	}

	log.Info("ai client configured",
		slog.String("url", conf.Url),
		slog.String("model", conf.Model),
		sl.Secret("key", conf.Key),
		slog.Duration("timeout", conf.Timeout),
		slog.Int("max_tokens", conf.MaxTokens),
	)

	return &Client{
		hc:       &http.Client{Timeout: conf.Timeout},
		conf:     conf,
		template: template,
		log:      log,
	}
}

func (c *Client) Configured() bool {
	return c.conf.Key != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// batch requests count names in one completion call. Upstream failures come
// back as the typed AI errors; the generator's merge policy decides what a
// single failure costs.
func (c *Client) batch(ctx context.Context, params *entity.GenerateParams, count, batchId int) ([]entity.NameResult, error) {
	log := c.log.With(slog.Int("batch", batchId), slog.Int("count", count))

	body, err := json.Marshal(chatRequest{
		Model:       c.conf.Model,
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(c.template, params, count)}},
		Temperature: c.conf.Temperature,
		MaxTokens:   c.conf.MaxTokens,
		TopP:        c.conf.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.conf.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.conf.Url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.conf.Key)

	t1 := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			log.Error("completion request timed out", slog.Duration("timeout", c.conf.Timeout))
			return nil, apperr.AiTimeout()
		}
		log.Error("completion request failed", sl.Err(err))
		return nil, apperr.AiServiceError()
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	log.Debug("completion request finished",
		slog.String("status", resp.Status),
		slog.Float64("duration", time.Since(t1).Seconds()))

	if resp.StatusCode >= 400 {
		log.Error("completion endpoint returned error",
			slog.String("status", resp.Status),
			slog.String("body", string(raw)))
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, apperr.AiAuthFailed()
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, apperr.AiRateLimit()
		case resp.StatusCode >= 500:
			return nil, apperr.AiServiceError()
		default:
			return nil, apperr.AiError(resp.Status)
		}
	}

	var completion chatResponse
	if err = json.Unmarshal(raw, &completion); err != nil {
		log.Error("decode completion failed", sl.Err(err))
		return nil, apperr.AiParseError()
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		log.Error("completion content is empty")
		return nil, apperr.AiEmptyResponse()
	}

	names, err := parseNames(completion.Choices[0].Message.Content)
	if err != nil {
		log.Error("parse names failed", sl.Err(err),
			slog.String("content", truncate(completion.Choices[0].Message.Content, 500)))
		return nil, apperr.AiParseError()
	}

	log.Info("batch generated", slog.Int("names", len(names)))
	return names, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
