// Package catalog implements the course catalog API client. The catalog
// owns course definitions and tutor assignments; the scheduling core only
// reads which tutors may teach a course.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the catalog API client.
type ClientConfig struct {
	// BaseURL is the catalog API base URL.
	BaseURL string

	// APIKey authenticates this service against the catalog.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RetryAttempts is how many times a retryable request is attempted.
	RetryAttempts uint

	// RetryDelay is the base delay between attempts (backoff doubles it).
	RetryDelay time.Duration

	// Breaker configures the circuit breaker guarding the catalog.
	Breaker circuitbreaker.Config
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:       baseURL,
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
		Breaker:       circuitbreaker.DefaultConfig("catalog"),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the course catalog API client. It implements
// scheduling.AssignmentLookup.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a new catalog API client.
func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.Breaker.OnStateChange = func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		breaker: circuitbreaker.New(config.Breaker),
		logger:  logger,
	}
}

// GetTutorsForCourse returns the tutor ids assigned to a course, in the
// catalog's order. An unknown course yields an empty list.
func (c *Client) GetTutorsForCourse(ctx context.Context, courseID shared.CourseID) ([]shared.TutorID, error) {
	var dto courseTutorsDTO

	endpoint := fmt.Sprintf("/v1/courses/%s/tutors", url.PathEscape(courseID.String()))
	if err := c.getJSON(ctx, endpoint, &dto); err != nil {
		if shared.IsNotFound(err) {
			return []shared.TutorID{}, nil
		}
		return nil, err
	}

	tutors := make([]shared.TutorID, 0, len(dto.TutorIDs))
	for _, id := range dto.TutorIDs {
		tutorID, err := shared.NewTutorID(id)
		if err != nil {
			c.logger.Warn("catalog returned malformed tutor id",
				zap.String("course_id", courseID.String()),
				zap.String("tutor_id", id))
			continue
		}
		tutors = append(tutors, tutorID)
	}
	return tutors, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

// getJSON performs a GET through the breaker with retries and decodes the
// response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	return retry.Do(
		func() error {
			return c.breaker.Execute(ctx, func(ctx context.Context) error {
				return c.doGet(ctx, endpoint, out)
			})
		},
		retry.Context(ctx),
		retry.Attempts(c.config.RetryAttempts),
		retry.Delay(c.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(attempt uint, err error) {
			c.logger.Warn("catalog request retry",
				zap.String("endpoint", endpoint),
				zap.Uint("attempt", attempt+1),
				zap.Error(err))
		}),
	)
}

func (c *Client) doGet(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.WrapError("catalog", "get", shared.ErrExternalService,
			"catalog request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("catalog request",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return shared.WrapError("catalog", "get", shared.ErrExternalService,
			"read catalog response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(body, out); err != nil {
			return shared.WrapError("catalog", "get", shared.ErrExternalService,
				"decode catalog response", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return shared.NewDomainError("catalog", "get", shared.ErrNotFound, "resource not found")
	case resp.StatusCode >= 500:
		return shared.NewDomainError("catalog", "get", shared.ErrExternalService,
			fmt.Sprintf("catalog returned %d: %s", resp.StatusCode, errorMessage(body)))
	default:
		return shared.NewDomainError("catalog", "get", shared.ErrInvalidInput,
			fmt.Sprintf("catalog rejected request with %d: %s", resp.StatusCode, errorMessage(body)))
	}
}

// isRetryable keeps retries to transient failures: transport errors and 5xx.
// A 404 or a 4xx will not change on a second attempt, and an open breaker
// should not be hammered.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case shared.IsNotFound(err), shared.IsValidation(err):
		return false
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return false
	}
	return true
}

func errorMessage(body []byte) string {
	var e errorDTO
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return "unparseable error body"
	}
	return e.Message
}
