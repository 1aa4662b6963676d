package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/reparigo/reparigo/backend/internal/seo"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

var (
	errMissingBaseURL    = errors.New("generation endpoint url required")
	errUnsuccessful      = errors.New("generation response reported failure")
	errIncompleteContent = errors.New("generation response missing content fields")
	// ErrInvalidClientConfig indicates the client configuration is unusable.
	ErrInvalidClientConfig = errors.New("generation: invalid client config")
)

// ClientConfig bundles configuration for the generation boundary client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client calls the external AI text-generation service over HTTP. The
// service is an opaque request/response boundary; any transport error,
// non-success status, failure flag or incomplete payload is surfaced as an
// error and nothing else is retried here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient constructs a boundary client with validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientConfig, errMissingBaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

type generationRequestPayload struct {
	City          string  `json:"city"`
	ServiceType   string  `json:"serviceType"`
	RepairerCount int     `json:"repairerCount"`
	AverageRating float64 `json:"averageRating"`
}

type generationResponsePayload struct {
	Success bool                     `json:"success"`
	Content generationContentPayload `json:"content"`
	Model   string                   `json:"model"`
}

type generationContentPayload struct {
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	H1              string `json:"h1"`
	Paragraph1      string `json:"paragraph1"`
	Paragraph2      string `json:"paragraph2"`
}

// GenerateContent implements seo.Generator against the remote service.
func (c *Client) GenerateContent(ctx context.Context, request seo.GenerationRequest) (seo.GeneratedContent, error) {
	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generationRequestPayload{
		City:          request.City,
		ServiceType:   request.ServiceType,
		RepairerCount: request.RepairerCount,
		AverageRating: request.AverageRating,
	})
	if err != nil {
		return seo.GeneratedContent{}, err
	}

	httpRequest, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return seo.GeneratedContent{}, err
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return seo.GeneratedContent{}, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return seo.GeneratedContent{}, fmt.Errorf("generation request returned status %d", response.StatusCode)
	}

	var payload generationResponsePayload
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return seo.GeneratedContent{}, fmt.Errorf("decode generation response: %w", err)
	}

	if !payload.Success {
		return seo.GeneratedContent{}, errUnsuccessful
	}
	if hasEmptyField(payload.Content) {
		c.logger.Debug("generation response incomplete",
			zap.String("city", request.City),
			zap.String("service_type", request.ServiceType))
		return seo.GeneratedContent{}, errIncompleteContent
	}

	return seo.GeneratedContent{
		Title:           payload.Content.Title,
		MetaDescription: payload.Content.MetaDescription,
		H1Title:         payload.Content.H1,
		Paragraph1:      payload.Content.Paragraph1,
		Paragraph2:      payload.Content.Paragraph2,
		Model:           payload.Model,
	}, nil
}

func hasEmptyField(content generationContentPayload) bool {
	fields := []string{
		content.Title,
		content.MetaDescription,
		content.H1,
		content.Paragraph1,
		content.Paragraph2,
	}
	for _, field := range fields {
		if strings.TrimSpace(field) == "" {
			return true
		}
	}
	return false
}
