package highlevel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

const (
	DefaultBaseURL = "https://rest.gohighlevel.com/v1"
	pageSize       = 20
	// limite de páginas para não girar para sempre com um cursor quebrado
	maxPages = 500
)

var ErrNotConfigured = errors.New("highlevel não configurado")

// StatusError é uma resposta não-2xx da API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("highlevel respondeu %d: %s", e.Status, e.Body)
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client fala com a API de uma location do HighLevel.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 10 * time.Second
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 40 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

func (c *Client) ListPipelines(ctx context.Context) ([]entity.Pipeline, error) {
	var resp pipelinesResponse
	if err := c.get(ctx, "pipelines/", &resp); err != nil {
		return nil, fmt.Errorf("erro ao listar pipelines: %w", err)
	}
	out := make([]entity.Pipeline, 0, len(resp.Pipelines))
	for _, p := range resp.Pipelines {
		out = append(out, p.toEntity())
	}
	return out, nil
}

// ListOpportunities percorre todas as páginas do pipeline.
func (c *Client) ListOpportunities(ctx context.Context, pipelineID string) ([]entity.Opportunity, error) {
	root := fmt.Sprintf("pipelines/%s/opportunities?limit=%d", url.PathEscape(pipelineID), pageSize)
	endpoint := root

	var out []entity.Opportunity
	seen := map[string]bool{}
	for page := 0; page < maxPages; page++ {
		var resp opportunitiesResponse
		if err := c.get(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("erro ao listar oportunidades (página %d): %w", page+1, err)
		}
		for _, o := range resp.Opportunities {
			out = append(out, o.toEntity())
		}

		meta := resp.Meta
		if meta.NextPageURL == "" || meta.StartAfterID == "" || seen[meta.StartAfterID] {
			return out, nil
		}
		seen[meta.StartAfterID] = true
		endpoint = root +
			"&startAfterId=" + url.QueryEscape(meta.StartAfterID) +
			"&startAfter=" + url.QueryEscape(meta.startAfter())
	}
	log.Printf("⚠️ HighLevel: limite de %d páginas atingido no pipeline %s", maxPages, pipelineID)
	return out, nil
}

func (c *Client) GetContact(ctx context.Context, contactID string) (*entity.Contact, error) {
	var resp contactResponse
	if err := c.get(ctx, "contacts/"+url.PathEscape(contactID), &resp); err != nil {
		return nil, fmt.Errorf("erro ao buscar contato %s: %w", contactID, err)
	}
	contact := resp.Contact.toEntity()
	if contact.ID == "" {
		contact.ID = contactID
	}
	return &contact, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]entity.User, error) {
	var resp usersResponse
	if err := c.get(ctx, "users/location", &resp); err != nil {
		return nil, fmt.Errorf("erro ao listar usuários: %w", err)
	}
	out := make([]entity.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		out = append(out, u.toEntity())
	}
	return out, nil
}

// get faz o GET com retry: erro de transporte, 429 e 5xx são repetidos com
// espera exponencial (ou o Retry-After do servidor).
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if c.apiKey == "" {
		log.Println("⚠️ HighLevel: API key não configurada")
		return ErrNotConfigured
	}
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		c.addAuthHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				log.Printf("🔄 HighLevel: falha de rede em %s, tentativa %d: %v", endpoint, attempt+1, err)
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if len(body) == 0 || out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("resposta inválida de %s: %w", endpoint, err)
			}
			return nil
		}

		if retryable(resp.StatusCode) && attempt < c.maxRetries {
			log.Printf("🔄 HighLevel: %s respondeu %d, tentativa %d", endpoint, resp.StatusCode, attempt+1)
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
