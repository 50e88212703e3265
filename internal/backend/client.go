package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"sweetshop/internal/models"
)

// APIError is a response the backend answered with a non-success status.
// Transport failures (no response at all) are returned as plain wrapped
// errors instead; callers use AsAPIError to tell the two apart for
// messaging.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend responded %d", e.Status)
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Client talks to the remote sweets backend over HTTP. The gateway owns no
// business logic; every operation here is a single round-trip whose result
// the services reconcile into their local caches.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, "", req, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	return resp, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.RegisterRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, "", req, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	return resp, nil
}

// ListSweets fetches the public inventory collection. No token required.
func (c *Client) ListSweets(ctx context.Context) ([]models.Sweet, error) {
	var sweets []models.Sweet
	if err := c.do(ctx, http.MethodGet, "/api/sweets", nil, "", nil, &sweets); err != nil {
		return nil, err
	}
	return sweets, nil
}

func (c *Client) SearchSweets(ctx context.Context, token string, q models.SearchQuery) ([]models.Sweet, error) {
	query := url.Values{}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	if q.LowPrice != "" {
		query.Set("low_price", q.LowPrice)
	}
	if q.Name != "" {
		query.Set("name", q.Name)
	}

	var sweets []models.Sweet
	if err := c.do(ctx, http.MethodGet, "/api/sweets/search", query, token, nil, &sweets); err != nil {
		return nil, err
	}
	return sweets, nil
}

func (c *Client) AddSweet(ctx context.Context, token string, input models.SweetInput) (models.SweetPatch, error) {
	var patch models.SweetPatch
	if err := c.do(ctx, http.MethodPost, "/api/sweets/addSweets", nil, token, input, &patch); err != nil {
		return models.SweetPatch{}, err
	}
	return patch, nil
}

func (c *Client) UpdateSweet(ctx context.Context, token, id string, input models.SweetInput) (models.SweetPatch, error) {
	body := struct {
		Name     string  `json:"name"`
		Category string  `json:"category"`
		Price    float64 `json:"price"`
	}{input.Name, input.Category, input.Price}

	var patch models.SweetPatch
	if err := c.do(ctx, http.MethodPut, "/update/"+id, nil, token, body, &patch); err != nil {
		return models.SweetPatch{}, err
	}
	return patch, nil
}

func (c *Client) DeleteSweet(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/delete/"+id, nil, token, nil, nil)
}

func (c *Client) Restock(ctx context.Context, token, id string, quantity int) (models.SweetPatch, error) {
	query := url.Values{}
	query.Set("restoreQuantity", strconv.Itoa(quantity))

	var patch models.SweetPatch
	if err := c.do(ctx, http.MethodPost, "/api/sweets/"+id+"/restock", query, token, nil, &patch); err != nil {
		return models.SweetPatch{}, err
	}
	return patch, nil
}

// PurchaseConfirmation is whatever acknowledgement the backend sends back
// for a purchase. Only the message survives; quantity truth stays remote.
type PurchaseConfirmation struct {
	Message string             `json:"message,omitempty"`
	Sweet   *models.SweetPatch `json:"sweet,omitempty"`
}

func (c *Client) Purchase(ctx context.Context, token, id string, quantity int) (PurchaseConfirmation, error) {
	query := url.Values{}
	query.Set("quantity", strconv.Itoa(quantity))

	var conf PurchaseConfirmation
	if err := c.do(ctx, http.MethodPost, "/api/sweets/"+id+"/purchase", query, token, nil, &conf); err != nil {
		return PurchaseConfirmation{}, err
	}
	return conf, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, target any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call backend %s %s", method, path)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return c.apiError(res)
	}

	if target == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	return nil
}

// apiError extracts the backend's message when it sent one; the status code
// alone is the fallback.
func (c *Client) apiError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
		} else if payload.Error != "" {
			apiErr.Message = payload.Error
		}
	}

	c.logger.Warn().Int("status", res.StatusCode).Str("message", apiErr.Message).Msg("Backend rejected request")
	return apiErr
}
