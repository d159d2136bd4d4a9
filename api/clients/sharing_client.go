package clients

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

	"github.com/ruteri/secret-sharing-service/api"
	"github.com/ruteri/secret-sharing-service/interfaces"
)

// APIError is a non-2xx response of the sharing API.
type APIError struct {
	StatusCode int
	Message    string
	// Index is the offending share of an integrity violation, when reported.
	Index *int
}

func (e *APIError) Error() string {
	if e.Index != nil {
		return fmt.Sprintf("sharing API returned %d: %s (share %d)", e.StatusCode, e.Message, *e.Index)
	}
	return fmt.Sprintf("sharing API returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code back to the matching sentinel, so callers can use
// errors.Is with the interfaces errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return interfaces.ErrInvalidParameter
	case http.StatusUnprocessableEntity:
		return interfaces.ErrIntegrityViolation
	case http.StatusNotFound:
		return interfaces.ErrContentNotFound
	case http.StatusServiceUnavailable:
		return interfaces.ErrBackendUnavailable
	default:
		return nil
	}
}

// SharingClient talks to the secret sharing HTTP API.
type SharingClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSharingClient creates a client for the server at baseURL
// (e.g. "http://localhost:8080"). The timeout defaults to 30 seconds.
func NewSharingClient(baseURL string, timeout ...time.Duration) *SharingClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &SharingClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

func (c *SharingClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseAPIError(resp)
	}
	return resp, nil
}

func parseAPIError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
	var parsed api.ErrorResponse
	if json.Unmarshal(bodyBytes, &parsed) == nil && parsed.Error != "" {
		apiErr.Message = parsed.Error
		apiErr.Index = parsed.Index
	}
	return apiErr
}

func decodeShares(resp *http.Response) ([]api.ShareDTO, error) {
	defer resp.Body.Close()

	var dtos []api.ShareDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("could not parse shares: %w", err)
	}
	return dtos, nil
}

// Split asks the server to split secret into n shares with threshold k. The
// secret travels in the query string; prefer SplitPOST for anything sensitive
// that could end up in access logs.
func (c *SharingClient) Split(ctx context.Context, k, n int, secret string) ([]api.ShareDTO, error) {
	query := url.Values{}
	query.Set("k", strconv.Itoa(k))
	query.Set("n", strconv.Itoa(n))
	query.Set("secret", secret)

	resp, err := c.do(ctx, http.MethodGet, "/api/v1/splitSecret?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodeShares(resp)
}

// SplitPOST is Split with the parameters in a JSON body.
func (c *SharingClient) SplitPOST(ctx context.Context, k, n int, secret string) ([]api.ShareDTO, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/splitSecret", api.SplitRequest{K: k, N: n, Secret: secret})
	if err != nil {
		return nil, err
	}
	return decodeShares(resp)
}

// Recover reconstructs the secret from shares.
func (c *SharingClient) Recover(ctx context.Context, shares []api.ShareDTO) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/recoverSecret", shares)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	secret, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read secret: %w", err)
	}
	return string(secret), nil
}

// PublicKey returns the PEM verification key and its signature algorithm name.
func (c *SharingClient) PublicKey(ctx context.Context) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/publicKey", nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	pemBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("could not read public key: %w", err)
	}
	return pemBytes, resp.Header.Get(api.SignatureAlgorithmHeader), nil
}

// StoreShares persists a share set and returns its hex ID.
func (c *SharingClient) StoreShares(ctx context.Context, shares []api.ShareDTO) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/shares", shares)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var stored api.StoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return "", fmt.Errorf("could not parse store response: %w", err)
	}
	return stored.ID, nil
}

// FetchShares returns every share of a stored set.
func (c *SharingClient) FetchShares(ctx context.Context, id string) ([]api.ShareDTO, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/shares/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeShares(resp)
}

// FetchShare returns one share of a stored set.
func (c *SharingClient) FetchShare(ctx context.Context, id string, index int) (api.ShareDTO, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/shares/%s/%d", url.PathEscape(id), index), nil)
	if err != nil {
		return api.ShareDTO{}, err
	}
	defer resp.Body.Close()

	var dto api.ShareDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return api.ShareDTO{}, fmt.Errorf("could not parse share: %w", err)
	}
	return dto, nil
}
