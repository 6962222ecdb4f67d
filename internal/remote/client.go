// Package remote is the HTTP call surface to the paginated directory API.
// Calls never retry internally; retry policy is the optional Retrying
// decorator in this package.
package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marcus/roster/internal/models"
)

// PageSize is the fixed server page size.
const PageSize = 6

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client is an HTTP client for the directory server.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a new directory client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// userJSON is the wire shape of a single user in list responses.
// updated_at/version are optional: servers that predate conflict metadata
// omit them and the zero defaults make the local copy win only when it was
// actually modified.
type userJSON struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
	Version   int    `json:"version,omitempty"`
}

func (j userJSON) toModel() models.User {
	version := j.Version
	if version == 0 {
		version = 1
	}
	return models.User{
		ID:        j.ID,
		Email:     j.Email,
		FirstName: j.FirstName,
		LastName:  j.LastName,
		AvatarURL: j.Avatar,
		UpdatedAt: j.UpdatedAt,
		Version:   version,
	}
}

// pageResponse is the wrapper around paginated list responses.
type pageResponse struct {
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
	Data       []userJSON `json:"data"`
}

// writeRequest is the body for create and update calls.
type writeRequest struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// FetchPage fetches one page of users and the reported total page count.
func (c *Client) FetchPage(page int) ([]models.User, int, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(PageSize))

	var resp pageResponse
	if err := c.do("GET", "/users?"+params.Encode(), nil, &resp); err != nil {
		return nil, 0, err
	}

	users := make([]models.User, 0, len(resp.Data))
	for _, j := range resp.Data {
		users = append(users, j.toModel())
	}
	return users, resp.TotalPages, nil
}

// FetchAllWithTotalCount pages through the full remote set and returns it
// along with the server-reported total count.
func (c *Client) FetchAllWithTotalCount() ([]models.User, int, error) {
	var all []models.User
	total := 0

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(PageSize))

		var resp pageResponse
		if err := c.do("GET", "/users?"+params.Encode(), nil, &resp); err != nil {
			return nil, 0, err
		}

		total = resp.Total
		for _, j := range resp.Data {
			all = append(all, j.toModel())
		}
		if page >= resp.TotalPages {
			break
		}
	}
	return all, total, nil
}

// Create creates a user on the server.
func (c *Client) Create(name, job string) error {
	return c.do("POST", "/users", writeRequest{Name: name, Job: job}, nil)
}

// Update updates a user on the server.
func (c *Client) Update(id int, name, job string) error {
	return c.do("PUT", fmt.Sprintf("/users/%d", id), writeRequest{Name: name, Job: job}, nil)
}

// Delete removes a user from the server.
func (c *Client) Delete(id int) error {
	return c.do("DELETE", fmt.Sprintf("/users/%d", id), nil, nil)
}

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// do executes a request against BaseURL+path and decodes the JSON response
// into result when result is non-nil.
func (c *Client) do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
