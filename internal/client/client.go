// Package client is a small HTTP client for the comments API. Its Commit
// method lets an interaction.Manager run against a remote server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"clubhouse/internal/interaction"
	"clubhouse/internal/models"
	"clubhouse/internal/service"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout = 10 * time.Second
	retryCount     = 2
)

// Client talks to one API server on behalf of one viewer.
type Client struct {
	http *resty.Client
}

// Option customizes a Client.
type Option func(*resty.Client)

// WithToken authenticates every request as the token's subject.
func WithToken(token string) Option {
	return func(c *resty.Client) { c.SetAuthToken(token) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetryWait sets the wait between retries of 503 responses.
func WithRetryWait(d time.Duration) Option {
	return func(c *resty.Client) { c.SetRetryWaitTime(d).SetRetryMaxWaitTime(d) }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retryCount).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == http.StatusServiceUnavailable
		})
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// ThreadPage fetches one page of an entity's comment threads.
func (c *Client) ThreadPage(ctx context.Context, kind models.EntityKind, entityID string, page, pageSize int) (*service.ThreadPage, error) {
	var out service.ThreadPage
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Get(entityPath(kind, entityID))
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComment posts a comment, or a reply when parentID is set.
func (c *Client) CreateComment(ctx context.Context, kind models.EntityKind, entityID, body string, parentID *string) (*models.Comment, error) {
	var out models.Comment
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"body": body, "parent_id": parentID}).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Post(entityPath(kind, entityID))
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestMentions returns profiles whose username starts with query.
func (c *Client) SuggestMentions(ctx context.Context, query string) ([]models.Profile, error) {
	var out []models.Profile
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Get("/api/mentions/suggest")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

type toggleResponse struct {
	Count      int   `json:"count"`
	Liked      *bool `json:"liked"`
	Bookmarked *bool `json:"bookmarked"`
}

// Commit implements interaction.Committer over the toggle endpoints.
func (c *Client) Commit(ctx context.Context, ns interaction.Namespace, subject models.Subject, currentlyActive bool) (interaction.Result, error) {
	var (
		route string
		field string
	)
	switch ns {
	case interaction.NamespaceLike:
		route, field = "likes", "currently_liked"
	case interaction.NamespaceBookmark:
		route, field = "bookmarks", "currently_bookmarked"
	default:
		return interaction.Result{}, models.NewValidationError("Unknown interaction: " + string(ns))
	}

	var out toggleResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]bool{field: currentlyActive}).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Post(fmt.Sprintf("/api/%s/%s/%s/toggle", route, subject.Kind, url.PathEscape(subject.ID)))
	if err := checkResponse(resp, err); err != nil {
		return interaction.Result{}, err
	}

	res := interaction.Result{Count: out.Count, Active: !currentlyActive}
	if out.Liked != nil {
		res.Active = *out.Liked
	}
	if out.Bookmarked != nil {
		res.Active = *out.Bookmarked
	}
	return res, nil
}

func entityPath(kind models.EntityKind, entityID string) string {
	return fmt.Sprintf("/api/entities/%s/%s/comments", kind, url.PathEscape(entityID))
}

// checkResponse turns transport failures and error bodies into AppErrors so
// callers can branch on the same codes the server uses.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return models.NewTransientStoreError(err)
	}
	if !resp.IsError() {
		return nil
	}

	msg := http.StatusText(resp.StatusCode())
	code := ""
	if body, ok := resp.Error().(*models.ErrorResponse); ok && body != nil {
		if body.Error != "" {
			msg = body.Error
		}
		code = body.Code
	}
	if code == "" {
		code = codeForStatus(resp.StatusCode())
	}
	return &models.AppError{Code: code, Message: msg}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeValidation
	case http.StatusUnauthorized:
		return models.CodeUnauthenticated
	case http.StatusForbidden:
		return models.CodePermission
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return models.CodeTransientStore
	default:
		return models.CodeInternal
	}
}

var _ interaction.Committer = (*Client)(nil)
