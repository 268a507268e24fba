// Package github reads public GitHub profiles and scores them for recruiters.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.github.com"
	userAgent = "devmeet-candidate-analyzer"
	// Max value for listing per page.
	perPage = 100
	// Upper bound of pages fetched for one listing.
	maxPages = 10
)

var (
	ErrNotFound    = errors.New("github resource not found")
	ErrRateLimited = errors.New("github rate limit exceeded")
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token, baseURL string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = apiURL
	}

	return &Client{
		token:  strings.TrimSpace(token),
		logger: logger,
		APIURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
	}
}

type User struct {
	Login       string    `json:"login" mapstructure:"login"`
	Name        string    `json:"name" mapstructure:"name"`
	Company     string    `json:"company" mapstructure:"company"`
	Blog        string    `json:"blog" mapstructure:"blog"`
	Location    string    `json:"location" mapstructure:"location"`
	Bio         string    `json:"bio" mapstructure:"bio"`
	PublicRepos int       `json:"public_repos" mapstructure:"public_repos"`
	Followers   int       `json:"followers" mapstructure:"followers"`
	Following   int       `json:"following" mapstructure:"following"`
	HTMLURL     string    `json:"html_url" mapstructure:"html_url"`
	CreatedAt   time.Time `json:"created_at" mapstructure:"created_at"`
}

type Repository struct {
	Name        string    `json:"name" mapstructure:"name"`
	FullName    string    `json:"full_name" mapstructure:"full_name"`
	Description string    `json:"description" mapstructure:"description"`
	Language    string    `json:"language" mapstructure:"language"`
	Fork        bool      `json:"fork" mapstructure:"fork"`
	Archived    bool      `json:"archived" mapstructure:"archived"`
	Stars       int       `json:"stargazers_count" mapstructure:"stargazers_count"`
	Forks       int       `json:"forks_count" mapstructure:"forks_count"`
	HTMLURL     string    `json:"html_url" mapstructure:"html_url"`
	PushedAt    time.Time `json:"pushed_at" mapstructure:"pushed_at"`
}

func (c *Client) GetUser(ctx context.Context, login string) (*User, error) {
	var raw map[string]any
	if err := c.get(ctx, fmt.Sprintf("%s/users/%s", c.APIURL, url.PathEscape(login)), nil, &raw); err != nil {
		return nil, err
	}

	var user User
	if err := decode(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// ListRepositories returns the public repositories owned by login.
func (c *Client) ListRepositories(ctx context.Context, login string) ([]*Repository, error) {
	q := url.Values{}
	q.Set("type", "owner")
	q.Set("sort", "pushed")

	items, err := c.listAll(ctx, fmt.Sprintf("%s/users/%s/repos", c.APIURL, url.PathEscape(login)), q)
	if err != nil {
		return nil, err
	}

	var repos []*Repository
	if err := decode(items, &repos); err != nil {
		return nil, fmt.Errorf("decode repositories: %w", err)
	}
	return repos, nil
}

// GetLanguages returns bytes of code per language of a repository.
func (c *Client) GetLanguages(ctx context.Context, fullName string) (map[string]int64, error) {
	var langs map[string]int64
	if err := c.get(ctx, fmt.Sprintf("%s/repos/%s/languages", c.APIURL, fullName), nil, &langs); err != nil {
		return nil, err
	}
	return langs, nil
}

func decode(input, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
