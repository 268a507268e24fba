package github

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	mediaType  = "application/vnd.github+json"
	apiVersion = "2022-11-28"

	// GitHub error bodies are short; anything longer is not worth keeping.
	maxErrorBody = 4 << 10
)

// listAll walks a paged listing endpoint and returns the raw items of every
// page, up to maxPages.
func (c *Client) listAll(ctx context.Context, endpoint string, q url.Values) ([]map[string]any, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("per_page", strconv.Itoa(perPage))

	var all []map[string]any
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))

		var items []map[string]any
		if err := c.get(ctx, endpoint, q, &items); err != nil {
			return nil, err
		}
		all = append(all, items...)

		if len(items) < perPage {
			return all, nil
		}
		c.logger.Debug("listing continues", zap.String("endpoint", endpoint), zap.Int("page", page))
	}

	c.logger.Warn("listing truncated", zap.String("endpoint", endpoint), zap.Int("items", len(all)))
	return all, nil
}

// get fetches endpoint and decodes the JSON body into target.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("Accept", mediaType)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("github request",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
		zap.String("ratelimit_remaining", resp.Header.Get("X-RateLimit-Remaining")),
	)

	body, err := bodyReader(resp)
	if err != nil {
		return err
	}
	defer body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, req.URL.Path, body)
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// bodyReader undoes gzip transfer compression. We ask for gzip ourselves, so
// the transport leaves it to us.
func bodyReader(resp *http.Response) (io.ReadCloser, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return io.NopCloser(resp.Body), nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	return gz, nil
}

func statusError(resp *http.Response, path string, body io.Reader) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&payload)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return fmt.Errorf("%w: resets %s", ErrRateLimited, resetTime(resp.Header.Get("X-RateLimit-Reset")))
	case payload.Message != "":
		return fmt.Errorf("github %s: %s: %s", path, resp.Status, payload.Message)
	default:
		return fmt.Errorf("github %s: %s", path, resp.Status)
	}
}

func resetTime(header string) string {
	sec, err := strconv.ParseInt(header, 10, 64)
	if err != nil || sec <= 0 {
		return "at an unknown time"
	}
	return "at " + time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
