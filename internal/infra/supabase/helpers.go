package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE and RPC
// ============================================================

// doPost inserts one row (a map or struct) or many rows (a slice).
func (c *Client) doPost(ctx context.Context, table string, data any) ([]byte, error) {
	body, status, err := c.doJSON(ctx, http.MethodPost, "rest/v1/"+table, data, "return=representation")
	if err != nil {
		c.logger.Error("supabase: POST request failed",
			zap.String("table", table),
			zap.Error(err),
		)
		return nil, err
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: POST non-2xx",
			zap.String("table", table),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(status, body)
	}

	c.logger.Debug("supabase: POST OK", zap.String("table", table), zap.Int("status", status))
	return body, nil
}

func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) error {
	_, err := c.patch(ctx, path, data, "return=minimal")
	return err
}

// doPatchReturning patches and returns the updated rows. A filter that
// matches nothing yields an empty array.
func (c *Client) doPatchReturning(ctx context.Context, path string, data map[string]any) ([]byte, error) {
	return c.patch(ctx, path, data, "return=representation")
}

func (c *Client) patch(ctx context.Context, path string, data map[string]any, prefer string) ([]byte, error) {
	body, status, err := c.doJSON(ctx, http.MethodPatch, "rest/v1/"+path, data, prefer)
	if err != nil {
		c.logger.Error("supabase: PATCH request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: PATCH non-2xx",
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(status, body)
	}

	c.logger.Debug("supabase: PATCH OK", zap.String("path", path))
	return body, nil
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	_, err := c.doDeleteReturning(ctx, path)
	return err
}

// doDeleteReturning deletes and returns the removed rows.
func (c *Client) doDeleteReturning(ctx context.Context, path string) ([]byte, error) {
	body, status, err := c.doJSON(ctx, http.MethodDelete, "rest/v1/"+path, nil, "return=representation")
	if err != nil {
		c.logger.Error("supabase: DELETE request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: DELETE non-2xx",
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(status, body)
	}

	c.logger.Debug("supabase: DELETE OK", zap.String("path", path))
	return body, nil
}

// doRPC calls a Postgres function exposed under /rest/v1/rpc.
func (c *Client) doRPC(ctx context.Context, fn string, args any) ([]byte, error) {
	body, status, err := c.doJSON(ctx, http.MethodPost, "rest/v1/rpc/"+fn, args, "")
	if err != nil {
		c.logger.Error("supabase: RPC request failed",
			zap.String("function", fn),
			zap.Error(err),
		)
		return nil, err
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: RPC non-2xx",
			zap.String("function", fn),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(status, body)
	}

	c.logger.Debug("supabase: RPC OK", zap.String("function", fn))
	return body, nil
}

// doJSON sends data as JSON with the service role credentials.
func (c *Client) doJSON(ctx context.Context, method, path string, data any, prefer string) ([]byte, int, error) {
	var reader *bytes.Reader
	if data != nil {
		jsonBody, err := json.Marshal(data)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/%s", c.baseURL, path), reader)
	if err != nil {
		return nil, 0, err
	}
	c.setServiceHeaders(req, prefer)

	resp, err := c.send(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}

	// PostgREST answers {code, message}; GoTrue uses msg or error_description
	// and a numeric code.
	var parsed struct {
		Code             json.RawMessage `json:"code"`
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		ErrorDescription string          `json:"error_description"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		apiErr.Code = strings.Trim(string(parsed.Code), `"`)
		switch {
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.Msg != "":
			apiErr.Message = parsed.Msg
		default:
			apiErr.Message = parsed.ErrorDescription
		}
	}
	return apiErr
}

// ClientError reports a 4xx answer, which retrying cannot fix.
func (e *APIError) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// ============================================================
// PostgREST filter helpers
// ============================================================

// eq builds an escaped equality filter value.
func eq(v string) string {
	return "eq." + url.QueryEscape(v)
}

// inList renders ids as an in.(...) filter, quoting each value.
func inList(ids []string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, `"`+strings.ReplaceAll(id, `"`, `\"`)+`"`)
	}
	return "in.(" + url.QueryEscape(strings.Join(quoted, ",")) + ")"
}

// uniqueIDs drops blanks and duplicates while keeping order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// chunk splits ids so each in.(...) filter keeps the URL short.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for size < len(ids) {
		ids, out = ids[size:], append(out, ids[:size:size])
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// searchTerm strips characters PostgREST treats as syntax inside or=(...).
func searchTerm(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*', '"', '\\', ':':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
