package tools

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

type httpRequestTool struct {
	client HTTPDoer
}

// NewHTTPRequest returns the http_request tool. A nil client falls back to
// http.DefaultClient.
func NewHTTPRequest(client HTTPDoer) registry.Tool {
	return httpRequestTool{client: client}
}

func (t httpRequestTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "http_request",
		Description: "Issues an HTTP request and returns status, headers, and body.",
		Idempotent:  false,
		ParamSchema: []model.ParamSpec{
			stringParam("url", true),
			{Name: "method", Type: model.ParamString, Required: false, Default: "GET"},
			{Name: "headers", Type: model.ParamObject, Required: false},
			{Name: "body", Type: model.ParamString, Required: false},
		},
	}
}

func (t httpRequestTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	url, err := requireString(params, "url")
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(optionalString(params, "method", "GET"))

	var bodyReader io.Reader
	if body := optionalString(params, "body", ""); body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(runCtx.Context, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if headers, ok := params["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	client := t.client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return map[string]any{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    buf.String(),
	}, nil
}
