package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type commandContext struct {
	serverFlag *string
	tokenFlag  *string
	httpClient *http.Client
}

func newCommandContext(serverFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		tokenFlag:  tokenFlag,
		httpClient: &http.Client{Timeout: 15 * time.Minute},
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// call sends a JSON request to the server API and decodes the response into
// out. Lifecycle results come back with non-2xx codes but still decode, so
// pass allowResult to get them instead of an error.
func (c *commandContext) call(ctx context.Context, method, path string, body, out any, allowResult bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := strings.TrimRight(*c.serverFlag, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(*c.tokenFlag); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", *c.serverFlag, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		var result struct {
			Outcome string `json:"outcome"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(raw, &result)
		if !allowResult || result.Outcome == "" {
			msg := result.Error
			if msg == "" {
				msg = strings.TrimSpace(string(raw))
			}
			return &apiError{Status: resp.StatusCode, Message: msg}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
