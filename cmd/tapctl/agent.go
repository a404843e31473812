package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/beepcard/beep-tap/internal/utils/platformerrors"
)

const defaultTimeout = 15 * time.Second

// agentClient is a thin HTTP client for the tap agent's /v1 API.
type agentClient struct {
	http *resty.Client
}

func newAgentClient(baseURL, token string, timeout time.Duration) *agentClient {
	client := resty.New().
		SetBaseURL(baseURL+"/v1").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &agentClient{http: client}
}

func agentFromCmd(cmd *cobra.Command) *agentClient {
	baseURL, _ := cmd.Flags().GetString("agent")
	token, _ := cmd.Flags().GetString("token")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return newAgentClient(baseURL, token, timeout)
}

// do sends a request and returns the raw JSON body of a 2xx response.
func (a *agentClient) do(method, path string, body any, query map[string]string) ([]byte, error) {
	var apiErr platformerrors.HTTPErrorResponse
	req := a.http.R().SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		if apiErr.Error != nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error.Message, apiErr.Error.Type)
		}
		return nil, fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status())
	}
	return resp.Body(), nil
}

// printJSON writes raw indented to w.
func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, werr := w.Write(raw)
		return werr
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
