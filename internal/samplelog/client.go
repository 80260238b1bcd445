package samplelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/fightlog/internal/domain/model"
)

// ErrUnexpectedStatus is returned for responses the client cannot use.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Ack is the body of a submission response.
type Ack struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Client talks to a fightlog server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health checks that the server answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// Submit posts job for asynchronous analysis.
func (c *Client) Submit(ctx context.Context, job model.Job) (Ack, error) { //nolint:gocritic // hugeParam: jobs are passed by value
	body, err := json.Marshal(job)
	if err != nil {
		return Ack{}, fmt.Errorf("marshal job: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/analyses", body)
	if err != nil {
		return Ack{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return Ack{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return Ack{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}

// Report fetches the report with id.
func (c *Client) Report(ctx context.Context, id string) (model.Report, error) {
	resp, err := c.do(ctx, http.MethodGet, "/analyses/"+id, nil)
	if err != nil {
		return model.Report{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Report{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	var rep model.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return model.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
