// Package predict is the HTTP client for the external scoring services.
// Each service accepts a flat JSON object of model parameters and answers
// with a score in one of a few known shapes; this package normalizes those
// shapes and classifies failures so the caller can distinguish "service
// unreachable" from "service answered nonsense".
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnparseable marks a response that transport-succeeded but could not be
// interpreted as a prediction. The raw payload is preserved alongside.
var ErrUnparseable = errors.New("unparseable prediction response")

// Outcome is a normalized prediction from one scoring service.
type Outcome struct {
	Label       string          `json:"label"`
	Probability *float64        `json:"probability,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Caller invokes scoring services. Probe is a cheap reachability check used
// by the health endpoint.
type Caller interface {
	Predict(ctx context.Context, endpoint string, params map[string]any) (Outcome, error)
	Probe(ctx context.Context, endpoint string) error
}

// Client is the production Caller.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Predict POSTs the parameter object and normalizes the response. A non-2xx
// status is a transport-level failure; a 2xx body that yields neither a
// label nor a probability is ErrUnparseable with the raw body attached.
func (c *Client) Predict(ctx context.Context, endpoint string, params map[string]any) (Outcome, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode parameters: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Outcome{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, fmt.Errorf("call %s: status %d", endpoint, resp.StatusCode)
	}

	outcome, ok := Normalize(raw)
	if !ok {
		return Outcome{Raw: raw}, ErrUnparseable
	}
	return outcome, nil
}

// Probe checks the service is reachable without scoring anything. Services
// are not required to expose a health route, so any HTTP answer (including
// 404/405) counts as reachable; only transport errors fail the probe.
func (c *Client) Probe(ctx context.Context, endpoint string) error {
	base, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Normalize maps the known response dialects onto an Outcome. Accepted label
// keys: prediction, label, risk, result. Accepted probability keys:
// probability, score, confidence, risk_score. Accepted explanation keys:
// explanation, reason, detail. Numeric labels are rendered as their decimal
// form. Reports false when neither a label nor a probability is present.
func Normalize(raw []byte) (Outcome, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Outcome{}, false
	}

	out := Outcome{Raw: raw}

	for _, key := range []string{"prediction", "label", "risk", "result"} {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			out.Label = t
		case float64:
			out.Label = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out.Label = strconv.FormatBool(t)
		default:
			continue
		}
		break
	}

	for _, key := range []string{"probability", "score", "confidence", "risk_score"} {
		if f, ok := m[key].(float64); ok {
			p := f
			out.Probability = &p
			break
		}
	}

	for _, key := range []string{"explanation", "reason", "detail"} {
		if s, ok := m[key].(string); ok && s != "" {
			out.Explanation = s
			break
		}
	}

	if out.Label == "" && out.Probability == nil {
		return Outcome{}, false
	}
	return out, true
}
