package probe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/models"
)

// Endpoint is one candidate address on a service.
type Endpoint struct {
	Method string
	Path   string
}

func (e Endpoint) String() string {
	method := e.Method
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + e.Path
}

// Get builds GET endpoints for paths, keeping their order.
func Get(paths ...string) []Endpoint {
	return with(http.MethodGet, paths)
}

// Post builds POST endpoints for paths, keeping their order.
func Post(paths ...string) []Endpoint {
	return with(http.MethodPost, paths)
}

func with(method string, paths []string) []Endpoint {
	out := make([]Endpoint, 0, len(paths))
	for _, p := range paths {
		out = append(out, Endpoint{Method: method, Path: p})
	}
	return out
}

// Response is a completed call: any status, raw body.
type Response struct {
	Endpoint Endpoint
	Status   int
	Body     []byte
}

func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// DoFunc performs the request against one endpoint. A non-nil error means
// the transport call itself failed.
type DoFunc func(ctx context.Context, ep Endpoint) (*Response, error)

// DetailFunc extracts a human-readable failure detail from a non-2xx body.
type DetailFunc func(body []byte) string

// Probe tries endpoints strictly in order and stops at the first 2xx.
// It returns that response plus the trail of every attempt made. When none
// succeed the error is CodeNoWorkingEndpoint and the trail is still returned.
func Probe(ctx context.Context, endpoints []Endpoint, do DoFunc, detail DetailFunc) (*Response, []models.EndpointAttempt, error) {
	trail := make([]models.EndpointAttempt, 0, len(endpoints))
	tried := make([]string, 0, len(endpoints))
	last := ""

	for _, ep := range endpoints {
		if err := ctx.Err(); err != nil {
			last = err.Error()
			break
		}
		attempt := models.EndpointAttempt{Endpoint: ep.String()}
		tried = append(tried, attempt.Endpoint)

		resp, err := do(ctx, ep)
		switch {
		case err != nil:
			attempt.Error = err.Error()
		case resp == nil:
			attempt.Error = "empty response"
		case !resp.OK():
			attempt.Status = resp.Status
			attempt.Error = fmt.Sprintf("status %d", resp.Status)
			if detail != nil {
				if d := detail(resp.Body); d != "" {
					attempt.Error += ": " + d
				}
			}
		default:
			attempt.Status = resp.Status
			attempt.Success = true
			trail = append(trail, attempt)
			resp.Endpoint = ep
			return resp, trail, nil
		}
		last = attempt.Endpoint + ": " + attempt.Error
		trail = append(trail, attempt)
	}

	return nil, trail, apperr.NewNoWorkingEndpoint(tried, last)
}
