package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/content"
	"github.com/kbtriage/backend/internal/models"
	"github.com/kbtriage/backend/internal/probe"
)

// SpaceResolver finds the container articles are written to. Nothing is
// cached: every call lists the spaces again.
type SpaceResolver struct {
	Transport content.Transport
	Preferred string
}

// List fetches the spaces from the first working discovery endpoint.
func (r *SpaceResolver) List(ctx context.Context, endpoints []string) ([]models.SpaceRef, *probe.Response, []models.EndpointAttempt, error) {
	if r.Transport == nil {
		return nil, nil, nil, apperr.NewNoWorkingEndpoint(nil, "content platform not configured")
	}
	do := func(ctx context.Context, ep probe.Endpoint) (*probe.Response, error) {
		return r.Transport.Do(ctx, ep, nil)
	}
	resp, trail, err := probe.Probe(ctx, probe.Get(endpoints...), do, content.ErrorDetail)
	if err != nil {
		return nil, nil, trail, err
	}
	spaces, err := parseSpaces(resp.Body)
	if err != nil {
		return nil, resp, trail, fmt.Errorf("parse spaces from %s: %w", resp.Endpoint, err)
	}
	return spaces, resp, trail, nil
}

// Resolve picks a space: exact key match on the preferred name, then a name
// containing it, then the first listed.
func (r *SpaceResolver) Resolve(ctx context.Context, endpoints []string) (models.SpaceRef, []models.EndpointAttempt, error) {
	spaces, _, trail, err := r.List(ctx, endpoints)
	if err != nil {
		e := apperr.NewNoSpaceAvailable(err.Error())
		e.Err = err
		return models.SpaceRef{}, trail, e
	}
	space, ok := pickSpace(spaces, r.Preferred)
	if !ok {
		return models.SpaceRef{}, trail, apperr.NewNoSpaceAvailable("space list is empty")
	}
	return space, trail, nil
}

func pickSpace(spaces []models.SpaceRef, preferred string) (models.SpaceRef, bool) {
	if len(spaces) == 0 {
		return models.SpaceRef{}, false
	}
	if preferred != "" {
		for _, s := range spaces {
			if strings.EqualFold(s.Key, preferred) {
				return s, true
			}
		}
		needle := strings.ToLower(preferred)
		for _, s := range spaces {
			if strings.Contains(strings.ToLower(s.Name), needle) {
				return s, true
			}
		}
	}
	return spaces[0], true
}

// parseSpaces accepts both list shapes the platform serves: "results" and
// "values", with ids as strings or numbers. Content listings are read through
// each item's space.
func parseSpaces(body []byte) ([]models.SpaceRef, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var items []any
	for _, k := range []string{"results", "values"} {
		if v, ok := doc[k].([]any); ok {
			items = v
			break
		}
	}

	out := make([]models.SpaceRef, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, spaceFromItem(m))
	}
	return out, nil
}

// spaceFromItem reads a space entry, or a content entry carrying its space
// under "space" with the page title as a last-resort name.
func spaceFromItem(m map[string]any) models.SpaceRef {
	ref := models.SpaceRef{
		ID:   getString(m, "id"),
		Key:  getString(m, "key"),
		Name: getString(m, "name"),
	}
	if ref.Key != "" {
		return ref
	}
	if nested, ok := m["space"].(map[string]any); ok {
		ref.Key = getString(nested, "key")
		if id := getString(nested, "id"); id != "" {
			ref.ID = id
		}
		if ref.Name == "" {
			ref.Name = getString(nested, "name")
		}
	}
	if ref.Name == "" {
		ref.Name = getString(m, "title")
	}
	return ref
}

func getString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
