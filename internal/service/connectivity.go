package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kbtriage/backend/internal/models"
)

const maxListedSpaces = 5

// Connectivity is a diagnostic over the content-platform discovery endpoints.
type Connectivity struct {
	Spaces    *SpaceResolver
	Endpoints []string
	Logger    zerolog.Logger
}

func (c *Connectivity) Test(ctx context.Context) models.ConnectivityReport {
	if c.Spaces == nil {
		return models.ConnectivityReport{
			Success: false,
			Message: "Content platform is not configured",
			Details: models.ConnectivityDetails{Attempts: []models.EndpointAttempt{}},
		}
	}

	spaces, resp, trail, err := c.Spaces.List(ctx, c.Endpoints)
	if trail == nil {
		trail = []models.EndpointAttempt{}
	}
	details := models.ConnectivityDetails{Attempts: trail}
	if resp != nil {
		details.Endpoint = resp.Endpoint.String()
	}
	if err != nil {
		c.Logger.Warn().Err(err).Int("attempts", len(trail)).Msg("content connectivity check failed")
		return models.ConnectivityReport{
			Success: false,
			Message: "Content platform connectivity failed: " + errorDetail(err),
			Details: details,
		}
	}

	details.Spaces = len(spaces)
	if len(spaces) > maxListedSpaces {
		spaces = spaces[:maxListedSpaces]
	}
	details.SpaceList = spaces
	return models.ConnectivityReport{
		Success: true,
		Message: fmt.Sprintf("Connected to content platform via %s, found %d spaces", details.Endpoint, details.Spaces),
		Details: details,
	}
}
