// Package source provides the drivable road graph of a named place.
package source

import (
	"context"
	"errors"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
)

var (
	ErrPlaceNotFound = errors.New("place not found")
	ErrNoNetworkData = errors.New("no drivable road network")
	// network or upstream failure, worth retrying
	ErrUnavailable = errors.New("graph source unavailable")
)

// GraphSource resolves a place name into its road graph and its center
// point, [lon, lat].
type GraphSource interface {
	FetchRoadGraph(ctx context.Context, place string) (*planner.RoadGraph, orb.Point, error)
}

// Place joins a neighborhood and its city the way the geocoder expects.
func Place(neighborhood, city string) string {
	switch {
	case neighborhood == "":
		return city
	case city == "":
		return neighborhood
	}
	return neighborhood + ", " + city
}
