// Package domain holds the transaction model for the dynamic engine:
// the request/response wire format of the planning API and the entities
// the planner operates on. All entities are request-scoped.
package domain

// Coordinate is a (longitude, latitude) pair, encoded on the wire as a
// two-element JSON array.
type Coordinate [2]float64

// Lng returns the longitude component
func (c Coordinate) Lng() float64 { return c[0] }

// Lat returns the latitude component
func (c Coordinate) Lat() float64 { return c[1] }

// Profile selects the routing profile used for a vehicle
type Profile string

const (
	ProfileCar   Profile = "car"
	ProfileAtlan Profile = "atlan"
)
