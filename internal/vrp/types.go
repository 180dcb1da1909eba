// Package vrp holds the wire format of the external VRP solver: jobs,
// shipments and vehicles with time windows, skills and capacities in,
// assigned routes and an unassigned list out.
package vrp

import "github.com/roouty-platform/dynamic-engine/internal/domain"

// TimeWindow is an (open, close) pair in unix seconds
type TimeWindow [2]int64

// Job is a single-visit task
type Job struct {
	ID          int               `json:"id"`
	Description string            `json:"description,omitempty"`
	Location    domain.Coordinate `json:"location"`
	Setup       int64             `json:"setup"`
	Service     int64             `json:"service"`
	Priority    int               `json:"priority,omitempty"`
	Skills      []int             `json:"skills"`
	Pickup      []int             `json:"pickup,omitempty"`
	Delivery    []int             `json:"delivery,omitempty"`
}

// ShipmentStep is one leg of a paired pickup-delivery
type ShipmentStep struct {
	ID          int               `json:"id"`
	Description string            `json:"description,omitempty"`
	Location    domain.Coordinate `json:"location"`
	Setup       int64             `json:"setup"`
	Service     int64             `json:"service"`
}

// Shipment is a pickup paired with a delivery on the same vehicle
type Shipment struct {
	Pickup   ShipmentStep `json:"pickup"`
	Delivery ShipmentStep `json:"delivery"`
	Skills   []int        `json:"skills"`
	Amount   []int        `json:"amount,omitempty"`
}

// Vehicle is a solver vehicle with its working window and skill set
type Vehicle struct {
	ID         int                `json:"id"`
	Profile    string             `json:"profile"`
	Start      domain.Coordinate  `json:"start"`
	End        *domain.Coordinate `json:"end,omitempty"`
	Skills     []int              `json:"skills"`
	TimeWindow TimeWindow         `json:"time_window"`
	Capacity   []int              `json:"capacity,omitempty"`
	Wave       int                `json:"wave,omitempty"`
}

// CustomMatrix toggles the solver's caller-provided travel matrix support
type CustomMatrix struct {
	Enabled bool `json:"enabled"`
}

// DistributeOptions tunes the solver's workload distribution
type DistributeOptions struct {
	MaxVehicleWorkTime int64        `json:"max_vehicle_work_time"`
	EqualizeWorkTime   bool         `json:"equalize_work_time,omitempty"`
	CustomMatrix       CustomMatrix `json:"custom_matrix"`
}

// Request is the full solver request
type Request struct {
	Jobs              []Job             `json:"jobs"`
	Shipments         []Shipment        `json:"shipments"`
	Vehicles          []Vehicle         `json:"vehicles"`
	DistributeOptions DistributeOptions `json:"distribute_options"`
}

// Step types returned by the solver
const (
	StepTypeStart    = "start"
	StepTypeJob      = "job"
	StepTypePickup   = "pickup"
	StepTypeDelivery = "delivery"
	StepTypeEnd      = "end"
)

// Step is one stop of an assigned route
type Step struct {
	Type     string            `json:"type"`
	ID       int               `json:"id,omitempty"`
	Arrival  int64             `json:"arrival"`
	Setup    int64             `json:"setup"`
	Service  int64             `json:"service"`
	Location domain.Coordinate `json:"location"`
	Distance float64           `json:"distance"`
}

// Route is one vehicle's assigned step sequence
type Route struct {
	Vehicle int    `json:"vehicle"`
	Steps   []Step `json:"steps"`
}

// Unassigned references a job or shipment step the solver could not place
type Unassigned struct {
	ID int `json:"id"`
}

// Response is the full solver response
type Response struct {
	Routes     []Route      `json:"routes"`
	Unassigned []Unassigned `json:"unassigned"`
}
