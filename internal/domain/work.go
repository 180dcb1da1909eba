package domain

// WorkStatusType represents the lifecycle state of a work
type WorkStatusType string

const (
	// WorkStatusWaiting means neither leg has been handled yet
	WorkStatusWaiting WorkStatusType = "waiting"
	// WorkStatusShipped means the parcel is on vehicle Status.VehicleID
	WorkStatusShipped WorkStatusType = "shipped"
	// WorkStatusAssembly means the parcel sits at hub Status.AssemblyID
	WorkStatusAssembly WorkStatusType = "assembly"
	// WorkStatusDone means the delivery has completed
	WorkStatusDone WorkStatusType = "done"
	// WorkStatusHandlePickup means vehicle Status.VehicleID is en route to the pickup
	WorkStatusHandlePickup WorkStatusType = "handle_pickup"
	// WorkStatusHandleDelivery means vehicle Status.VehicleID is en route to the delivery
	WorkStatusHandleDelivery WorkStatusType = "handle_delivery"
)

// WorkStatus carries the current state of a work plus the vehicle or
// assembly the state refers to
type WorkStatus struct {
	Type       WorkStatusType `json:"type"`
	VehicleID  *int           `json:"vehicle_id,omitempty"`
	AssemblyID *int           `json:"assembly_id,omitempty"`
}

// WorkPoint is one leg (pickup or delivery) of a work
type WorkPoint struct {
	Location    Coordinate `json:"location"`
	Group       string     `json:"group"`
	SetupTime   int64      `json:"setup_time"`
	ServiceTime int64      `json:"service_time"`
}

// Work is a same-day delivery order with a pickup and a delivery leg
type Work struct {
	ID          int        `json:"id"`
	Description string     `json:"description"`
	Pickup      WorkPoint  `json:"pickup"`
	Delivery    WorkPoint  `json:"delivery"`
	Amount      []int      `json:"amount,omitempty"`
	Status      WorkStatus `json:"status"`
}
