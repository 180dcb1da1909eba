package domain

// TaskType represents the kind of a scheduled task
type TaskType string

const (
	TaskTypePickup    TaskType = "pickup"
	TaskTypeDelivery  TaskType = "delivery"
	TaskTypeArrival   TaskType = "arrival"
	TaskTypeDeparture TaskType = "departure"
	TaskTypeWaiting   TaskType = "waiting"
)

// Task is one stop in a vehicle's per-wave plan. Pickup and delivery
// tasks reference a work; departure and arrival tasks reference an
// assembly instead.
type Task struct {
	WorkID      *int       `json:"work_id,omitempty"`
	Type        TaskType   `json:"type"`
	ETA         int64      `json:"eta"`
	Duration    float64    `json:"duration"`
	Distance    float64    `json:"distance"`
	SetupTime   int64      `json:"setup_time"`
	ServiceTime int64      `json:"service_time"`
	AssemblyID  *int       `json:"assembly_id,omitempty"`
	Location    Coordinate `json:"location"`
	Done        bool       `json:"done"`
}
