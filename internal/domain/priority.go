package domain

// Solver job priorities
const (
	PriorityMustHaveTo = 99
	PriorityHighest    = 40
	PriorityHigh       = 30
	PriorityMedium     = 20
	PriorityLow        = 10
	PriorityLowest     = 0
)
