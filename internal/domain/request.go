package domain

import "encoding/json"

// CurrentStatus represents where in the operating day the request was made
type CurrentStatus string

const (
	// CurrentStatusWait is before the day starts
	CurrentStatusWait CurrentStatus = "wait"
	// CurrentStatusWave1 is during the first wave
	CurrentStatusWave1 CurrentStatus = "wave_1"
	// CurrentStatusStopover is after wave 1 ended, vehicles assembled
	CurrentStatusStopover CurrentStatus = "stopover"
	// CurrentStatusWave2 is after the second wave started
	CurrentStatusWave2 CurrentStatus = "wave_2"
)

// Request is the planning request for one operating day
type Request struct {
	CurrentTime   int64         `json:"current_time" binding:"required"`
	CurrentStatus CurrentStatus `json:"current_status"`
	Vehicles      []Vehicle     `json:"vehicles" binding:"required"`
	Works         []Work        `json:"works" binding:"required"`
	Assemblies    []Assembly    `json:"assemblies" binding:"required"`
	Schedules     Schedules     `json:"schedules" binding:"required"`
	Algorithm     Algorithm     `json:"algorithm"`
}

// UnmarshalJSON applies request defaults
func (r *Request) UnmarshalJSON(data []byte) error {
	type alias Request
	aux := alias{
		CurrentStatus: CurrentStatusWait,
		Algorithm:     DefaultAlgorithm(),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Request(aux)
	return nil
}
