package domain

import "encoding/json"

// DefaultStopoverWaitingTime is the buffer distributed between the
// wave-2 arrival and the wave-3 departure at an assembly (15 minutes)
const DefaultStopoverWaitingTime int64 = 900

// VehicleSchedule is one vehicle's assignment within a single wave
type VehicleSchedule struct {
	ID             int     `json:"id"`
	FromAssemblyID int     `json:"from_assembly_id"`
	ToAssemblyID   *int    `json:"to_assembly_id,omitempty"`
	Group          *string `json:"group,omitempty"`
	Tasks          []Task  `json:"tasks"`
	// Up and Down carry the works this vehicle loaded and unloaded at
	// the assembly beginning this wave, for replanning after a rendezvous
	Up   []int `json:"up,omitempty"`
	Down []int `json:"down,omitempty"`
	// Running reports whether the vehicle is moving toward the first
	// undone task. When false the plan starts from the vehicle's
	// current location.
	Running bool `json:"running"`
}

// UnmarshalJSON applies the Running=true default
func (vs *VehicleSchedule) UnmarshalJSON(data []byte) error {
	type alias VehicleSchedule
	aux := alias{Running: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*vs = VehicleSchedule(aux)
	return nil
}

// FirstUndoneTask returns the first pickup or delivery task not yet done
func (vs *VehicleSchedule) FirstUndoneTask() *Task {
	for i := range vs.Tasks {
		t := &vs.Tasks[i]
		if !t.Done && (t.Type == TaskTypePickup || t.Type == TaskTypeDelivery) {
			return t
		}
	}
	return nil
}

// AssemblyStopoverTime pins the committed closing time of one assembly
type AssemblyStopoverTime struct {
	AssemblyID   int   `json:"assembly_id"`
	StopoverTime int64 `json:"stopover_time"`
}

// Schedule is the wave-level container of vehicle schedules
type Schedule struct {
	Start    *int64            `json:"start,omitempty"`
	End      *int64            `json:"end,omitempty"`
	Vehicles []VehicleSchedule `json:"vehicles"`
	// AssemblyStopoverTime carries rendezvous times committed by a
	// prior plan, required once wave 1 has ended
	AssemblyStopoverTime []AssemblyStopoverTime `json:"assembly_stopover_time,omitempty"`
	StopoverWaitingTime  int64                  `json:"stopover_waiting_time"`
}

// UnmarshalJSON applies the stopover waiting time default
func (s *Schedule) UnmarshalJSON(data []byte) error {
	type alias Schedule
	aux := alias{StopoverWaitingTime: DefaultStopoverWaitingTime}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Schedule(aux)
	return nil
}

// Schedules holds the three consecutive waves of the operating day
type Schedules struct {
	Wave1 Schedule `json:"wave_1"`
	Wave2 Schedule `json:"wave_2"`
	Wave3 Schedule `json:"wave_3"`
}
