package planner

import (
	"github.com/roouty-platform/dynamic-engine/internal/domain"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
)

// Solver vehicle index prefixes per wave. Every vehicle appears once
// per wave it is scheduled in, so the prefix disambiguates the three
// copies inside a single solver request.
const (
	Wave1Prefix = 10000
	Wave2Prefix = 20000
	Wave3Prefix = 30000
)

// Wave is one wave's schedule with the vehicle index mapping for the
// solver request.
type Wave struct {
	Vehicles []domain.VehicleSchedule
	ByID     map[int]*domain.VehicleSchedule

	StartTime int64
	EndTime   int64

	// AssemblyStopoverTimes carries the rendezvous times a prior plan
	// committed, nil when the request did not provide them
	AssemblyStopoverTimes map[int]int64
	StopoverWaitingTime   int64

	prefix  int
	indexes map[int]int
}

func newWave(schedule *domain.Schedule, prefix int) *Wave {
	w := &Wave{
		Vehicles:            schedule.Vehicles,
		ByID:                make(map[int]*domain.VehicleSchedule, len(schedule.Vehicles)),
		StopoverWaitingTime: schedule.StopoverWaitingTime,
		prefix:              prefix,
		indexes:             make(map[int]int, len(schedule.Vehicles)),
	}

	for i := range schedule.Vehicles {
		vs := &schedule.Vehicles[i]
		w.ByID[vs.ID] = vs
		w.indexes[vs.ID] = i
	}

	if schedule.Start != nil {
		w.StartTime = *schedule.Start
	}
	if schedule.End != nil {
		w.EndTime = *schedule.End
	}

	if schedule.AssemblyStopoverTime != nil {
		w.AssemblyStopoverTimes = make(map[int]int64, len(schedule.AssemblyStopoverTime))
		for _, ast := range schedule.AssemblyStopoverTime {
			w.AssemblyStopoverTimes[ast.AssemblyID] = ast.StopoverTime
		}
	}

	return w
}

// VehicleIDToIndex maps a vehicle id to its prefixed solver index
func (w *Wave) VehicleIDToIndex(id int) int {
	return w.prefix + w.indexes[id]
}

// VehicleIndexToID maps a prefixed solver index back to the vehicle id
func (w *Wave) VehicleIndexToID(index int) int {
	return w.Vehicles[index-w.prefix].ID
}

// Waves decomposes the operating day into its three consecutive waves
type Waves struct {
	W1 *Wave
	W2 *Wave
	W3 *Wave
}

// NewWaves builds the wave registry. The wave-1 working window and the
// wave-2 start are required for planning; missing values are a request
// error.
func NewWaves(schedules *domain.Schedules) (*Waves, error) {
	if schedules.Wave1.Start == nil || schedules.Wave1.End == nil {
		return nil, apperrors.ErrValidation("schedules.wave_1 requires start and end")
	}
	if schedules.Wave2.Start == nil {
		return nil, apperrors.ErrValidation("schedules.wave_2 requires start")
	}

	return &Waves{
		W1: newWave(&schedules.Wave1, Wave1Prefix),
		W2: newWave(&schedules.Wave2, Wave2Prefix),
		W3: newWave(&schedules.Wave3, Wave3Prefix),
	}, nil
}

// VehicleIndexToID resolves a prefixed solver index to its wave number
// and vehicle id.
func (ws *Waves) VehicleIndexToID(index int) (int, int) {
	switch {
	case index >= Wave3Prefix:
		return 3, ws.W3.VehicleIndexToID(index)
	case index >= Wave2Prefix:
		return 2, ws.W2.VehicleIndexToID(index)
	default:
		return 1, ws.W1.VehicleIndexToID(index)
	}
}
