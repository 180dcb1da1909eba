package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_UnmarshalDefaults(t *testing.T) {
	payload := `{
		"current_time": 36000,
		"vehicles": [{"id": 1, "profile": "car", "location": [126.5, 33.5]}],
		"works": [],
		"assemblies": [{"id": 1, "location": [126.53, 33.51]}],
		"schedules": {
			"wave_1": {"start": 36000, "end": 43200, "vehicles": []},
			"wave_2": {"start": 45000, "vehicles": []},
			"wave_3": {"vehicles": []}
		}
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	assert.Equal(t, CurrentStatusWait, req.CurrentStatus)
	assert.Equal(t, AlgorithmHandlePickup, req.Algorithm.SecondAssembly.Type)
	assert.Equal(t, []int64{7200, 10800, 14400, 18000}, req.Algorithm.SecondAssembly.AssemblyTimeCandidates)

	assert.Equal(t, int64(900), req.Schedules.Wave1.StopoverWaitingTime)
	assert.Equal(t, int64(900), req.Schedules.Wave3.StopoverWaitingTime)
}

func TestRequest_ExplicitValuesKept(t *testing.T) {
	payload := `{
		"current_time": 40000,
		"current_status": "stopover",
		"vehicles": [],
		"works": [],
		"assemblies": [],
		"schedules": {
			"wave_1": {"start": 36000, "end": 43200, "vehicles": []},
			"wave_2": {"start": 45000, "vehicles": [], "stopover_waiting_time": 1200},
			"wave_3": {"vehicles": []}
		},
		"algorithm": {
			"second_assembly": {"type": "select_best", "assembly_time_candidates": [3600]}
		}
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(payload), &req))

	assert.Equal(t, CurrentStatusStopover, req.CurrentStatus)
	assert.Equal(t, AlgorithmSelectBest, req.Algorithm.SecondAssembly.Type)
	assert.Equal(t, []int64{3600}, req.Algorithm.SecondAssembly.AssemblyTimeCandidates)
	assert.Equal(t, int64(1200), req.Schedules.Wave2.StopoverWaitingTime)
}

func TestAlgorithm_PartialUnmarshal(t *testing.T) {
	var a Algorithm
	require.NoError(t, json.Unmarshal([]byte(`{"second_assembly": {"type": "select_best"}}`), &a))
	assert.Equal(t, AlgorithmSelectBest, a.SecondAssembly.Type)
	assert.Equal(t, []int64{7200, 10800, 14400, 18000}, a.SecondAssembly.AssemblyTimeCandidates)

	require.NoError(t, json.Unmarshal([]byte(`{"second_assembly": {"assembly_time_candidates": [600]}}`), &a))
	assert.Equal(t, AlgorithmHandlePickup, a.SecondAssembly.Type)
	assert.Equal(t, []int64{600}, a.SecondAssembly.AssemblyTimeCandidates)
}

func TestVehicleSchedule_RunningDefault(t *testing.T) {
	var vs VehicleSchedule
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "from_assembly_id": 1}`), &vs))
	assert.True(t, vs.Running)

	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "from_assembly_id": 1, "running": false}`), &vs))
	assert.False(t, vs.Running)
}

func TestVehicleSchedule_FirstUndoneTask(t *testing.T) {
	workID := 42

	vs := VehicleSchedule{Tasks: []Task{
		{Type: TaskTypeDeparture, Done: true},
		{Type: TaskTypePickup, WorkID: &workID, Done: true},
		{Type: TaskTypeWaiting},
		{Type: TaskTypeDelivery, WorkID: &workID},
		{Type: TaskTypeArrival},
	}}

	// departures, arrivals and waits are not work tasks
	task := vs.FirstUndoneTask()
	require.NotNil(t, task)
	assert.Equal(t, TaskTypeDelivery, task.Type)

	vs.Tasks[3].Done = true
	assert.Nil(t, vs.FirstUndoneTask())
}
