package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/vrp"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
)

// greedySolver assigns every job and shipment to the first vehicle
// whose skill set covers it, in request order, and reports the rest
// unassigned. Arrivals tick up from the vehicle's window opening; the
// route ends a fixed travel budget after it opens, so rendezvous times
// derived from end-step arrivals are deterministic.
type greedySolver struct {
	calls int
}

func (g *greedySolver) Solve(_ context.Context, req *vrp.Request) (*vrp.Response, error) {
	g.calls++

	held := make([]map[int]struct{}, len(req.Vehicles))
	for i, v := range req.Vehicles {
		held[i] = make(map[int]struct{}, len(v.Skills))
		for _, s := range v.Skills {
			held[i][s] = struct{}{}
		}
	}

	serves := func(i int, skills []int) bool {
		for _, s := range skills {
			if _, ok := held[i][s]; !ok {
				return false
			}
		}
		return true
	}

	assigned := make([][]vrp.Step, len(req.Vehicles))
	var unassigned []vrp.Unassigned

	for _, j := range req.Jobs {
		placed := false
		for i := range req.Vehicles {
			if serves(i, j.Skills) {
				assigned[i] = append(assigned[i], vrp.Step{Type: vrp.StepTypeJob, ID: j.ID, Location: j.Location})
				placed = true
				break
			}
		}
		if !placed {
			unassigned = append(unassigned, vrp.Unassigned{ID: j.ID})
		}
	}

	for _, sh := range req.Shipments {
		placed := false
		for i := range req.Vehicles {
			if serves(i, sh.Skills) {
				assigned[i] = append(assigned[i],
					vrp.Step{Type: vrp.StepTypePickup, ID: sh.Pickup.ID, Location: sh.Pickup.Location},
					vrp.Step{Type: vrp.StepTypeDelivery, ID: sh.Delivery.ID, Location: sh.Delivery.Location},
				)
				placed = true
				break
			}
		}
		if !placed {
			unassigned = append(unassigned,
				vrp.Unassigned{ID: sh.Pickup.ID},
				vrp.Unassigned{ID: sh.Delivery.ID},
			)
		}
	}

	resp := &vrp.Response{Unassigned: unassigned}

	for i, v := range req.Vehicles {
		steps := []vrp.Step{{Type: vrp.StepTypeStart, Arrival: v.TimeWindow[0], Location: v.Start}}

		eta := v.TimeWindow[0]
		for _, s := range assigned[i] {
			eta += 600
			s.Arrival = eta
			steps = append(steps, s)
		}

		end := vrp.Step{Type: vrp.StepTypeEnd, Arrival: v.TimeWindow[0] + 5000}
		if v.End != nil {
			end.Location = *v.End
		}
		steps = append(steps, end)

		for j := range steps {
			steps[j].Distance = float64(1000 * j)
		}

		resp.Routes = append(resp.Routes, vrp.Route{Vehicle: v.ID, Steps: steps})
	}

	return resp, nil
}

func constantRouter() Router {
	return routerFunc(func(_ context.Context, _ domain.Profile, locations []domain.Coordinate) ([]RouteLeg, error) {
		legs := make([]RouteLeg, len(locations)-1)
		for i := range legs {
			legs[i] = RouteLeg{Duration: 60, Distance: 500}
		}
		return legs, nil
	})
}

func newPlanService(solver Solver) *Service {
	return NewService(solver, constantRouter(), "v-test", testLogger(), nil)
}

// planRequest builds a two-vehicle day: vehicle 1 covers the north,
// vehicle 2 the south, both assembling at hub 1 after wave 1 and at
// hub 2 after wave 2.
func planRequest(works ...domain.Work) *domain.Request {
	return &domain.Request{
		CurrentTime:   30000,
		CurrentStatus: domain.CurrentStatusWait,
		Vehicles: []domain.Vehicle{
			{ID: 1, Profile: domain.ProfileCar, Location: domain.Coordinate{126.52, 33.50}},
			{ID: 2, Profile: domain.ProfileCar, Location: domain.Coordinate{126.56, 33.25}},
		},
		Assemblies: []domain.Assembly{
			{ID: 1, Location: domain.Coordinate{126.53, 33.51}},
			{ID: 2, Location: domain.Coordinate{126.58, 33.30}},
		},
		Works: works,
		Schedules: domain.Schedules{
			Wave1: domain.Schedule{
				Start: i64(36000),
				End:   i64(43200),
				Vehicles: []domain.VehicleSchedule{
					{ID: 1, Group: strPtr("north"), FromAssemblyID: 1, ToAssemblyID: intPtr(1), Running: true},
					{ID: 2, Group: strPtr("south"), FromAssemblyID: 1, ToAssemblyID: intPtr(1), Running: true},
				},
				StopoverWaitingTime: 900,
			},
			Wave2: domain.Schedule{
				Start: i64(45000),
				Vehicles: []domain.VehicleSchedule{
					{ID: 1, Group: strPtr("north"), FromAssemblyID: 1, ToAssemblyID: intPtr(2), Running: true},
					{ID: 2, Group: strPtr("south"), FromAssemblyID: 1, ToAssemblyID: intPtr(2), Running: true},
				},
				StopoverWaitingTime: 900,
			},
			Wave3: domain.Schedule{
				Vehicles: []domain.VehicleSchedule{
					{ID: 1, Group: strPtr("north"), FromAssemblyID: 2, Running: true},
					{ID: 2, Group: strPtr("south"), FromAssemblyID: 2, Running: true},
				},
				StopoverWaitingTime: 900,
			},
		},
		Algorithm: domain.DefaultAlgorithm(),
	}
}

func vehicleTasks(t *testing.T, wave []domain.VehicleTasks, vehicleID int) []domain.Task {
	t.Helper()
	for _, vt := range wave {
		if vt.VehicleID == vehicleID {
			return vt.Tasks
		}
	}
	t.Fatalf("vehicle %d has no task list", vehicleID)
	return nil
}

func vehicleSwaps(t *testing.T, swaps []domain.VehicleSwaps, vehicleID int) domain.VehicleSwaps {
	t.Helper()
	for _, sw := range swaps {
		if sw.VehicleID == vehicleID {
			return sw
		}
	}
	t.Fatalf("vehicle %d has no swap manifest", vehicleID)
	return domain.VehicleSwaps{}
}

func taskTypes(tasks []domain.Task) []domain.TaskType {
	types := make([]domain.TaskType, len(tasks))
	for i, task := range tasks {
		types[i] = task.Type
	}
	return types
}

func TestPlanDay_SameGroupWorkStaysOnOneVehicle(t *testing.T) {
	req := planRequest(domain.Work{
		ID:       100,
		Pickup:   domain.WorkPoint{Group: "north", Location: domain.Coordinate{126.51, 33.49}},
		Delivery: domain.WorkPoint{Group: "north", Location: domain.Coordinate{126.54, 33.52}},
	})

	resp, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "v-test", resp.V)

	tasks := vehicleTasks(t, resp.Wave1, 1)
	assert.Equal(t, []domain.TaskType{
		domain.TaskTypeDeparture,
		domain.TaskTypePickup,
		domain.TaskTypeDelivery,
		domain.TaskTypeArrival,
	}, taskTypes(tasks))
	assert.Equal(t, 100, *tasks[1].WorkID)
	assert.Equal(t, 100, *tasks[2].WorkID)
	assert.Equal(t, 1, *tasks[0].AssemblyID)
	assert.Equal(t, 1, *tasks[3].AssemblyID)

	// the other vehicle just drives between its assemblies
	assert.Equal(t, []domain.TaskType{
		domain.TaskTypeDeparture,
		domain.TaskTypeArrival,
	}, taskTypes(vehicleTasks(t, resp.Wave1, 2)))

	// no vehicle change, so nothing crosses the rendezvous
	for _, sw := range resp.Swap12 {
		assert.Empty(t, sw.Down)
		assert.Empty(t, sw.Up)
		assert.Equal(t, int64(43200), *sw.StopoverTime)
	}
	for _, sw := range resp.Swap23 {
		assert.Empty(t, sw.Down)
		assert.Empty(t, sw.Up)
		// the latest wave-2 arrival at hub 2 closes the rendezvous
		assert.Equal(t, int64(50000), *sw.StopoverTime)
		assert.Equal(t, 2, sw.AssemblyID)
	}

	// wave 2 frames its run between departure and the rendezvous
	w2 := vehicleTasks(t, resp.Wave2, 1)
	assert.Equal(t, []domain.TaskType{domain.TaskTypeDeparture, domain.TaskTypeArrival}, taskTypes(w2))
	assert.Equal(t, int64(45000), w2[0].ETA)
	assert.Equal(t, 2, *w2[1].AssemblyID)

	w3 := vehicleTasks(t, resp.Wave3, 1)
	require.Len(t, w3, 2)
	assert.Equal(t, 2, *w3[0].AssemblyID)
	assert.Nil(t, w3[1].AssemblyID)

	// road legs are filled in behind the departure
	assert.Zero(t, tasks[0].Duration)
	assert.Equal(t, float64(60), tasks[1].Duration)
	assert.Equal(t, float64(500), tasks[1].Distance)
}

func TestPlanDay_CrossGroupWorkSwapsAtFirstRendezvous(t *testing.T) {
	req := planRequest(domain.Work{
		ID:       200,
		Pickup:   domain.WorkPoint{Group: "north", Location: domain.Coordinate{126.51, 33.49}},
		Delivery: domain.WorkPoint{Group: "south", Location: domain.Coordinate{126.57, 33.26}},
	})

	resp, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.NoError(t, err)

	// vehicle 1 collects in wave 1, sets the parcel down at hub 1, and
	// vehicle 2 takes it up for its wave-2 run
	assert.Equal(t, []int{200}, vehicleSwaps(t, resp.Swap12, 1).Down)
	assert.Equal(t, []int{200}, vehicleSwaps(t, resp.Swap12, 2).Up)
	assert.Empty(t, vehicleSwaps(t, resp.Swap12, 1).Up)
	assert.Empty(t, vehicleSwaps(t, resp.Swap12, 2).Down)

	deliveries := vehicleTasks(t, resp.Wave2, 2)
	require.Len(t, deliveries, 3)
	assert.Equal(t, domain.TaskTypeDelivery, deliveries[1].Type)
	assert.Equal(t, 200, *deliveries[1].WorkID)

	for _, sw := range resp.Swap23 {
		assert.Empty(t, sw.Down)
		assert.Empty(t, sw.Up)
	}
}

func TestPlanDay_UnservableWorkNeedsCommittedRendezvous(t *testing.T) {
	req := planRequest(domain.Work{
		ID:       999,
		Pickup:   domain.WorkPoint{Group: "ghost"},
		Delivery: domain.WorkPoint{Group: "south"},
	})

	_, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeBadRequest, appErr.Code)
	assert.Contains(t, appErr.Message, "assembly_stopover_time")
}

func TestPlanDay_SelectBestUsesCandidateRendezvousTimes(t *testing.T) {
	req := planRequest(domain.Work{
		ID:       100,
		Pickup:   domain.WorkPoint{Group: "north"},
		Delivery: domain.WorkPoint{Group: "north"},
	})
	req.Algorithm = domain.Algorithm{
		SecondAssembly: domain.SecondAssemblyAlgorithm{
			Type:                   domain.AlgorithmSelectBest,
			AssemblyTimeCandidates: []int64{7200, 10800},
		},
	}

	resp, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.NoError(t, err)

	// equal costs keep the first candidate: wave-2 start plus 7200
	for _, sw := range resp.Swap23 {
		assert.Equal(t, int64(52200), *sw.StopoverTime)
	}
}

func TestPlanDay_UnknownAlgorithmRejected(t *testing.T) {
	req := planRequest()
	req.Algorithm.SecondAssembly.Type = "mystery"

	_, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeBadRequest, appErr.Code)
}

func TestPlanDay_Wave2StatusNotSupported(t *testing.T) {
	req := planRequest(domain.Work{
		ID:       100,
		Pickup:   domain.WorkPoint{Group: "north"},
		Delivery: domain.WorkPoint{Group: "north"},
	})
	req.CurrentStatus = domain.CurrentStatusWave2

	_, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeBadRequest, appErr.Code)
	assert.Contains(t, appErr.Message, "wave_2")
}

func TestPlanDay_ValidationFailures(t *testing.T) {
	t.Run("unknown vehicle in schedule", func(t *testing.T) {
		req := planRequest()
		req.Schedules.Wave1.Vehicles = append(req.Schedules.Wave1.Vehicles, domain.VehicleSchedule{
			ID: 99, FromAssemblyID: 1, ToAssemblyID: intPtr(1), Running: true,
		})

		_, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
		require.Error(t, err)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	})

	t.Run("handle_pickup without vehicle", func(t *testing.T) {
		req := planRequest(domain.Work{
			ID:     600,
			Status: domain.WorkStatus{Type: domain.WorkStatusHandlePickup},
		})

		_, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
		require.Error(t, err)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	})
}

func TestPlanDay_RunningVehiclePromotesItsNextWork(t *testing.T) {
	pickupLoc := domain.Coordinate{126.51, 33.49}

	req := planRequest(domain.Work{
		ID:       400,
		Pickup:   domain.WorkPoint{Group: "north", Location: pickupLoc},
		Delivery: domain.WorkPoint{Group: "south", Location: domain.Coordinate{126.57, 33.26}},
	})
	req.CurrentStatus = domain.CurrentStatusWave1
	req.CurrentTime = 43000

	// vehicle 1 is already driving toward the pickup this close to the
	// wave-1 cutoff, so the first optimization cannot replan it and
	// falls back to the committed rendezvous times
	req.Schedules.Wave1.Vehicles[0].Tasks = []domain.Task{
		{Type: domain.TaskTypeDeparture, ETA: 36000, AssemblyID: intPtr(1), Done: true},
		{Type: domain.TaskTypePickup, WorkID: intPtr(400), ETA: 42000, Location: pickupLoc},
	}
	req.Schedules.Wave2.AssemblyStopoverTime = []domain.AssemblyStopoverTime{
		{AssemblyID: 2, StopoverTime: 51000},
	}

	resp, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.WorkStatusHandlePickup, req.Works[0].Status.Type)
	require.NotNil(t, req.Works[0].Status.VehicleID)
	assert.Equal(t, 1, *req.Works[0].Status.VehicleID)

	tasks := vehicleTasks(t, resp.Wave1, 1)
	assert.Equal(t, []domain.TaskType{
		domain.TaskTypeDeparture,
		domain.TaskTypePickup,
		domain.TaskTypeArrival,
	}, taskTypes(tasks))
	assert.True(t, tasks[0].Done)
	assert.Equal(t, 400, *tasks[1].WorkID)

	// vehicle 2 delivers south of the rendezvous in wave 2
	assert.Equal(t, []int{400}, vehicleSwaps(t, resp.Swap12, 1).Down)
	assert.Equal(t, []int{400}, vehicleSwaps(t, resp.Swap12, 2).Up)

	assert.Equal(t, int64(51000), *vehicleSwaps(t, resp.Swap23, 1).StopoverTime)
}

func TestPlanDay_StopoverReplanFollowsPinnedSwaps(t *testing.T) {
	req := planRequest(domain.Work{
		ID:       500,
		Pickup:   domain.WorkPoint{Group: "north", Location: domain.Coordinate{126.51, 33.49}},
		Delivery: domain.WorkPoint{Group: "south", Location: domain.Coordinate{126.57, 33.26}},
		Status:   domain.WorkStatus{Type: domain.WorkStatusShipped, VehicleID: intPtr(1)},
	})
	req.CurrentStatus = domain.CurrentStatusStopover
	req.CurrentTime = 44000

	req.Schedules.Wave1.Vehicles[0].Tasks = []domain.Task{
		{Type: domain.TaskTypeDeparture, ETA: 36000, AssemblyID: intPtr(1), Done: true},
		{Type: domain.TaskTypePickup, WorkID: intPtr(500), ETA: 42000, Done: true},
		{Type: domain.TaskTypeArrival, ETA: 43200, AssemblyID: intPtr(1), Done: true},
	}
	req.Schedules.Wave1.Vehicles[0].Down = []int{500}
	req.Schedules.Wave2.Vehicles[1].Up = []int{500}

	resp, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.NoError(t, err)

	// the completed wave-1 run is preserved verbatim
	tasks := vehicleTasks(t, resp.Wave1, 1)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.True(t, task.Done)
	}
	assert.Equal(t, 1, *tasks[2].AssemblyID)

	// the pinned handover is rederived, not invented anew
	assert.Equal(t, []int{500}, vehicleSwaps(t, resp.Swap12, 1).Down)
	assert.Equal(t, []int{500}, vehicleSwaps(t, resp.Swap12, 2).Up)

	deliveries := vehicleTasks(t, resp.Wave2, 2)
	require.Len(t, deliveries, 3)
	assert.Equal(t, domain.TaskTypeDelivery, deliveries[1].Type)
	assert.Equal(t, 500, *deliveries[1].WorkID)
}

func TestPlanDay_RemainingWorkMustFitTheDay(t *testing.T) {
	pickupLoc := domain.Coordinate{126.51, 33.49}

	req := planRequest(domain.Work{
		ID:       400,
		Pickup:   domain.WorkPoint{Group: "north", Location: pickupLoc},
		Delivery: domain.WorkPoint{Group: "south", Location: domain.Coordinate{126.57, 33.26}},
	})
	req.CurrentStatus = domain.CurrentStatusWave1

	// the day is over for vehicle 1 but its pickup is pinned to it
	req.CurrentTime = 43250
	req.Schedules.Wave1.Vehicles[0].Tasks = []domain.Task{
		{Type: domain.TaskTypeDeparture, ETA: 36000, AssemblyID: intPtr(1), Done: true},
		{Type: domain.TaskTypePickup, WorkID: intPtr(400), ETA: 42000, Location: pickupLoc},
	}
	req.Schedules.Wave2.AssemblyStopoverTime = []domain.AssemblyStopoverTime{
		{AssemblyID: 2, StopoverTime: 51000},
	}

	_, err := newPlanService(&greedySolver{}).PlanDay(context.Background(), req)
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodePlanningError, appErr.Code)
}
