package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/vrp"
)

func strPtr(s string) *string { return &s }

// two vehicles, two assemblies: both vehicles run all three waves,
// meeting at assembly 1 after wave 1 and at assembly 2 after wave 2
func testSkillEncoder() (*SkillEncoder, *domain.Schedules) {
	vehicles := []domain.Vehicle{
		{ID: 1, Profile: domain.ProfileCar},
		{ID: 2, Profile: domain.ProfileCar},
	}
	assemblies := []domain.Assembly{
		{ID: 1},
		{ID: 2},
	}

	schedule := func(group1, group2 string, from, to int) domain.Schedule {
		return domain.Schedule{
			Vehicles: []domain.VehicleSchedule{
				{ID: 1, Group: strPtr(group1), FromAssemblyID: from, ToAssemblyID: intPtr(to), Running: true},
				{ID: 2, Group: strPtr(group2), FromAssemblyID: from, ToAssemblyID: intPtr(to), Running: true},
			},
		}
	}

	schedules := &domain.Schedules{
		Wave1: schedule("north", "south", 1, 1),
		Wave2: schedule("north", "south", 1, 2),
		Wave3: schedule("north", "south", 2, 2),
	}

	return NewSkillEncoder(vehicles, assemblies, schedules), schedules
}

// canServe reports whether a vehicle with the given skills satisfies
// the task's skill demands
func canServe(vehicleSkills, taskSkills []int) bool {
	held := make(map[int]struct{}, len(vehicleSkills))
	for _, s := range vehicleSkills {
		held[s] = struct{}{}
	}
	for _, s := range taskSkills {
		if _, ok := held[s]; !ok {
			return false
		}
	}
	return true
}

func vehicleSkillsFor(t *testing.T, e *SkillEncoder, schedules *domain.Schedules, wave, vehicleID int) []int {
	t.Helper()

	var schedule *domain.Schedule
	switch wave {
	case 1:
		schedule = &schedules.Wave1
	case 2:
		schedule = &schedules.Wave2
	case 3:
		schedule = &schedules.Wave3
	}

	for i := range schedule.Vehicles {
		if schedule.Vehicles[i].ID == vehicleID {
			return e.VehicleSkills(wave, &schedule.Vehicles[i])
		}
	}

	t.Fatalf("vehicle %d not in wave %d", vehicleID, wave)
	return nil
}

func TestSkillEncoder_VehicleSkillsExcludeOwn(t *testing.T) {
	enc, schedules := testSkillEncoder()

	// 2 vehicles across 3 waves, each vehicle missing exactly its own
	skills := vehicleSkillsFor(t, enc, schedules, 1, 1)
	assert.Len(t, skills, 5)
}

func TestSkillEncoder_TaskRestrictedToOnePair(t *testing.T) {
	enc, schedules := testSkillEncoder()

	task := enc.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: 1}})

	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 2), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 1), task))
}

func TestSkillEncoder_EmptyAllowedSetServesNobody(t *testing.T) {
	enc, schedules := testSkillEncoder()

	task := enc.TaskSkillsWaveVehicles(nil)
	require.Len(t, task, 6)

	for wave := 1; wave <= 3; wave++ {
		for _, vid := range []int{1, 2} {
			assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, wave, vid), task))
		}
	}
}

func TestSkillEncoder_WaitingPickup_CrossGroup(t *testing.T) {
	enc, schedules := testSkillEncoder()

	// picked up in the north, delivered in the south: vehicle 1 may
	// collect it in wave 1 or 2 because it meets vehicle 2 at the
	// rendezvous ending those waves
	work := &domain.Work{
		ID:     100,
		Pickup: domain.WorkPoint{Group: "north"},
		Delivery: domain.WorkPoint{
			Group: "south",
		},
	}

	task := enc.TaskSkillsWaitingPickup(work)

	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 1), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 3, 1), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 2), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 2), task))
}

func TestSkillEncoder_WaitingPickup_SameGroup(t *testing.T) {
	enc, schedules := testSkillEncoder()

	work := &domain.Work{
		ID:       101,
		Pickup:   domain.WorkPoint{Group: "north"},
		Delivery: domain.WorkPoint{Group: "north"},
	}

	task := enc.TaskSkillsWaitingPickup(work)

	// same vehicle may pick up and deliver within the same wave
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 1), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 2), task))
}

func TestSkillEncoder_MeetShippedVehicle(t *testing.T) {
	enc, schedules := testSkillEncoder()

	work := &domain.Work{
		ID:       102,
		Pickup:   domain.WorkPoint{Group: "north"},
		Delivery: domain.WorkPoint{Group: "south"},
	}

	// parcel sits on vehicle 1 after wave 1; vehicle 1 is not in the
	// delivery group, so only vehicle 2 (which shares vehicle 1's
	// wave-2 departure assembly) can deliver, in wave 2 or 3
	task := enc.TaskSkillsMeetShippedVehicle(work, 1, 1, true)

	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 1), task))
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 2), task))
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 3, 2), task))
}

func TestSkillEncoder_MeetShippedVehicle_CarrierDelivers(t *testing.T) {
	enc, schedules := testSkillEncoder()

	work := &domain.Work{
		ID:       103,
		Pickup:   domain.WorkPoint{Group: "north"},
		Delivery: domain.WorkPoint{Group: "north"},
	}

	task := enc.TaskSkillsMeetShippedVehicle(work, 1, 1, true)
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))

	// forbidding self-delivery removes the carrying pair
	task = enc.TaskSkillsMeetShippedVehicle(work, 1, 1, false)
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 1), task))
}

func TestSkillEncoder_WaitingShipment(t *testing.T) {
	enc, schedules := testSkillEncoder()

	work := &domain.Work{
		ID:       104,
		Pickup:   domain.WorkPoint{Group: "south"},
		Delivery: domain.WorkPoint{Group: "south"},
	}

	task := enc.TaskSkillsWaitingShipment(work)

	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 2), task))
	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 2), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 3, 2), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))
}

func TestSkillEncoder_AssemblyVisits(t *testing.T) {
	enc, schedules := testSkillEncoder()

	work := &domain.Work{
		ID:       105,
		Pickup:   domain.WorkPoint{Group: "north"},
		Delivery: domain.WorkPoint{Group: "south"},
		Status: domain.WorkStatus{
			Type:       domain.WorkStatusAssembly,
			AssemblyID: intPtr(1),
		},
	}

	// only pickup-group vehicles departing assembly 1 in wave 1
	task := enc.TaskSkillsAssemblyVisits(work,
		[]AssemblyVisit{{Wave: 1, Side: VisitStart, AssemblyID: 1}},
		true, false,
	)

	assert.True(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 1), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 1, 2), task))
	assert.False(t, canServe(vehicleSkillsFor(t, enc, schedules, 2, 1), task))
}

func TestPruneSkills(t *testing.T) {
	req := &vrp.Request{
		Jobs: []vrp.Job{
			{ID: 0, Skills: []int{2, 3}},
		},
		Vehicles: []vrp.Vehicle{
			{ID: 10000, Skills: []int{1, 2}},
			{ID: 10001, Skills: []int{1, 2, 3}},
		},
	}

	pruneSkills(req)

	// skill 1 is demanded by nothing, skill 2 is held by everyone:
	// only skill 3 still constrains the problem
	assert.Equal(t, []int{3}, req.Jobs[0].Skills)
	assert.Empty(t, req.Vehicles[0].Skills)
	assert.Equal(t, []int{3}, req.Vehicles[1].Skills)
}
