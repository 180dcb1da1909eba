package planner

import (
	"sort"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
)

// WaveVehicle identifies one vehicle within one wave
type WaveVehicle struct {
	Wave      int
	VehicleID int
}

// VisitSide distinguishes the assembly a vehicle departs from at the
// start of a wave from the one it arrives at when the wave ends.
type VisitSide int

const (
	VisitStart VisitSide = iota
	VisitEnd
)

// AssemblyVisit names one side of one assembly in one wave
type AssemblyVisit struct {
	Wave       int
	Side       VisitSide
	AssemblyID int
}

// SkillEncoder expresses "which (wave, vehicle) pairs may handle this
// task" in the solver's skill vocabulary. Skills are negative: one
// skill per (wave, vehicle) pair meaning "not handled by that pair".
// Every vehicle carries every skill except its own, so a task allowed
// only on a set S is given the skills of every pair outside S — any
// pair outside S lacks exactly the skill excluding itself.
type SkillEncoder struct {
	next int
	ids  map[WaveVehicle]int

	waves      []int
	vehicleIDs []int

	groupVehicles map[string]map[WaveVehicle]struct{}

	// assembly id -> vehicles departing from (starts) or arriving at
	// (ends) that assembly, per wave
	assemblyStarts map[int]map[int]map[int]struct{}
	assemblyEnds   map[int]map[int]map[int]struct{}
}

func NewSkillEncoder(vehicles []domain.Vehicle, assemblies []domain.Assembly, schedules *domain.Schedules) *SkillEncoder {
	e := &SkillEncoder{
		ids:            make(map[WaveVehicle]int),
		waves:          []int{1, 2, 3},
		vehicleIDs:     make([]int, 0, len(vehicles)),
		groupVehicles:  make(map[string]map[WaveVehicle]struct{}),
		assemblyStarts: make(map[int]map[int]map[int]struct{}),
		assemblyEnds:   make(map[int]map[int]map[int]struct{}),
	}

	for _, v := range vehicles {
		e.vehicleIDs = append(e.vehicleIDs, v.ID)
	}

	for _, w := range e.waves {
		e.assemblyStarts[w] = make(map[int]map[int]struct{}, len(assemblies))
		e.assemblyEnds[w] = make(map[int]map[int]struct{}, len(assemblies))

		for _, a := range assemblies {
			e.assemblyStarts[w][a.ID] = make(map[int]struct{})
			e.assemblyEnds[w][a.ID] = make(map[int]struct{})
		}

		for _, v := range vehicles {
			key := WaveVehicle{Wave: w, VehicleID: v.ID}
			if _, ok := e.ids[key]; !ok {
				e.ids[key] = e.next
				e.next++
			}
		}
	}

	for w, schedule := range map[int]*domain.Schedule{
		1: &schedules.Wave1,
		2: &schedules.Wave2,
		3: &schedules.Wave3,
	} {
		for i := range schedule.Vehicles {
			vs := &schedule.Vehicles[i]

			if vs.Group != nil {
				group := *vs.Group
				if e.groupVehicles[group] == nil {
					e.groupVehicles[group] = make(map[WaveVehicle]struct{})
				}
				e.groupVehicles[group][WaveVehicle{Wave: w, VehicleID: vs.ID}] = struct{}{}
			}

			e.assemblyStarts[w][vs.FromAssemblyID][vs.ID] = struct{}{}
			if vs.ToAssemblyID != nil {
				e.assemblyEnds[w][*vs.ToAssemblyID][vs.ID] = struct{}{}
			}
		}
	}

	return e
}

// VehicleSkills returns the skills of one (wave, vehicle): every
// negative skill except the vehicle's own.
func (e *SkillEncoder) VehicleSkills(wave int, vs *domain.VehicleSchedule) []int {
	skills := make([]int, 0, len(e.ids)-1)

	for _, w := range e.waves {
		for _, v := range e.vehicleIDs {
			if w == wave && v == vs.ID {
				continue
			}
			skills = append(skills, e.ids[WaveVehicle{Wave: w, VehicleID: v}])
		}
	}

	sort.Ints(skills)
	return skills
}

// TaskSkillsWaveVehicles returns the skills restricting a task to the
// given (wave, vehicle) pairs.
func (e *SkillEncoder) TaskSkillsWaveVehicles(allowed []WaveVehicle) []int {
	allowedSet := make(map[WaveVehicle]struct{}, len(allowed))
	for _, wv := range allowed {
		allowedSet[wv] = struct{}{}
	}

	skills := make([]int, 0, len(e.ids))

	for _, w := range e.waves {
		for _, v := range e.vehicleIDs {
			key := WaveVehicle{Wave: w, VehicleID: v}
			if _, ok := allowedSet[key]; ok {
				continue
			}
			skills = append(skills, e.ids[key])
		}
	}

	sort.Ints(skills)
	return skills
}

// TaskSkillsAssemblyVisits restricts a task to vehicles touching the
// given assembly sides, optionally filtered to the work's pickup or
// delivery group.
func (e *SkillEncoder) TaskSkillsAssemblyVisits(work *domain.Work, visits []AssemblyVisit, pickupGroup, deliveryGroup bool) []int {
	allowed := make(map[WaveVehicle]struct{})

	for _, visit := range visits {
		vehicles := e.assemblyStarts[visit.Wave][visit.AssemblyID]
		if visit.Side == VisitEnd {
			vehicles = e.assemblyEnds[visit.Wave][visit.AssemblyID]
		}

		for v := range vehicles {
			key := WaveVehicle{Wave: visit.Wave, VehicleID: v}
			if pickupGroup && !e.inGroup(work.Pickup.Group, key) {
				continue
			}
			if deliveryGroup && !e.inGroup(work.Delivery.Group, key) {
				continue
			}
			allowed[key] = struct{}{}
		}
	}

	return e.TaskSkillsWaveVehicles(setToSlice(allowed))
}

// TaskSkillsMeetShippedVehicle restricts a delivery to the vehicle
// currently carrying the parcel (when it may deliver itself) and to
// the delivery-group vehicles it hands over to at later rendezvous.
func (e *SkillEncoder) TaskSkillsMeetShippedVehicle(work *domain.Work, wave, vehicleID int, shippedCanDeliver bool) []int {
	allowed := make(map[WaveVehicle]struct{})

	if shippedCanDeliver && e.inGroup(work.Delivery.Group, WaveVehicle{Wave: wave, VehicleID: vehicleID}) {
		allowed[WaveVehicle{Wave: wave, VehicleID: vehicleID}] = struct{}{}
	}

	for w := wave + 1; w <= 3; w++ {
		for _, vehicles := range e.assemblyStarts[w] {
			if _, ok := vehicles[vehicleID]; !ok {
				continue
			}

			for v := range vehicles {
				if !e.inGroup(work.Delivery.Group, WaveVehicle{Wave: w, VehicleID: v}) {
					continue
				}
				for ww := w; ww <= 3; ww++ {
					allowed[WaveVehicle{Wave: ww, VehicleID: v}] = struct{}{}
				}
			}
		}
	}

	return e.TaskSkillsWaveVehicles(setToSlice(allowed))
}

// TaskSkillsWaitingPickup restricts an unstarted pickup to the
// pickup-group vehicles that will meet a delivery-group vehicle in
// time: the pickup wave must end at an assembly both vehicles visit,
// no later than the delivery wave.
func (e *SkillEncoder) TaskSkillsWaitingPickup(work *domain.Work) []int {
	allowed := make(map[WaveVehicle]struct{})

	for pickup := range e.groupVehicles[work.Pickup.Group] {
		// pickups are never handled in wave 3
		if pickup.Wave != 1 && pickup.Wave != 2 {
			continue
		}

		for delivery := range e.groupVehicles[work.Delivery.Group] {
			if pickup.VehicleID != delivery.VehicleID && pickup.Wave >= delivery.Wave {
				continue
			}
			if pickup.VehicleID == delivery.VehicleID && pickup.Wave > delivery.Wave {
				continue
			}

			for _, vehicles := range e.assemblyEnds[pickup.Wave] {
				_, hasPickup := vehicles[pickup.VehicleID]
				_, hasDelivery := vehicles[delivery.VehicleID]
				if hasPickup && hasDelivery {
					allowed[pickup] = struct{}{}
				}
			}
		}
	}

	return e.TaskSkillsWaveVehicles(setToSlice(allowed))
}

// TaskSkillsWaitingShipment restricts a same-group shipment to the
// pickup-group vehicles of waves 1 and 2.
func (e *SkillEncoder) TaskSkillsWaitingShipment(work *domain.Work) []int {
	allowed := make(map[WaveVehicle]struct{})

	for wv := range e.groupVehicles[work.Pickup.Group] {
		if wv.Wave != 1 && wv.Wave != 2 {
			continue
		}
		allowed[wv] = struct{}{}
	}

	return e.TaskSkillsWaveVehicles(setToSlice(allowed))
}

func (e *SkillEncoder) inGroup(group string, wv WaveVehicle) bool {
	_, ok := e.groupVehicles[group][wv]
	return ok
}

func setToSlice(set map[WaveVehicle]struct{}) []WaveVehicle {
	out := make([]WaveVehicle, 0, len(set))
	for wv := range set {
		out = append(out, wv)
	}
	return out
}
