// Package planner builds a full-day delivery plan from the current
// state of the fleet: it decomposes the day into three waves joined by
// assembly rendezvous, encodes cross-wave handover constraints as
// solver skills, and binary-searches the earliest feasible closing
// times for the rendezvous.
package planner

import (
	"strconv"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
	"github.com/roouty-platform/dynamic-engine/pkg/logging"
	"github.com/roouty-platform/dynamic-engine/pkg/metrics"
)

// Engine holds the planning state of a single request: the entity
// lookups, the skill and index encodings, and what wave 1 has already
// done. It is not safe for concurrent use; build one per request.
type Engine struct {
	solver  Solver
	router  Router
	log     *logging.Logger
	metrics *metrics.Metrics

	vehicles   map[int]*domain.Vehicle
	assemblies map[int]*domain.Assembly
	works      map[int]*domain.Work
	workOrder  []int

	skills   *SkillEncoder
	registry *JobRegistry
	waves    *Waves

	// progress recovered from the wave-1 schedule
	wave1DonePickups    map[int]int
	wave1DoneDeliveries map[int]int
	wave1Departed       map[int]struct{}
	wave1Arrived        map[int]struct{}

	// pickup assignments decided by the first optimization
	wave1Pickups   map[int]int
	wave1Shipments map[int]int
	wave2Pickups   map[int]int
	wave2Shipments map[int]int

	// rendezvous closing times per assembly
	wave2StopoverTimes map[int]int64

	// swap manifests pinned by a prior plan, populated at stopover
	swap12Down map[int]int
	swap12Up   map[int]int
	swap23Down map[int]int
	swap23Up   map[int]int
}

// NewEngine builds the planning state for one request
func NewEngine(req *domain.Request, solver Solver, router Router, log *logging.Logger, m *metrics.Metrics) (*Engine, error) {
	waves, err := NewWaves(&req.Schedules)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		solver:  solver,
		router:  router,
		log:     log,
		metrics: m,

		vehicles:   make(map[int]*domain.Vehicle, len(req.Vehicles)),
		assemblies: make(map[int]*domain.Assembly, len(req.Assemblies)),
		works:      make(map[int]*domain.Work, len(req.Works)),

		skills:   NewSkillEncoder(req.Vehicles, req.Assemblies, &req.Schedules),
		registry: NewJobRegistry(),
		waves:    waves,

		wave1DonePickups:    make(map[int]int),
		wave1DoneDeliveries: make(map[int]int),
		wave1Departed:       make(map[int]struct{}),
		wave1Arrived:        make(map[int]struct{}),
		wave1Pickups:        make(map[int]int),
		wave1Shipments:      make(map[int]int),
		wave2Pickups:        make(map[int]int),
		wave2Shipments:      make(map[int]int),
		wave2StopoverTimes:  make(map[int]int64),
		swap12Down:          make(map[int]int),
		swap12Up:            make(map[int]int),
		swap23Down:          make(map[int]int),
		swap23Up:            make(map[int]int),
	}

	for i := range req.Vehicles {
		e.vehicles[req.Vehicles[i].ID] = &req.Vehicles[i]
	}
	for i := range req.Assemblies {
		e.assemblies[req.Assemblies[i].ID] = &req.Assemblies[i]
	}
	for i := range req.Works {
		e.works[req.Works[i].ID] = &req.Works[i]
		e.workOrder = append(e.workOrder, req.Works[i].ID)
	}

	if err := e.validate(); err != nil {
		return nil, err
	}

	for i := range e.waves.W1.Vehicles {
		vs := &e.waves.W1.Vehicles[i]
		for _, t := range vs.Tasks {
			if !t.Done {
				continue
			}
			switch t.Type {
			case domain.TaskTypePickup:
				if t.WorkID != nil {
					e.wave1DonePickups[*t.WorkID] = vs.ID
				}
			case domain.TaskTypeDelivery:
				if t.WorkID != nil {
					e.wave1DoneDeliveries[*t.WorkID] = vs.ID
				}
			case domain.TaskTypeDeparture:
				e.wave1Departed[vs.ID] = struct{}{}
			case domain.TaskTypeArrival:
				e.wave1Arrived[vs.ID] = struct{}{}
			}
		}
	}

	if req.CurrentStatus == domain.CurrentStatusStopover {
		for i := range e.waves.W1.Vehicles {
			vs := &e.waves.W1.Vehicles[i]
			for _, d := range vs.Down {
				e.swap12Down[d] = vs.ID
			}
		}

		for i := range e.waves.W2.Vehicles {
			vs := &e.waves.W2.Vehicles[i]
			for _, u := range vs.Up {
				e.swap12Up[u] = vs.ID
			}
			for _, d := range vs.Down {
				e.swap23Down[d] = vs.ID
			}
		}

		for i := range e.waves.W3.Vehicles {
			vs := &e.waves.W3.Vehicles[i]
			for _, u := range vs.Up {
				e.swap23Up[u] = vs.ID
			}
		}
	}

	return e, nil
}

// validate checks the referential integrity the planner relies on:
// scheduled vehicles must exist in the fleet, waves 1 and 2 must end
// at a known assembly, and every wave must depart from one.
func (e *Engine) validate() error {
	check := func(wave int, vehicles []domain.VehicleSchedule, needEnd bool) error {
		for i := range vehicles {
			vs := &vehicles[i]

			if _, ok := e.vehicles[vs.ID]; !ok {
				return apperrors.ErrValidation("unknown vehicle in schedule").
					WithDetail("wave", waveName(wave)).
					WithDetail("vehicle_id", itoa(vs.ID))
			}
			if _, ok := e.assemblies[vs.FromAssemblyID]; !ok {
				return apperrors.ErrValidation("unknown from_assembly_id in schedule").
					WithDetail("wave", waveName(wave)).
					WithDetail("vehicle_id", itoa(vs.ID))
			}
			if needEnd {
				if vs.ToAssemblyID == nil {
					return apperrors.ErrValidation("to_assembly_id is required").
						WithDetail("wave", waveName(wave)).
						WithDetail("vehicle_id", itoa(vs.ID))
				}
				if _, ok := e.assemblies[*vs.ToAssemblyID]; !ok {
					return apperrors.ErrValidation("unknown to_assembly_id in schedule").
						WithDetail("wave", waveName(wave)).
						WithDetail("vehicle_id", itoa(vs.ID))
				}
			}
		}
		return nil
	}

	if err := check(1, e.waves.W1.Vehicles, true); err != nil {
		return err
	}
	if err := check(2, e.waves.W2.Vehicles, true); err != nil {
		return err
	}
	if err := check(3, e.waves.W3.Vehicles, false); err != nil {
		return err
	}

	for _, wid := range e.workOrder {
		w := e.works[wid]
		switch w.Status.Type {
		case domain.WorkStatusHandlePickup, domain.WorkStatusHandleDelivery, domain.WorkStatusShipped:
			if w.Status.VehicleID == nil {
				return apperrors.ErrValidation("work status requires vehicle_id").
					WithDetail("work_id", itoa(wid))
			}
		case domain.WorkStatusAssembly:
			if w.Status.AssemblyID == nil {
				return apperrors.ErrValidation("work status requires assembly_id").
					WithDetail("work_id", itoa(wid))
			}
			if _, ok := e.assemblies[*w.Status.AssemblyID]; !ok {
				return apperrors.ErrValidation("unknown assembly_id in work status").
					WithDetail("work_id", itoa(wid))
			}
		}
	}

	return nil
}

// Waves exposes the wave registry for cost evaluation
func (e *Engine) Waves() *Waves {
	return e.waves
}

// Wave2StopoverTimes exposes the rendezvous times the first
// optimization produced.
func (e *Engine) Wave2StopoverTimes() map[int]int64 {
	return e.wave2StopoverTimes
}

func waveName(wave int) string {
	return "wave_" + strconv.Itoa(wave)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
