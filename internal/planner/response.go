package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/vrp"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
)

// bounded concurrency for the per-vehicle road-route enrichment calls
const routeEnrichmentConcurrency = 8

// vehicleAssembly records which vehicle handled a work leg and the
// assembly that vehicle exchanges parcels at
type vehicleAssembly struct {
	vehicleID  int
	assemblyID int
}

// MakeResponse reconciles the solver's routes into the day plan: the
// per-wave task lists framed by departure and arrival, travel legs
// from the road router, and the swap manifests derived from where each
// parcel changes vehicle.
func (e *Engine) MakeResponse(ctx context.Context, req *domain.Request, resp *vrp.Response, stopoverTime map[int]int64) (*domain.Response, error) {
	routes := make(map[int]*vrp.Route, len(resp.Routes))
	for i := range resp.Routes {
		routes[resp.Routes[i].Vehicle] = &resp.Routes[i]
	}

	var (
		wave1  []*domain.VehicleTasks
		wave2  []*domain.VehicleTasks
		wave3  []*domain.VehicleTasks
		swap12 []*domain.VehicleSwaps
		swap23 []*domain.VehicleSwaps
	)

	swap12ByID := make(map[int]*domain.VehicleSwaps)
	swap23ByID := make(map[int]*domain.VehicleSwaps)

	wave1P := make(map[int]vehicleAssembly)
	wave2P := make(map[int]vehicleAssembly)
	wave2D := make(map[int]vehicleAssembly)
	wave3D := make(map[int]vehicleAssembly)

	type enrichment struct {
		profile domain.Profile
		tasks   []domain.Task
	}
	var enrichments []*enrichment

	for i := range e.waves.W1.Vehicles {
		vs := &e.waves.W1.Vehicles[i]
		v := e.vehicles[vs.ID]

		w1End := e.waves.W1.EndTime
		swaps := &domain.VehicleSwaps{
			VehicleID:    vs.ID,
			AssemblyID:   *vs.ToAssemblyID,
			StopoverTime: &w1End,
			Down:         []int{},
			Up:           []int{},
		}
		swap12ByID[vs.ID] = swaps
		swap12 = append(swap12, swaps)

		var tasks []domain.Task

		departureDone := false

		// the completed prefix of the wave-1 schedule is preserved
		// verbatim
		for _, t := range vs.Tasks {
			if !t.Done {
				break
			}

			task := domain.Task{
				WorkID:      t.WorkID,
				Type:        t.Type,
				ETA:         t.ETA,
				SetupTime:   t.SetupTime,
				ServiceTime: t.ServiceTime,
				AssemblyID:  t.AssemblyID,
				Location:    t.Location,
				Done:        t.Done,
			}

			departureDone = true

			if t.Type == domain.TaskTypeDeparture {
				task.AssemblyID = intPtr(vs.FromAssemblyID)
			}
			if t.Type == domain.TaskTypeArrival {
				task.AssemblyID = vs.ToAssemblyID
			}

			tasks = append(tasks, task)
		}

		if route, ok := routes[e.waves.W1.VehicleIDToIndex(vs.ID)]; ok {
			for _, step := range route.Steps {
				if step.Type != vrp.StepTypeJob && step.Type != vrp.StepTypePickup && step.Type != vrp.StepTypeDelivery {
					continue
				}

				key, ok := e.registry.Key(step.ID)
				if !ok {
					continue
				}

				switch key.Kind {
				case KindPickup, KindShipmentPickup:
					// assembly parcels are loaded the moment the
					// vehicle reaches the hub
					done := e.works[key.WorkID].Status.Type == domain.WorkStatusAssembly
					tasks = append(tasks, domain.Task{
						WorkID:      intPtr(key.WorkID),
						Type:        domain.TaskTypePickup,
						ETA:         step.Arrival,
						SetupTime:   step.Setup,
						ServiceTime: step.Service,
						Location:    step.Location,
						Done:        done,
					})
					if done {
						departureDone = true
					}

				case KindDelivery, KindShipmentDelivery:
					tasks = append(tasks, domain.Task{
						WorkID:      intPtr(key.WorkID),
						Type:        domain.TaskTypeDelivery,
						ETA:         step.Arrival,
						SetupTime:   step.Setup,
						ServiceTime: step.Service,
						Location:    step.Location,
					})
				}
			}
		} else if req.CurrentStatus == domain.CurrentStatusWave1 {
			// vehicle excluded from the optimization: it still carries
			// the task it was already moving toward
			nextTask := vs.FirstUndoneTask()
			running := false
			if nextTask != nil {
				running = vs.Running
			}

			if running && nextTask.WorkID != nil {
				handling := e.works[*nextTask.WorkID]

				switch handling.Status.Type {
				case domain.WorkStatusHandlePickup:
					tasks = append(tasks, domain.Task{
						WorkID:      intPtr(handling.ID),
						Type:        domain.TaskTypePickup,
						ETA:         nextTask.ETA,
						SetupTime:   handling.Pickup.SetupTime,
						ServiceTime: handling.Pickup.ServiceTime,
						Location:    handling.Pickup.Location,
					})

				case domain.WorkStatusHandleDelivery:
					tasks = append(tasks, domain.Task{
						WorkID:      intPtr(handling.ID),
						Type:        domain.TaskTypeDelivery,
						ETA:         nextTask.ETA,
						SetupTime:   handling.Delivery.SetupTime,
						ServiceTime: handling.Delivery.ServiceTime,
						Location:    handling.Delivery.Location,
					})
				}
			}
		}

		fromAssembly := e.assemblies[vs.FromAssemblyID]
		toAssembly := e.assemblies[*vs.ToAssemblyID]

		if len(tasks) == 0 || tasks[0].Type != domain.TaskTypeDeparture {
			_, departed := e.wave1Departed[vs.ID]
			tasks = append([]domain.Task{{
				Type:       domain.TaskTypeDeparture,
				ETA:        e.waves.W1.StartTime,
				AssemblyID: intPtr(fromAssembly.ID),
				Location:   fromAssembly.Location,
				Done:       departureDone || departed,
			}}, tasks...)
		}

		if tasks[len(tasks)-1].Type != domain.TaskTypeArrival {
			_, arrived := e.wave1Arrived[vs.ID]
			tasks = append(tasks, domain.Task{
				Type:       domain.TaskTypeArrival,
				ETA:        e.waves.W1.EndTime,
				AssemblyID: intPtr(toAssembly.ID),
				Location:   toAssembly.Location,
				Done:       arrived,
			})
		}

		for _, t := range tasks {
			if t.Type == domain.TaskTypePickup && t.WorkID != nil {
				wave1P[*t.WorkID] = vehicleAssembly{vehicleID: vs.ID, assemblyID: *vs.ToAssemblyID}
			}
		}

		wave1 = append(wave1, &domain.VehicleTasks{VehicleID: vs.ID, Tasks: tasks})
		enrichments = append(enrichments, &enrichment{profile: v.Profile, tasks: tasks})
	}

	for i := range e.waves.W2.Vehicles {
		vs := &e.waves.W2.Vehicles[i]
		v := e.vehicles[vs.ID]

		closing := stopoverTime[*vs.ToAssemblyID]
		swaps := &domain.VehicleSwaps{
			VehicleID:    vs.ID,
			AssemblyID:   *vs.ToAssemblyID,
			StopoverTime: &closing,
			Down:         []int{},
			Up:           []int{},
		}
		swap23ByID[vs.ID] = swaps
		swap23 = append(swap23, swaps)

		var tasks []domain.Task

		if route, ok := routes[e.waves.W2.VehicleIDToIndex(vs.ID)]; ok {
			tasks = e.tasksFromSteps(route.Steps, intPtr(vs.FromAssemblyID), vs.ToAssemblyID)
		}

		fromAssembly := e.assemblies[vs.FromAssemblyID]
		toAssembly := e.assemblies[*vs.ToAssemblyID]

		if len(tasks) == 0 {
			tasks = append(tasks, domain.Task{
				Type:       domain.TaskTypeDeparture,
				ETA:        e.waves.W2.StartTime,
				AssemblyID: intPtr(fromAssembly.ID),
				Location:   fromAssembly.Location,
			})
		}

		if tasks[len(tasks)-1].Type != domain.TaskTypeArrival {
			tasks = append(tasks, domain.Task{
				Type:       domain.TaskTypeArrival,
				ETA:        stopoverTime[toAssembly.ID],
				AssemblyID: intPtr(toAssembly.ID),
				Location:   toAssembly.Location,
			})
		}

		for _, t := range tasks {
			if t.WorkID == nil {
				continue
			}
			switch t.Type {
			case domain.TaskTypePickup:
				wave2P[*t.WorkID] = vehicleAssembly{vehicleID: vs.ID, assemblyID: *vs.ToAssemblyID}
			case domain.TaskTypeDelivery:
				wave2D[*t.WorkID] = vehicleAssembly{vehicleID: vs.ID, assemblyID: vs.FromAssemblyID}
			}
		}

		wave2 = append(wave2, &domain.VehicleTasks{VehicleID: vs.ID, Tasks: tasks})
		enrichments = append(enrichments, &enrichment{profile: v.Profile, tasks: tasks})
	}

	for i := range e.waves.W3.Vehicles {
		vs := &e.waves.W3.Vehicles[i]
		v := e.vehicles[vs.ID]

		var tasks []domain.Task

		if route, ok := routes[e.waves.W3.VehicleIDToIndex(vs.ID)]; ok {
			tasks = e.tasksFromSteps(route.Steps, intPtr(vs.FromAssemblyID), nil)
		}

		for _, t := range tasks {
			if t.Type == domain.TaskTypeDelivery && t.WorkID != nil {
				wave3D[*t.WorkID] = vehicleAssembly{vehicleID: vs.ID, assemblyID: vs.FromAssemblyID}
			}
		}

		wave3 = append(wave3, &domain.VehicleTasks{VehicleID: vs.ID, Tasks: tasks})
		enrichments = append(enrichments, &enrichment{profile: v.Profile, tasks: tasks})
	}

	if err := e.deriveSwaps(wave1P, wave2P, wave2D, wave3D, swap12ByID, swap23ByID); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(routeEnrichmentConcurrency)

	for _, item := range enrichments {
		item := item
		g.Go(func() error {
			e.setupRouteData(gctx, item.profile, item.tasks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &domain.Response{
		Wave1:  make([]domain.VehicleTasks, 0, len(wave1)),
		Swap12: make([]domain.VehicleSwaps, 0, len(swap12)),
		Wave2:  make([]domain.VehicleTasks, 0, len(wave2)),
		Swap23: make([]domain.VehicleSwaps, 0, len(swap23)),
		Wave3:  make([]domain.VehicleTasks, 0, len(wave3)),
	}
	for _, vt := range wave1 {
		out.Wave1 = append(out.Wave1, *vt)
	}
	for _, sw := range swap12 {
		out.Swap12 = append(out.Swap12, *sw)
	}
	for _, vt := range wave2 {
		out.Wave2 = append(out.Wave2, *vt)
	}
	for _, sw := range swap23 {
		out.Swap23 = append(out.Swap23, *sw)
	}
	for _, vt := range wave3 {
		out.Wave3 = append(out.Wave3, *vt)
	}

	return out, nil
}

// tasksFromSteps maps a solver route to tasks. The start step becomes
// the departure from departureAssembly, the end step the arrival at
// arrivalAssembly (nil when the route does not end at a hub).
func (e *Engine) tasksFromSteps(steps []vrp.Step, departureAssembly, arrivalAssembly *int) []domain.Task {
	var tasks []domain.Task

	for _, step := range steps {
		switch step.Type {
		case vrp.StepTypeStart:
			tasks = append(tasks, domain.Task{
				Type:        domain.TaskTypeDeparture,
				ETA:         step.Arrival,
				SetupTime:   step.Setup,
				ServiceTime: step.Service,
				AssemblyID:  departureAssembly,
				Location:    step.Location,
			})

		case vrp.StepTypeJob, vrp.StepTypePickup, vrp.StepTypeDelivery:
			key, ok := e.registry.Key(step.ID)
			if !ok {
				continue
			}

			switch key.Kind {
			case KindPickup, KindShipmentPickup:
				tasks = append(tasks, domain.Task{
					WorkID:      intPtr(key.WorkID),
					Type:        domain.TaskTypePickup,
					ETA:         step.Arrival,
					SetupTime:   step.Setup,
					ServiceTime: step.Service,
					Location:    step.Location,
				})
			case KindDelivery, KindShipmentDelivery:
				tasks = append(tasks, domain.Task{
					WorkID:      intPtr(key.WorkID),
					Type:        domain.TaskTypeDelivery,
					ETA:         step.Arrival,
					SetupTime:   step.Setup,
					ServiceTime: step.Service,
					Location:    step.Location,
				})
			}

		case vrp.StepTypeEnd:
			tasks = append(tasks, domain.Task{
				Type:        domain.TaskTypeArrival,
				ETA:         step.Arrival,
				SetupTime:   step.Setup,
				ServiceTime: step.Service,
				AssemblyID:  arrivalAssembly,
				Location:    step.Location,
			})
		}
	}

	return tasks
}

// deriveSwaps works out where each parcel changes vehicle. A work
// picked up and delivered by different vehicles must pass through an
// assembly both vehicles visit; anything else is a planning fault.
func (e *Engine) deriveSwaps(
	wave1P, wave2P, wave2D, wave3D map[int]vehicleAssembly,
	swap12ByID, swap23ByID map[int]*domain.VehicleSwaps,
) error {
	exchange := func(byID map[int]*domain.VehicleSwaps, downVID, upVID, wid int) error {
		down, up := byID[downVID], byID[upVID]
		if down == nil || up == nil {
			return apperrors.ErrPlanning(fmt.Sprintf(
				"work %d swaps between %d and %d, but one of them is not scheduled at the rendezvous",
				wid, downVID, upVID,
			))
		}
		down.Down = append(down.Down, wid)
		up.Up = append(up.Up, wid)
		return nil
	}

	for _, wid := range e.workOrder {
		if pickup, ok := wave1P[wid]; ok {
			// delivered within wave 1: same vehicle, no swap

			if delivery, ok := wave2D[wid]; ok {
				if pickup.vehicleID == delivery.vehicleID {
					continue
				}

				if pickup.assemblyID != delivery.assemblyID {
					return apperrors.ErrPlanning(fmt.Sprintf(
						"work %d down at %d by %d, but up at %d by %d",
						wid, pickup.assemblyID, pickup.vehicleID, delivery.assemblyID, delivery.vehicleID,
					))
				}

				if err := exchange(swap12ByID, pickup.vehicleID, delivery.vehicleID, wid); err != nil {
					return err
				}

			} else if delivery, ok := wave3D[wid]; ok {
				if pickup.vehicleID == delivery.vehicleID {
					continue
				}

				pickupW2 := e.waves.W2.ByID[pickup.vehicleID]
				deliveryW2 := e.waves.W2.ByID[delivery.vehicleID]
				if pickupW2 == nil || deliveryW2 == nil {
					return apperrors.ErrPlanning(fmt.Sprintf(
						"work %d swaps between %d and %d, but one of them has no wave_2 schedule",
						wid, pickup.vehicleID, delivery.vehicleID,
					))
				}

				switch {
				// they meet where wave 1 ends for the pickup vehicle
				// and wave 2 starts for the delivery vehicle
				case pickup.assemblyID == deliveryW2.FromAssemblyID:
					if err := exchange(swap12ByID, pickup.vehicleID, delivery.vehicleID, wid); err != nil {
						return err
					}

				// they meet where wave 2 ends for the pickup vehicle
				// and wave 3 starts for the delivery vehicle
				case pickupW2.ToAssemblyID != nil && *pickupW2.ToAssemblyID == delivery.assemblyID:
					if err := exchange(swap23ByID, pickup.vehicleID, delivery.vehicleID, wid); err != nil {
						return err
					}

				default:
					return apperrors.ErrPlanning(fmt.Sprintf(
						"work %d cannot match at 1_2 (down at %d by %d, up at %d by %d) and 2_3 (down at %v by %d, up at %d by %d)",
						wid,
						pickup.assemblyID, pickup.vehicleID, deliveryW2.FromAssemblyID, delivery.vehicleID,
						derefOr(pickupW2.ToAssemblyID, -1), pickup.vehicleID, delivery.assemblyID, delivery.vehicleID,
					))
				}
			}

		} else if pickup, ok := wave2P[wid]; ok {
			// delivered within wave 2: same vehicle, no swap

			if delivery, ok := wave3D[wid]; ok {
				if pickup.vehicleID == delivery.vehicleID {
					continue
				}

				if pickup.assemblyID != delivery.assemblyID {
					return apperrors.ErrPlanning(fmt.Sprintf(
						"work %d down at %d by %d, but up at %d by %d",
						wid, pickup.assemblyID, pickup.vehicleID, delivery.assemblyID, delivery.vehicleID,
					))
				}

				if err := exchange(swap23ByID, pickup.vehicleID, delivery.vehicleID, wid); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// setupRouteData fills in per-task travel duration and distance from
// the road router. Routing is best effort: on failure the plan is
// returned without leg data.
func (e *Engine) setupRouteData(ctx context.Context, profile domain.Profile, tasks []domain.Task) {
	if len(tasks) < 2 {
		return
	}

	locations := make([]domain.Coordinate, len(tasks))
	for i, t := range tasks {
		locations[i] = t.Location
	}

	legs, err := e.router.Legs(ctx, profile, locations)
	if err != nil {
		e.log.WithError(err).Warn("route enrichment skipped", "profile", string(profile))
		return
	}
	if len(legs) != len(tasks)-1 {
		e.log.Warn("route enrichment skipped: leg count mismatch",
			"legs", len(legs), "tasks", len(tasks))
		return
	}

	for i, leg := range legs {
		tasks[i+1].Duration = leg.Duration
		tasks[i+1].Distance = leg.Distance
	}
}

func intPtr(v int) *int {
	return &v
}

func derefOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
