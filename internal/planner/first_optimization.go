package planner

import (
	"context"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/vrp"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
)

// rendezvous closing defaults to three hours into wave 2 for
// assemblies no wave-2 vehicle arrives at
const defaultStopoverOffset = 10800

// wave-1 vehicles must stop working shortly before the wave ends so
// they reach the rendezvous in time
const wave1EndMargin = 300

// FirstOptimization decides which pickups wave 1 handles and which
// wait for wave 2, and derives the rendezvous closing time of each
// assembly from the resulting wave-2 arrivals. Works already being
// handled by a moving vehicle are promoted to handle_pickup or
// handle_delivery before planning.
func (e *Engine) FirstOptimization(ctx context.Context, req *domain.Request) error {
	var (
		vehicles  []vrp.Vehicle
		jobs      []vrp.Job
		shipments []vrp.Shipment
	)

	minimumTimeVehicles := make(map[int]struct{})
	mustHandle := make(map[int]struct{})

	if req.CurrentStatus == domain.CurrentStatusWait || req.CurrentStatus == domain.CurrentStatusWave1 {
		for i := range e.waves.W1.Vehicles {
			vs := &e.waves.W1.Vehicles[i]
			v := e.vehicles[vs.ID]

			var nextTask *domain.Task
			running := false

			if req.CurrentStatus == domain.CurrentStatusWave1 {
				nextTask = vs.FirstUndoneTask()
				if nextTask != nil {
					running = vs.Running
				}

				if running && nextTask.WorkID != nil {
					handling := e.works[*nextTask.WorkID]
					switch nextTask.Type {
					case domain.TaskTypePickup:
						e.log.Debug("promoting work to handle_pickup", "work_id", handling.ID, "vehicle_id", vs.ID)
						handling.Status.Type = domain.WorkStatusHandlePickup
						handling.Status.VehicleID = &vs.ID
					case domain.TaskTypeDelivery:
						e.log.Debug("promoting work to handle_delivery", "work_id", handling.ID, "vehicle_id", vs.ID)
						handling.Status.Type = domain.WorkStatusHandleDelivery
						handling.Status.VehicleID = &vs.ID
					}
				}
			}

			start := v.Location
			if req.CurrentStatus == domain.CurrentStatusWait {
				start = e.assemblies[vs.FromAssemblyID].Location
			} else if running {
				start = nextTask.Location
			}

			end := e.assemblies[*vs.ToAssemblyID].Location

			vehicle := vrp.Vehicle{
				ID:       e.waves.W1.VehicleIDToIndex(vs.ID),
				Profile:  string(v.Profile),
				Start:    start,
				End:      &end,
				Skills:   e.skills.VehicleSkills(1, vs),
				Capacity: v.Capacity,
				Wave:     1,
			}

			twStart := e.waves.W1.StartTime
			twEnd := e.waves.W1.EndTime - wave1EndMargin

			if req.CurrentStatus == domain.CurrentStatusWave1 {
				if running {
					twStart = nextTask.ETA
					if twStart < req.CurrentTime {
						twStart = req.CurrentTime
					}
				} else {
					twStart = req.CurrentTime
				}
			}

			// a vehicle already past the cutoff finishes what it is
			// doing and heads straight to the rendezvous
			if twStart < twEnd {
				vehicle.TimeWindow = vrp.TimeWindow{twStart, twEnd}
				vehicles = append(vehicles, vehicle)
				jobs = append(jobs, vrp.Job{
					ID:       e.registry.DummyIndex(1, vs.ID),
					Location: start,
					Skills:   e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: vs.ID}}),
				})
			}
		}
	}

	for i := range e.waves.W2.Vehicles {
		vs := &e.waves.W2.Vehicles[i]
		v := e.vehicles[vs.ID]

		start := e.assemblies[vs.FromAssemblyID].Location
		end := e.assemblies[*vs.ToAssemblyID].Location

		twStart := e.waves.W2.StartTime

		vehicle := vrp.Vehicle{
			ID:         e.waves.W2.VehicleIDToIndex(vs.ID),
			Profile:    string(v.Profile),
			Start:      start,
			End:        &end,
			Skills:     e.skills.VehicleSkills(2, vs),
			TimeWindow: vrp.TimeWindow{twStart, twStart + 86400},
			Capacity:   v.Capacity,
			Wave:       2,
		}

		vehicles = append(vehicles, vehicle)
		jobs = append(jobs, vrp.Job{
			ID:       e.registry.DummyIndex(2, vs.ID),
			Location: start,
			Skills:   e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 2, VehicleID: vs.ID}}),
		})

		minimumTimeVehicles[vehicle.ID] = struct{}{}
	}

	for _, wid := range e.workOrder {
		w := e.works[wid]

		if _, done := e.wave1DoneDeliveries[wid]; done {
			continue
		}

		var (
			hasPickup, hasDelivery, hasShipment bool
			assemblyJob                         bool

			pickupSkills   []int
			deliverySkills []int
			shipmentSkills []int
		)

		switch {
		case w.Status.Type == domain.WorkStatusHandlePickup:
			vid := *w.Status.VehicleID

			pickupSkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: vid}})
			hasPickup = true

			if w.Pickup.Group == w.Delivery.Group {
				shipmentSkills = pickupSkills
				hasShipment = true
			}

		case w.Status.Type == domain.WorkStatusHandleDelivery:
			vid := *w.Status.VehicleID

			deliverySkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: vid}})
			hasDelivery = true

		case w.Status.Type == domain.WorkStatusAssembly:
			assemblyID := *w.Status.AssemblyID

			pickupSkills = e.skills.TaskSkillsAssemblyVisits(
				w,
				[]AssemblyVisit{{Wave: 1, Side: VisitStart, AssemblyID: assemblyID}},
				true, false,
			)

			hasPickup = true
			assemblyJob = true

			if w.Pickup.Group == w.Delivery.Group {
				shipmentSkills = pickupSkills
				hasShipment = true
			}

		default:
			if vid, done := e.wave1DonePickups[wid]; done {
				// parcel already on a vehicle: only that vehicle and
				// the vehicles it meets later can deliver
				deliverySkills = e.skills.TaskSkillsMeetShippedVehicle(w, 1, vid, true)
				hasDelivery = true
				break
			}

			pickupSkills = e.skills.TaskSkillsWaitingPickup(w)
			hasPickup = true

			if w.Pickup.Group == w.Delivery.Group {
				shipmentSkills = e.skills.TaskSkillsWaitingShipment(w)
				hasShipment = true
			}
		}

		if hasPickup {
			// pickups take precedence in the first optimization and
			// every one of them must be assigned
			pickupJob := vrp.Job{
				ID:          e.registry.PickupIndex(wid),
				Description: "pickup-" + w.Description,
				Location:    w.Pickup.Location,
				Setup:       w.Pickup.SetupTime,
				Service:     w.Pickup.ServiceTime,
				Priority:    domain.PriorityHighest,
				Skills:      pickupSkills,
				Pickup:      w.Amount,
			}

			// assembly parcels are already at the hub, nothing to load
			if assemblyJob {
				pickupJob.Location = e.assemblies[*w.Status.AssemblyID].Location
				pickupJob.Setup = 0
				pickupJob.Service = 0
			}

			jobs = append(jobs, pickupJob)
			mustHandle[pickupJob.ID] = struct{}{}
		}

		if hasDelivery {
			deliveryJob := vrp.Job{
				ID:          e.registry.DeliveryIndex(wid),
				Description: "delivery-" + w.Description,
				Location:    w.Delivery.Location,
				Setup:       w.Delivery.SetupTime,
				Service:     w.Delivery.ServiceTime,
				Skills:      deliverySkills,
				Delivery:    w.Amount,
			}

			if w.Status.Type == domain.WorkStatusHandleDelivery {
				deliveryJob.Priority = domain.PriorityHighest
				mustHandle[deliveryJob.ID] = struct{}{}
			}

			jobs = append(jobs, deliveryJob)
		}

		if hasShipment {
			shipment := vrp.Shipment{
				Pickup: vrp.ShipmentStep{
					ID:          e.registry.ShipmentPickupIndex(wid),
					Description: "pickup-" + w.Description,
					Location:    w.Pickup.Location,
					Setup:       w.Pickup.SetupTime,
					Service:     0,
				},
				Delivery: vrp.ShipmentStep{
					ID:          e.registry.ShipmentDeliveryIndex(wid),
					Description: "delivery-" + w.Description,
					Location:    w.Delivery.Location,
					Setup:       w.Delivery.SetupTime,
					Service:     w.Delivery.ServiceTime,
				},
				Skills: shipmentSkills,
				Amount: w.Amount,
			}

			if assemblyJob {
				shipment.Pickup.Location = e.assemblies[*w.Status.AssemblyID].Location
				shipment.Pickup.Setup = 0
				shipment.Pickup.Service = 0
			}

			shipments = append(shipments, shipment)
		}
	}

	foRequest := &vrp.Request{
		Jobs:      jobs,
		Shipments: shipments,
		Vehicles:  vehicles,
		DistributeOptions: vrp.DistributeOptions{
			MaxVehicleWorkTime: 86400,
			CustomMatrix:       vrp.CustomMatrix{Enabled: true},
		},
	}

	foResponse, err := e.minimumEndTime(ctx, "first", foRequest, e.waves.W2.StartTime, minimumTimeVehicles, mustHandle)
	if err != nil {
		return err
	}

	if foResponse == nil {
		// no assignment covers every required pickup: fall back to the
		// pickup split of the prior plan, which requires the committed
		// rendezvous times
		if e.waves.W2.AssemblyStopoverTimes == nil {
			return apperrors.ErrBadRequest("assembly_stopover_time is required on wave 1 ended")
		}

		for i := range e.waves.W1.Vehicles {
			vs := &e.waves.W1.Vehicles[i]
			for _, t := range vs.Tasks {
				if t.Type == domain.TaskTypePickup && t.WorkID != nil {
					e.wave1Pickups[*t.WorkID] = vs.ID
				}
			}
		}

		for i := range e.waves.W2.Vehicles {
			vs := &e.waves.W2.Vehicles[i]
			for _, t := range vs.Tasks {
				if t.Type == domain.TaskTypePickup && t.WorkID != nil {
					e.wave2Pickups[*t.WorkID] = vs.ID
				}
			}
		}

		for aid, st := range e.waves.W2.AssemblyStopoverTimes {
			e.wave2StopoverTimes[aid] = st
		}
	} else {
		for _, route := range foResponse.Routes {
			wave, vid := e.waves.VehicleIndexToID(route.Vehicle)

			w := e.waves.W1
			if wave == 2 {
				w = e.waves.W2
			}
			vs := w.ByID[vid]

			for _, s := range route.Steps {
				switch s.Type {
				case vrp.StepTypeJob:
					if e.registry.IsDummy(s.ID) {
						continue
					}

					key, _ := e.registry.Key(s.ID)
					if key.Kind == KindPickup || key.Kind == KindShipmentPickup {
						if wave == 1 {
							e.wave1Pickups[key.WorkID] = vid
						} else {
							e.wave2Pickups[key.WorkID] = vid
						}
					}

				case vrp.StepTypeEnd:
					if wave != 2 {
						continue
					}
					aid := *vs.ToAssemblyID
					if prev, ok := e.wave2StopoverTimes[aid]; !ok || prev < s.Arrival {
						e.wave2StopoverTimes[aid] = s.Arrival
					}
				}
			}

			for _, s := range route.Steps {
				if s.Type != vrp.StepTypePickup || e.registry.IsDummy(s.ID) {
					continue
				}

				key, _ := e.registry.Key(s.ID)
				switch wave {
				case 1:
					if pv, ok := e.wave1Pickups[key.WorkID]; ok && pv == vid {
						e.wave1Shipments[key.WorkID] = vid
					}
				case 2:
					if pv, ok := e.wave2Pickups[key.WorkID]; ok && pv == vid {
						e.wave2Shipments[key.WorkID] = vid
					}
				}
			}
		}
	}

	// assemblies nothing arrives at close three hours into wave 2
	for aid := range e.assemblies {
		if _, ok := e.wave2StopoverTimes[aid]; !ok {
			e.wave2StopoverTimes[aid] = e.waves.W2.StartTime + defaultStopoverOffset
		}
	}

	e.log.Debug("first optimization complete",
		"wave_1_pickups", len(e.wave1Pickups),
		"wave_2_pickups", len(e.wave2Pickups),
		"stopover_times", e.wave2StopoverTimes,
	)

	return nil
}
