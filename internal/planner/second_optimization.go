package planner

import (
	"context"
	"fmt"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/vrp"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
)

// wave-2 vehicles get a little slack past the rendezvous closing so a
// tight arrival does not become an unassignment
const stopoverSlack = 600

// SecondOptimization plans the remaining work of the whole day against
// the given rendezvous closing times. Wave-2 vehicles work until their
// destination assembly closes; wave-3 vehicles start once their origin
// assembly has closed and the stopover waiting time has passed. Every
// remaining work must be assigned.
func (e *Engine) SecondOptimization(ctx context.Context, req *domain.Request, stopoverTime map[int]int64) (*vrp.Response, error) {
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

			nextTask := vs.FirstUndoneTask()
			running := false
			if nextTask != nil {
				running = vs.Running
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
			twEnd := e.waves.W1.EndTime

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

			// past the window: finish the current task and assemble
			if twStart < twEnd {
				vehicle.TimeWindow = vrp.TimeWindow{twStart, twEnd}
				vehicles = append(vehicles, vehicle)
			}
		}
	}

	for i := range e.waves.W2.Vehicles {
		vs := &e.waves.W2.Vehicles[i]
		v := e.vehicles[vs.ID]

		end := e.assemblies[*vs.ToAssemblyID].Location

		vehicle := vrp.Vehicle{
			ID:       e.waves.W2.VehicleIDToIndex(vs.ID),
			Profile:  string(v.Profile),
			Start:    e.assemblies[vs.FromAssemblyID].Location,
			End:      &end,
			Skills:   e.skills.VehicleSkills(2, vs),
			Capacity: v.Capacity,
			Wave:     2,
		}

		twStart := e.waves.W2.StartTime
		twEnd := twStart + 86400

		if st, ok := stopoverTime[*vs.ToAssemblyID]; ok {
			twEnd = st + stopoverSlack
		} else {
			// no committed closing: minimize this vehicle's end too
			minimumTimeVehicles[vehicle.ID] = struct{}{}
		}

		vehicle.TimeWindow = vrp.TimeWindow{twStart, twEnd}
		vehicles = append(vehicles, vehicle)
	}

	for i := range e.waves.W3.Vehicles {
		vs := &e.waves.W3.Vehicles[i]
		v := e.vehicles[vs.ID]

		// without a rendezvous at its origin the vehicle never leaves
		st, ok := stopoverTime[vs.FromAssemblyID]
		if !ok {
			continue
		}

		twStart := st + e.waves.W3.StopoverWaitingTime

		vehicle := vrp.Vehicle{
			ID:         e.waves.W3.VehicleIDToIndex(vs.ID),
			Profile:    string(v.Profile),
			Start:      e.assemblies[vs.FromAssemblyID].Location,
			Skills:     e.skills.VehicleSkills(3, vs),
			TimeWindow: vrp.TimeWindow{twStart, twStart + 86400},
			Capacity:   v.Capacity,
			Wave:       3,
		}

		vehicles = append(vehicles, vehicle)
		minimumTimeVehicles[vehicle.ID] = struct{}{}
	}

	switch req.CurrentStatus {
	case domain.CurrentStatusWait, domain.CurrentStatusWave1:
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

			if w.Status.Type == domain.WorkStatusAssembly {
				assemblyJob = true
			}

			// handle_pickup works were settled by the first
			// optimization and reach here through wave1Pickups
			if w.Status.Type == domain.WorkStatusHandleDelivery {
				vid := *w.Status.VehicleID

				deliverySkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: vid}})
				hasDelivery = true

			} else if vid, done := e.wave1DonePickups[wid]; done {
				deliverySkills = e.skills.TaskSkillsMeetShippedVehicle(w, 1, vid, true)
				hasDelivery = true

			} else if vid, ok := e.wave1Pickups[wid]; ok {
				if _, shipped := e.wave1Shipments[wid]; !shipped {
					pickupSkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: vid}})
					deliverySkills = e.skills.TaskSkillsMeetShippedVehicle(w, 1, vid, false)
					hasPickup, hasDelivery = true, true
				} else {
					shipmentSkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: vid}})
					hasShipment = true
				}

			} else if vid, ok := e.wave2Pickups[wid]; ok {
				if _, shipped := e.wave2Shipments[wid]; !shipped {
					pickupSkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 2, VehicleID: vid}})
					deliverySkills = e.skills.TaskSkillsMeetShippedVehicle(w, 2, vid, false)
					hasPickup, hasDelivery = true, true
				} else {
					shipmentSkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 2, VehicleID: vid}})
					hasShipment = true
				}
			}

			e.appendWorkTasks(&jobs, &shipments, mustHandle, w, workTaskSet{
				hasPickup:      hasPickup,
				hasDelivery:    hasDelivery,
				hasShipment:    hasShipment,
				assemblyJob:    assemblyJob,
				pickupSkills:   pickupSkills,
				deliverySkills: deliverySkills,
				shipmentSkills: shipmentSkills,
			})
		}

	case domain.CurrentStatusStopover:
		// the swap manifests of the first rendezvous are already
		// pinned; deliveries must follow them
		for _, wid := range e.workOrder {
			w := e.works[wid]

			if _, done := e.wave1DoneDeliveries[wid]; done {
				continue
			}

			var (
				hasPickup, hasDelivery, hasShipment bool

				pickupSkills   []int
				deliverySkills []int
				shipmentSkills []int
			)

			if w.Status.Type == domain.WorkStatusHandleDelivery {
				vid := *w.Status.VehicleID

				deliverySkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 1, VehicleID: vid}})
				hasDelivery = true

			} else if vid, done := e.wave1DonePickups[wid]; done {
				if upvid, ok := e.swap12Up[wid]; ok && hasKey(e.swap12Down, wid) {
					// set down at the first rendezvous: the vehicle
					// that took it up delivers in wave 2 or 3
					deliverySkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{
						{Wave: 2, VehicleID: upvid},
						{Wave: 3, VehicleID: upvid},
					})
				} else if upvid, ok := e.swap23Up[wid]; ok && hasKey(e.swap23Down, wid) {
					// to be set down at the second rendezvous: the
					// receiving vehicle delivers in wave 3
					deliverySkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{
						{Wave: 3, VehicleID: upvid},
					})
				} else {
					// never handed over: still on the pickup vehicle
					deliverySkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{
						{Wave: 2, VehicleID: vid},
						{Wave: 3, VehicleID: vid},
					})
				}
				hasDelivery = true

			} else if vid, ok := e.wave2Pickups[wid]; ok {
				if _, shipped := e.wave2Shipments[wid]; !shipped {
					pickupSkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 2, VehicleID: vid}})
					deliverySkills = e.skills.TaskSkillsMeetShippedVehicle(w, 2, vid, false)
					hasPickup, hasDelivery = true, true
				} else {
					shipmentSkills = e.skills.TaskSkillsWaveVehicles([]WaveVehicle{{Wave: 2, VehicleID: vid}})
					hasShipment = true
				}
			}

			e.appendWorkTasks(&jobs, &shipments, mustHandle, w, workTaskSet{
				hasPickup:      hasPickup,
				hasDelivery:    hasDelivery,
				hasShipment:    hasShipment,
				pickupSkills:   pickupSkills,
				deliverySkills: deliverySkills,
				shipmentSkills: shipmentSkills,
			})
		}

	default:
		return nil, apperrors.ErrBadRequest(fmt.Sprintf("current_status=%s not supported yet", req.CurrentStatus))
	}

	soRequest := &vrp.Request{
		Jobs:      jobs,
		Shipments: shipments,
		Vehicles:  vehicles,
		DistributeOptions: vrp.DistributeOptions{
			MaxVehicleWorkTime: 86400,
			CustomMatrix:       vrp.CustomMatrix{Enabled: true},
		},
	}

	resp, err := e.minimumEndTime(ctx, "second", soRequest, e.waves.W2.StartTime, minimumTimeVehicles, mustHandle)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, apperrors.ErrPlanning("no feasible plan covers every remaining work")
	}

	return resp, nil
}

// workTaskSet is the classification of one work into solver tasks
type workTaskSet struct {
	hasPickup, hasDelivery, hasShipment bool
	assemblyJob                         bool

	pickupSkills   []int
	deliverySkills []int
	shipmentSkills []int
}

// appendWorkTasks emits the solver jobs and shipments of one work.
// Everything emitted here must be assigned.
func (e *Engine) appendWorkTasks(jobs *[]vrp.Job, shipments *[]vrp.Shipment, mustHandle map[int]struct{}, w *domain.Work, set workTaskSet) {
	if set.hasPickup {
		pickupJob := vrp.Job{
			ID:          e.registry.PickupIndex(w.ID),
			Description: "pickup-" + w.Description,
			Location:    w.Pickup.Location,
			Setup:       w.Pickup.SetupTime,
			Service:     w.Pickup.ServiceTime,
			Skills:      set.pickupSkills,
			Pickup:      w.Amount,
		}

		// assembly parcels are already at the hub, nothing to load
		if set.assemblyJob {
			pickupJob.Location = e.assemblies[*w.Status.AssemblyID].Location
			pickupJob.Setup = 0
			pickupJob.Service = 0
		}

		*jobs = append(*jobs, pickupJob)
		mustHandle[pickupJob.ID] = struct{}{}
	}

	if set.hasDelivery {
		deliveryJob := vrp.Job{
			ID:          e.registry.DeliveryIndex(w.ID),
			Description: "delivery-" + w.Description,
			Location:    w.Delivery.Location,
			Setup:       w.Delivery.SetupTime,
			Service:     w.Delivery.ServiceTime,
			Skills:      set.deliverySkills,
			Delivery:    w.Amount,
		}

		*jobs = append(*jobs, deliveryJob)
		mustHandle[deliveryJob.ID] = struct{}{}
	}

	if set.hasShipment {
		shipment := vrp.Shipment{
			Pickup: vrp.ShipmentStep{
				ID:          e.registry.ShipmentPickupIndex(w.ID),
				Description: "pickup-" + w.Description,
				Location:    w.Pickup.Location,
				Setup:       w.Pickup.SetupTime,
				Service:     w.Pickup.ServiceTime,
			},
			Delivery: vrp.ShipmentStep{
				ID:          e.registry.ShipmentDeliveryIndex(w.ID),
				Description: "delivery-" + w.Description,
				Location:    w.Delivery.Location,
				Setup:       w.Delivery.SetupTime,
				Service:     w.Delivery.ServiceTime,
			},
			Skills: set.shipmentSkills,
			Amount: w.Amount,
		}

		if set.assemblyJob {
			shipment.Pickup.Location = e.assemblies[*w.Status.AssemblyID].Location
			shipment.Pickup.Setup = 0
			shipment.Pickup.Service = 0
		}

		*shipments = append(*shipments, shipment)
		mustHandle[shipment.Pickup.ID] = struct{}{}
		mustHandle[shipment.Delivery.ID] = struct{}{}
	}
}

func hasKey(m map[int]int, key int) bool {
	_, ok := m[key]
	return ok
}
