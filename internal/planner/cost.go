package planner

import "github.com/roouty-platform/dynamic-engine/internal/vrp"

// planCost scores a candidate plan by the total distance the wave-3
// vehicles travel: the distance of a route's last step is cumulative,
// so summing it across wave-3 routes compares how much true last-mile
// driving each rendezvous choice leaves for the end of the day.
func planCost(waves *Waves, resp *vrp.Response) int64 {
	routes := make(map[int]*vrp.Route, len(resp.Routes))
	for i := range resp.Routes {
		routes[resp.Routes[i].Vehicle] = &resp.Routes[i]
	}

	var total float64

	for i := range waves.W3.Vehicles {
		index := waves.W3.VehicleIDToIndex(waves.W3.Vehicles[i].ID)

		route, ok := routes[index]
		if !ok || len(route.Steps) == 0 {
			continue
		}

		total += route.Steps[len(route.Steps)-1].Distance
	}

	return int64(total)
}
