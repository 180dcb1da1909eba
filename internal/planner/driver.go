package planner

import (
	"context"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/vrp"
)

// Solver runs one VRP optimization round trip
type Solver interface {
	Solve(ctx context.Context, req *vrp.Request) (*vrp.Response, error)
}

// RouteLeg is the travel cost between two consecutive stops
type RouteLeg struct {
	Duration float64
	Distance float64
}

// Router returns the legs of the road route visiting the given
// locations in order. len(legs) == len(locations) - 1 on success.
type Router interface {
	Legs(ctx context.Context, profile domain.Profile, locations []domain.Coordinate) ([]RouteLeg, error)
}

// solver windows are bisected down to this resolution, in seconds
const endTimeThreshold = 1000

// pruneSkills drops every skill held by all vehicles, and every skill
// no task demands. The negative encoding assigns each vehicle all
// skills but one, so most of the matrix is shared noise the solver
// pays for without it constraining anything.
func pruneSkills(req *vrp.Request) {
	demanded := make(map[int]struct{})

	for _, j := range req.Jobs {
		for _, s := range j.Skills {
			demanded[s] = struct{}{}
		}
	}
	for _, sh := range req.Shipments {
		for _, s := range sh.Skills {
			demanded[s] = struct{}{}
		}
	}

	var shared map[int]struct{}

	for _, v := range req.Vehicles {
		held := make(map[int]struct{}, len(v.Skills))
		for _, s := range v.Skills {
			held[s] = struct{}{}
		}

		if shared == nil {
			shared = held
			continue
		}
		for s := range shared {
			if _, ok := held[s]; !ok {
				delete(shared, s)
			}
		}
	}

	for s := range shared {
		delete(demanded, s)
	}

	keep := func(skills []int) []int {
		out := skills[:0]
		for _, s := range skills {
			if _, ok := demanded[s]; ok {
				out = append(out, s)
			}
		}
		return out
	}

	for i := range req.Jobs {
		req.Jobs[i].Skills = keep(req.Jobs[i].Skills)
	}
	for i := range req.Shipments {
		req.Shipments[i].Skills = keep(req.Shipments[i].Skills)
	}
	for i := range req.Vehicles {
		req.Vehicles[i].Skills = keep(req.Vehicles[i].Skills)
	}
}

// minimumEndTime finds the earliest closing time of the minimum-time
// vehicles that still leaves every must-handle task assigned. It
// bisects the closing time over one day from start, shrinking the
// listed vehicles' windows to the candidate; a vehicle whose window
// opens after the candidate degenerates to its opening instant.
// Returns the best feasible solver response, or nil when no candidate
// was feasible.
func (e *Engine) minimumEndTime(
	ctx context.Context,
	stage string,
	req *vrp.Request,
	start int64,
	minimumTimeVehicles map[int]struct{},
	mustHandle map[int]struct{},
) (*vrp.Response, error) {
	pruneSkills(req)

	originalWindows := make([]vrp.TimeWindow, len(req.Vehicles))
	for i, v := range req.Vehicles {
		originalWindows[i] = v.TimeWindow
	}

	var best *vrp.Response

	l, r := start, start+86400

	for l+endTimeThreshold < r {
		c := (l + r) / 2

		for i := range req.Vehicles {
			v := &req.Vehicles[i]
			if _, ok := minimumTimeVehicles[v.ID]; !ok {
				continue
			}

			tw := originalWindows[i]
			if tw[0] > c {
				tw = vrp.TimeWindow{tw[0], tw[0]}
			} else {
				tw = vrp.TimeWindow{tw[0], c}
			}
			v.TimeWindow = tw
		}

		resp, err := e.solver.Solve(ctx, req)
		if err != nil {
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.RecordSolverIteration(stage)
		}

		if anyUnassigned(resp, mustHandle) {
			e.log.Debug("end time candidate infeasible", "stage", stage, "candidate", c)
			l = c
		} else {
			e.log.Debug("end time candidate feasible", "stage", stage, "candidate", c)
			r = c
			best = resp
		}
	}

	return best, nil
}

func anyUnassigned(resp *vrp.Response, ids map[int]struct{}) bool {
	for _, u := range resp.Unassigned {
		if _, ok := ids[u.ID]; ok {
			return true
		}
	}
	return false
}
