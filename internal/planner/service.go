package planner

import (
	"context"
	"math"
	"time"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/vrp"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
	"github.com/roouty-platform/dynamic-engine/pkg/logging"
	"github.com/roouty-platform/dynamic-engine/pkg/metrics"
)

// Service plans operating days. It is stateless across requests and
// safe for concurrent use.
type Service struct {
	solver  Solver
	router  Router
	version string
	log     *logging.Logger
	metrics *metrics.Metrics
}

func NewService(solver Solver, router Router, version string, log *logging.Logger, m *metrics.Metrics) *Service {
	return &Service{
		solver:  solver,
		router:  router,
		version: version,
		log:     log.WithComponent("planner"),
		metrics: m,
	}
}

// PlanDay produces the full day plan for a request. The first
// optimization splits the pickups between waves 1 and 2; the second
// plans the remaining day against rendezvous closing times chosen by
// the requested algorithm; the reconciliation turns the winning solver
// response into the wave task lists and swap manifests.
func (s *Service) PlanDay(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	started := time.Now()

	engine, err := NewEngine(req, s.solver, s.router, s.log, s.metrics)
	if err != nil {
		s.recordPlan("rejected", started)
		return nil, err
	}

	if err := engine.FirstOptimization(ctx, req); err != nil {
		s.recordPlan("failed", started)
		return nil, err
	}

	var (
		bestResponse     *vrp.Response
		bestStopoverTime map[int]int64
		bestCost         int64 = math.MaxInt64
	)

	switch req.Algorithm.SecondAssembly.Type {
	case domain.AlgorithmHandlePickup:
		stopoverTime := engine.Wave2StopoverTimes()

		soResponse, err := engine.SecondOptimization(ctx, req, stopoverTime)
		if err != nil {
			s.recordPlan("failed", started)
			return nil, err
		}

		bestResponse = soResponse
		bestStopoverTime = stopoverTime
		bestCost = planCost(engine.Waves(), soResponse)

	case domain.AlgorithmSelectBest:
		start := engine.Waves().W2.StartTime

		for _, assemblyTime := range req.Algorithm.SecondAssembly.AssemblyTimeCandidates {
			stopoverTime := make(map[int]int64, len(req.Assemblies))
			for _, a := range req.Assemblies {
				stopoverTime[a.ID] = start + assemblyTime
			}

			soResponse, err := engine.SecondOptimization(ctx, req, stopoverTime)
			if err != nil {
				// an infeasible candidate just drops out of the race
				s.log.WithError(err).Warn("assembly time candidate failed", "assembly_time", assemblyTime)
				continue
			}

			cost := planCost(engine.Waves(), soResponse)
			s.log.Debug("assembly time candidate evaluated", "assembly_time", assemblyTime, "cost", cost)

			if cost < bestCost {
				bestResponse = soResponse
				bestStopoverTime = stopoverTime
				bestCost = cost
			}
		}

	default:
		s.recordPlan("rejected", started)
		return nil, apperrors.ErrBadRequest("unknown second_assembly algorithm")
	}

	if bestResponse == nil {
		s.recordPlan("failed", started)
		return nil, apperrors.ErrPlanning("no assembly time candidate produced a feasible plan")
	}

	s.log.Info("plan selected", "cost", bestCost, "stopover_times", bestStopoverTime)

	resp, err := engine.MakeResponse(ctx, req, bestResponse, bestStopoverTime)
	if err != nil {
		s.recordPlan("failed", started)
		return nil, err
	}

	resp.V = s.version

	s.recordPlan("success", started)
	return resp, nil
}

func (s *Service) recordPlan(status string, started time.Time) {
	if s.metrics != nil {
		s.metrics.RecordPlan(status, time.Since(started))
	}
}
