package domain

import "encoding/json"

// SecondAssemblyAlgorithmType selects how the wave-2 rendezvous times
// are chosen
type SecondAssemblyAlgorithmType string

const (
	// AlgorithmHandlePickup uses the rendezvous times produced by the
	// first optimization as-is
	AlgorithmHandlePickup SecondAssemblyAlgorithmType = "handle_pickup"
	// AlgorithmSelectBest tries uniform rendezvous offsets and retains
	// the cheapest feasible plan
	AlgorithmSelectBest SecondAssemblyAlgorithmType = "select_best"
)

// SecondAssemblyAlgorithm configures the rendezvous-time selection
type SecondAssemblyAlgorithm struct {
	Type                   SecondAssemblyAlgorithmType `json:"type"`
	AssemblyTimeCandidates []int64                     `json:"assembly_time_candidates"`
}

// Algorithm selects planner behaviour
type Algorithm struct {
	SecondAssembly SecondAssemblyAlgorithm `json:"second_assembly"`
}

// DefaultAlgorithm returns the algorithm defaults
func DefaultAlgorithm() Algorithm {
	return Algorithm{
		SecondAssembly: SecondAssemblyAlgorithm{
			Type:                   AlgorithmHandlePickup,
			AssemblyTimeCandidates: []int64{7200, 10800, 14400, 18000},
		},
	}
}

// UnmarshalJSON applies algorithm defaults for omitted fields
func (a *Algorithm) UnmarshalJSON(data []byte) error {
	type alias Algorithm
	aux := alias(DefaultAlgorithm())
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.SecondAssembly.Type == "" {
		aux.SecondAssembly.Type = AlgorithmHandlePickup
	}
	if aux.SecondAssembly.AssemblyTimeCandidates == nil {
		aux.SecondAssembly.AssemblyTimeCandidates = DefaultAlgorithm().SecondAssembly.AssemblyTimeCandidates
	}
	*a = Algorithm(aux)
	return nil
}
