package domain

// VehicleTasks is the ordered plan of one vehicle within one wave
type VehicleTasks struct {
	VehicleID int    `json:"vehicle_id"`
	Tasks     []Task `json:"tasks"`
}

// VehicleSwaps is the transfer manifest of one vehicle at an inter-wave
// rendezvous: the works it sets down and the works it takes up
type VehicleSwaps struct {
	VehicleID    int    `json:"vehicle_id"`
	AssemblyID   int    `json:"assembly_id"`
	StopoverTime *int64 `json:"stopover_time,omitempty"`
	Down         []int  `json:"down"`
	Up           []int  `json:"up"`
}

// Response is the day plan: three waves of per-vehicle task lists and
// the swap manifests at the two inter-wave rendezvous
type Response struct {
	V      string         `json:"v"`
	Wave1  []VehicleTasks `json:"wave_1"`
	Swap12 []VehicleSwaps `json:"swap_1_2"`
	Wave2  []VehicleTasks `json:"wave_2"`
	Swap23 []VehicleSwaps `json:"swap_2_3"`
	Wave3  []VehicleTasks `json:"wave_3"`
}
