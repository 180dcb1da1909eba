package domain

// Vehicle is a fleet vehicle available during the operating day
type Vehicle struct {
	ID       int        `json:"id"`
	Profile  Profile    `json:"profile"`
	Location Coordinate `json:"location"`
	Capacity []int      `json:"capacity,omitempty"`
}

// Assembly is a physical hub where vehicles rendezvous between waves
// to exchange parcels
type Assembly struct {
	ID       int        `json:"id"`
	Location Coordinate `json:"location"`
}
