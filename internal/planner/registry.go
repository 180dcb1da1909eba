package planner

// JobKind tags what a solver job index stands for
type JobKind string

const (
	KindPickup           JobKind = "pickup"
	KindDelivery         JobKind = "delivery"
	KindShipmentPickup   JobKind = "shipment_pickup"
	KindShipmentDelivery JobKind = "shipment_delivery"
	KindShipmentAssembly JobKind = "shipment_assembly"
	KindDummy            JobKind = "dummy"
)

// JobKey identifies the planning meaning of a solver job index. Work
// legs carry WorkID; dummy anchors carry Wave and VehicleID instead.
type JobKey struct {
	Kind      JobKind
	WorkID    int
	Wave      int
	VehicleID int
}

// JobRegistry allocates dense solver job indexes and keeps the
// bijection back to their planning meaning. Requesting the same key
// twice returns the same index.
type JobRegistry struct {
	next    int
	indexes map[JobKey]int
	keys    map[int]JobKey
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{
		indexes: make(map[JobKey]int),
		keys:    make(map[int]JobKey),
	}
}

func (r *JobRegistry) index(key JobKey) int {
	if idx, ok := r.indexes[key]; ok {
		return idx
	}
	idx := r.next
	r.next++
	r.indexes[key] = idx
	r.keys[idx] = key
	return idx
}

func (r *JobRegistry) PickupIndex(workID int) int {
	return r.index(JobKey{Kind: KindPickup, WorkID: workID})
}

func (r *JobRegistry) DeliveryIndex(workID int) int {
	return r.index(JobKey{Kind: KindDelivery, WorkID: workID})
}

func (r *JobRegistry) ShipmentPickupIndex(workID int) int {
	return r.index(JobKey{Kind: KindShipmentPickup, WorkID: workID})
}

func (r *JobRegistry) ShipmentDeliveryIndex(workID int) int {
	return r.index(JobKey{Kind: KindShipmentDelivery, WorkID: workID})
}

func (r *JobRegistry) ShipmentAssemblyIndex(workID int) int {
	return r.index(JobKey{Kind: KindShipmentAssembly, WorkID: workID})
}

func (r *JobRegistry) DummyIndex(wave, vehicleID int) int {
	return r.index(JobKey{Kind: KindDummy, Wave: wave, VehicleID: vehicleID})
}

// Key resolves a solver job index back to its planning meaning
func (r *JobRegistry) Key(index int) (JobKey, bool) {
	key, ok := r.keys[index]
	return key, ok
}

// IsDummy reports whether an index is an anchor rather than a work
// leg: dummy vehicle anchors and shipment assembly stops carry no
// task of their own in the response.
func (r *JobRegistry) IsDummy(index int) bool {
	key, ok := r.keys[index]
	if !ok {
		return false
	}
	return key.Kind == KindDummy || key.Kind == KindShipmentAssembly
}
