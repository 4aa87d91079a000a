package domain

type ReservationState string

const (
	ReservationReserved  ReservationState = "reserved"
	ReservationReleased  ReservationState = "released"
	ReservationConfirmed ReservationState = "confirmed"
)

// StockLevel is the ledger row for one dish.
type StockLevel struct {
	DishID        string
	Stock         int
	ReservedStock int
	IsActive      bool
}

func (s StockLevel) AvailableStock() int {
	if !s.IsActive {
		return 0
	}
	available := s.Stock - s.ReservedStock
	if available < 0 {
		return 0
	}
	return available
}

// InventoryReservation tracks one order item's hold on stock. OrderItemID is
// the idempotency key.
type InventoryReservation struct {
	OrderItemID string
	DishID      string
	Quantity    int
	State       ReservationState
}
