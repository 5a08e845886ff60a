package inventory

import (
	"time"

	"github.com/google/uuid"
)

type MedicineType string

const (
	TypeTablet    MedicineType = "tablet"
	TypeSyrup     MedicineType = "syrup"
	TypeInjection MedicineType = "injection"
	TypeCapsule   MedicineType = "capsule"
	TypeCream     MedicineType = "cream"
	TypePowder    MedicineType = "powder"
	TypeLiquid    MedicineType = "liquid"
)

var validMedicineTypes = map[MedicineType]bool{
	TypeTablet: true, TypeSyrup: true, TypeInjection: true, TypeCapsule: true,
	TypeCream: true, TypePowder: true, TypeLiquid: true,
}

// Medicine maps to the medicine table. Stock only changes through
// movements.
type Medicine struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	Name             string       `db:"name" json:"name"`
	ActiveIngredient string       `db:"active_ingredient" json:"active_ingredient"`
	Type             MedicineType `db:"type" json:"type"`
	PricePerUnit     float64      `db:"price_per_unit" json:"price_per_unit"`
	Stock            int          `db:"stock" json:"stock"`
	MinimumStock     int          `db:"minimum_stock" json:"minimum_stock"`
	Unit             string       `db:"unit" json:"unit"`
	ExpiryDate       *time.Time   `db:"expiry_date" json:"expiry_date,omitempty"`
	Manufacturer     *string      `db:"manufacturer" json:"manufacturer,omitempty"`
	BatchNumber      *string      `db:"batch_number" json:"batch_number,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	LastRestocked    *time.Time   `db:"last_restocked" json:"last_restocked,omitempty"`
}

// LowStock reports whether stock has fallen to the alert threshold.
func (m *Medicine) LowStock() bool {
	return m.Stock <= m.MinimumStock
}

type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

type StockMovement struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	MedicineID  uuid.UUID    `db:"medicine_id" json:"medicine_id"`
	Type        MovementType `db:"type" json:"type"`
	Quantity    int          `db:"quantity" json:"quantity"`
	Reason      string       `db:"reason" json:"reason"`
	ReferenceID *string      `db:"reference_id" json:"reference_id,omitempty"`
	Notes       *string      `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	CreatedBy   string       `db:"created_by" json:"created_by"`
}

// PriceChange is one entry of a medicine's price history.
type PriceChange struct {
	MedicineID   uuid.UUID `db:"medicine_id" json:"medicine_id"`
	PricePerUnit float64   `db:"price_per_unit" json:"price_per_unit"`
	DateChanged  time.Time `db:"date_changed" json:"date_changed"`
	ChangedBy    string    `db:"changed_by" json:"changed_by"`
}
