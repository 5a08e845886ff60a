package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klinik/klinik/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const medicineCols = `id, name, active_ingredient, type, price_per_unit, stock, minimum_stock, unit,
	expiry_date, manufacturer, batch_number, created_at, last_restocked`

const movementCols = `id, medicine_id, type, quantity, reason, reference_id, notes, created_at, created_by`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.ActiveIngredient, &m.Type, &m.PricePerUnit, &m.Stock, &m.MinimumStock, &m.Unit,
		&m.ExpiryDate, &m.Manufacturer, &m.BatchNumber, &m.CreatedAt, &m.LastRestocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *repoPG) CreateMedicine(ctx context.Context, m *Medicine) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medicine (`+medicineCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		m.ID, m.Name, m.ActiveIngredient, m.Type, m.PricePerUnit, m.Stock, m.MinimumStock, m.Unit,
		m.ExpiryDate, m.Manufacturer, m.BatchNumber, m.CreatedAt, m.LastRestocked)
	return err
}

func (r *repoPG) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return scanMedicine(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicine WHERE id = $1`, id))
}

func (r *repoPG) GetMedicineForUpdate(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return scanMedicine(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicine WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) UpdateMedicine(ctx context.Context, m *Medicine) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medicine SET name=$2, active_ingredient=$3, type=$4, price_per_unit=$5, stock=$6,
			minimum_stock=$7, unit=$8, expiry_date=$9, manufacturer=$10, batch_number=$11, last_restocked=$12
		WHERE id = $1`,
		m.ID, m.Name, m.ActiveIngredient, m.Type, m.PricePerUnit, m.Stock,
		m.MinimumStock, m.Unit, m.ExpiryDate, m.Manufacturer, m.BatchNumber, m.LastRestocked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM medicine WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListMedicines(ctx context.Context) ([]*Medicine, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+medicineCols+` FROM medicine ORDER BY lower(name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) AddMovement(ctx context.Context, mv *StockMovement) error {
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO stock_movement (`+movementCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		mv.ID, mv.MedicineID, mv.Type, mv.Quantity, mv.Reason, mv.ReferenceID, mv.Notes, mv.CreatedAt, mv.CreatedBy)
	return err
}

func (r *repoPG) ListMovements(ctx context.Context, medicineID uuid.UUID) ([]*StockMovement, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+movementCols+` FROM stock_movement
		WHERE medicine_id = $1 ORDER BY created_at DESC`, medicineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*StockMovement{}
	for rows.Next() {
		var mv StockMovement
		if err := rows.Scan(&mv.ID, &mv.MedicineID, &mv.Type, &mv.Quantity, &mv.Reason,
			&mv.ReferenceID, &mv.Notes, &mv.CreatedAt, &mv.CreatedBy); err != nil {
			return nil, err
		}
		items = append(items, &mv)
	}
	return items, rows.Err()
}

func (r *repoPG) AddPriceChange(ctx context.Context, pc *PriceChange) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medicine_price (medicine_id, price_per_unit, date_changed, changed_by)
		VALUES ($1,$2,$3,$4)`, pc.MedicineID, pc.PricePerUnit, pc.DateChanged, pc.ChangedBy)
	return err
}

func (r *repoPG) ListPriceChanges(ctx context.Context, medicineID uuid.UUID) ([]*PriceChange, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT medicine_id, price_per_unit, date_changed, changed_by FROM medicine_price
		WHERE medicine_id = $1 ORDER BY date_changed DESC`, medicineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*PriceChange{}
	for rows.Next() {
		var pc PriceChange
		if err := rows.Scan(&pc.MedicineID, &pc.PricePerUnit, &pc.DateChanged, &pc.ChangedBy); err != nil {
			return nil, err
		}
		items = append(items, &pc)
	}
	return items, rows.Err()
}
