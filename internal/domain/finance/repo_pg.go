package finance

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

const txCols = `id, type, category, description, amount, currency, reference_type, reference_id,
	patient_id, payment_method, notes, status, created_at, created_by`

func scanTx(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Type, &t.Category, &t.Description, &t.Amount, &t.Currency,
		&t.ReferenceType, &t.ReferenceID, &t.PatientID, &t.PaymentMethod, &t.Notes,
		&t.Status, &t.CreatedAt, &t.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO financial_transaction (`+txCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.ID, t.Type, t.Category, t.Description, t.Amount, t.Currency,
		t.ReferenceType, t.ReferenceID, t.PatientID, t.PaymentMethod, t.Notes,
		t.Status, t.CreatedAt, t.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return scanTx(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+txCols+` FROM financial_transaction WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE financial_transaction SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Transaction, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+txCols+` FROM financial_transaction ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Transaction{}
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
