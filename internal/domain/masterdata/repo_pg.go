package masterdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klinik/klinik/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const doctorCols = `id, name, specialization, license_number, phone, email, address, schedule, is_active, created_at`

const diagnosisCols = `id, name, code, description, related_medicines`

const formulaCols = `id, name, medicines, usage, duration, indication, notes, created_at, created_by`

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func affected(tag pgconn.CommandTag, err error, notFound error) error {
	if err != nil {
		return uniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// jsonb marshals v, writing an empty array for a nil slice.
func jsonb[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var (
		d        Doctor
		schedule []byte
	)
	err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.LicenseNumber, &d.Phone, &d.Email, &d.Address,
		&schedule, &d.IsActive, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(schedule, &d.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule of doctor %s: %w", d.ID, err)
	}
	return &d, nil
}

func (r *repoPG) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	schedule, err := jsonb(d.Schedule)
	if err != nil {
		return err
	}
	_, err = db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctor (`+doctorCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.Name, d.Specialization, d.LicenseNumber, d.Phone, d.Email, d.Address,
		schedule, d.IsActive, d.CreatedAt)
	return uniqueViolation(err)
}

func (r *repoPG) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *repoPG) UpdateDoctor(ctx context.Context, d *Doctor) error {
	schedule, err := jsonb(d.Schedule)
	if err != nil {
		return err
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE doctor SET name=$2, specialization=$3, license_number=$4, phone=$5, email=$6,
			address=$7, schedule=$8, is_active=$9
		WHERE id = $1`,
		d.ID, d.Name, d.Specialization, d.LicenseNumber, d.Phone, d.Email, d.Address, schedule, d.IsActive)
	return affected(tag, err, ErrDoctorNotFound)
}

func (r *repoPG) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func scanDiagnosis(row pgx.Row) (*DiagnosisCategory, error) {
	var (
		d       DiagnosisCategory
		related []byte
	)
	err := row.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &related)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDiagnosisNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(related, &d.RelatedMedicines); err != nil {
		return nil, fmt.Errorf("decode related medicines of %s: %w", d.Code, err)
	}
	return &d, nil
}

func (r *repoPG) CreateDiagnosis(ctx context.Context, d *DiagnosisCategory) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	related, err := jsonb(d.RelatedMedicines)
	if err != nil {
		return err
	}
	_, err = db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO diagnosis_category (`+diagnosisCols+`) VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.Name, d.Code, d.Description, related)
	return uniqueViolation(err)
}

func (r *repoPG) GetDiagnosis(ctx context.Context, id uuid.UUID) (*DiagnosisCategory, error) {
	return scanDiagnosis(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+diagnosisCols+` FROM diagnosis_category WHERE id = $1`, id))
}

func (r *repoPG) UpdateDiagnosis(ctx context.Context, d *DiagnosisCategory) error {
	related, err := jsonb(d.RelatedMedicines)
	if err != nil {
		return err
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE diagnosis_category SET name=$2, code=$3, description=$4, related_medicines=$5
		WHERE id = $1`,
		d.ID, d.Name, d.Code, d.Description, related)
	return affected(tag, err, ErrDiagnosisNotFound)
}

func (r *repoPG) DeleteDiagnosis(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM diagnosis_category WHERE id = $1`, id)
	return affected(tag, err, ErrDiagnosisNotFound)
}

func (r *repoPG) ListDiagnoses(ctx context.Context) ([]*DiagnosisCategory, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+diagnosisCols+` FROM diagnosis_category ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*DiagnosisCategory{}
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func scanFormula(row pgx.Row) (*MedicineFormula, error) {
	var (
		f         MedicineFormula
		medicines []byte
	)
	err := row.Scan(&f.ID, &f.Name, &medicines, &f.Usage, &f.Duration, &f.Indication, &f.Notes,
		&f.CreatedAt, &f.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFormulaNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(medicines, &f.Medicines); err != nil {
		return nil, fmt.Errorf("decode formula %s: %w", f.ID, err)
	}
	return &f, nil
}

func (r *repoPG) CreateFormula(ctx context.Context, f *MedicineFormula) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	medicines, err := jsonb(f.Medicines)
	if err != nil {
		return err
	}
	_, err = db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medicine_formula (`+formulaCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		f.ID, f.Name, medicines, f.Usage, f.Duration, f.Indication, f.Notes, f.CreatedAt, f.CreatedBy)
	return err
}

func (r *repoPG) GetFormula(ctx context.Context, id uuid.UUID) (*MedicineFormula, error) {
	return scanFormula(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+formulaCols+` FROM medicine_formula WHERE id = $1`, id))
}

func (r *repoPG) UpdateFormula(ctx context.Context, f *MedicineFormula) error {
	medicines, err := jsonb(f.Medicines)
	if err != nil {
		return err
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medicine_formula SET name=$2, medicines=$3, usage=$4, duration=$5, indication=$6, notes=$7
		WHERE id = $1`,
		f.ID, f.Name, medicines, f.Usage, f.Duration, f.Indication, f.Notes)
	return affected(tag, err, ErrFormulaNotFound)
}

func (r *repoPG) DeleteFormula(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM medicine_formula WHERE id = $1`, id)
	return affected(tag, err, ErrFormulaNotFound)
}

func (r *repoPG) ListFormulas(ctx context.Context) ([]*MedicineFormula, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+formulaCols+` FROM medicine_formula ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*MedicineFormula{}
	for rows.Next() {
		f, err := scanFormula(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
