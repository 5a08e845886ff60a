package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klinik/klinik/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, medical_record_number, name, date_of_birth, gender, address,
	blood_type, occupation, phone, email, weight, height, treatment_category,
	diagnosis, last_consultation_date, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MedicalRecordNumber, &p.Name, &p.DateOfBirth, &p.Gender, &p.Address,
		&p.BloodType, &p.Occupation, &p.Phone, &p.Email, &p.Weight, &p.Height, &p.TreatmentCategory,
		&p.Diagnosis, &p.LastConsultationDate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (id, medical_record_number, name, date_of_birth, gender, address,
			blood_type, occupation, phone, email, weight, height, treatment_category,
			diagnosis, last_consultation_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.MedicalRecordNumber, p.Name, p.DateOfBirth, p.Gender, p.Address,
		p.BloodType, p.Occupation, p.Phone, p.Email, p.Weight, p.Height, p.TreatmentCategory,
		p.Diagnosis, p.LastConsultationDate, p.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateMRN
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE medical_record_number = $1`, mrn))
}

// Update never touches medical_record_number or treatment_category.
func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET name=$2, date_of_birth=$3, gender=$4, address=$5, blood_type=$6,
			occupation=$7, phone=$8, email=$9, weight=$10, height=$11, diagnosis=$12,
			last_consultation_date=$13, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.Address, p.BloodType,
		p.Occupation, p.Phone, p.Email, p.Weight, p.Height, p.Diagnosis,
		p.LastConsultationDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Patient, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY created_at, medical_record_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) CountByCategory(ctx context.Context, category TreatmentCategory) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE treatment_category = $1`, category).Scan(&n)
	return n, err
}
