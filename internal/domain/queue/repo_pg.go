package queue

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

// queue_date is a DATE column; it is read back as text to keep the
// YYYY-MM-DD form.
const entryCols = `id, patient_id, patient_name, medical_record_number, queue_date::text,
	queue_number, queue_type, status, priority, check_in_time, start_time, end_time,
	doctor_id, medical_record_id, notes, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.PatientName, &e.MedicalRecordNumber, &e.QueueDate,
		&e.QueueNumber, &e.QueueType, &e.Status, &e.Priority, &e.CheckInTime, &e.StartTime, &e.EndTime,
		&e.DoctorID, &e.MedicalRecordID, &e.Notes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO queue_entry (id, patient_id, patient_name, medical_record_number, queue_date,
			queue_number, queue_type, status, priority, check_in_time, start_time, end_time,
			doctor_id, medical_record_id, notes, created_at)
		VALUES ($1,$2,$3,$4,$5::date,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		e.ID, e.PatientID, e.PatientName, e.MedicalRecordNumber, e.QueueDate,
		e.QueueNumber, e.QueueType, e.Status, e.Priority, e.CheckInTime, e.StartTime, e.EndTime,
		e.DoctorID, e.MedicalRecordID, e.Notes, e.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+entryCols+` FROM queue_entry WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, e *Entry, from Status) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE queue_entry SET status=$3, start_time=$4, end_time=$5, doctor_id=$6,
			medical_record_id=$7, notes=$8, priority=$9
		WHERE id = $1 AND status = $2`,
		e.ID, from, e.Status, e.StartTime, e.EndTime, e.DoctorID,
		e.MedicalRecordID, e.Notes, e.Priority)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, e.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (r *repoPG) ListByDate(ctx context.Context, day string) ([]*Entry, error) {
	return r.ListBetween(ctx, day, day)
}

func (r *repoPG) ListBetween(ctx context.Context, startDay, endDay string) ([]*Entry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+entryCols+` FROM queue_entry
		WHERE queue_date BETWEEN $1::date AND $2::date
		ORDER BY queue_date, queue_number`, startDay, endDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
