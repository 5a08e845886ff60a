package medicalrecord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klinik/klinik/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const recordCols = `id, patient_id, medical_record_number, queue_entry_id, consultation_date,
	last_consultation_date, reservation_date, vital_signs, anamnesis, physical_examination,
	diagnosis, diagnosis_notes, therapies, medical_actions, status, created_at, created_by,
	updated_at, updated_by`

// jsonDocs are the nested parts of a record stored as JSONB columns.
type jsonDocs struct {
	vitals, anamnesis, exam, therapies, actions []byte
}

func marshalDocs(r *MedicalRecord) (jsonDocs, error) {
	var (
		d   jsonDocs
		err error
	)
	if d.vitals, err = json.Marshal(r.VitalSigns); err != nil {
		return d, fmt.Errorf("marshal vital_signs: %w", err)
	}
	if d.anamnesis, err = json.Marshal(r.Anamnesis); err != nil {
		return d, fmt.Errorf("marshal anamnesis: %w", err)
	}
	if d.exam, err = json.Marshal(r.PhysicalExamination); err != nil {
		return d, fmt.Errorf("marshal physical_examination: %w", err)
	}
	therapies := r.Therapies
	if therapies == nil {
		therapies = []Therapy{}
	}
	if d.therapies, err = json.Marshal(therapies); err != nil {
		return d, fmt.Errorf("marshal therapies: %w", err)
	}
	actions := r.MedicalActions
	if actions == nil {
		actions = []MedicalAction{}
	}
	if d.actions, err = json.Marshal(actions); err != nil {
		return d, fmt.Errorf("marshal medical_actions: %w", err)
	}
	return d, nil
}

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var (
		r MedicalRecord
		d jsonDocs
	)
	err := row.Scan(&r.ID, &r.PatientID, &r.MedicalRecordNumber, &r.QueueEntryID, &r.ConsultationDate,
		&r.LastConsultationDate, &r.ReservationDate, &d.vitals, &d.anamnesis, &d.exam,
		&r.Diagnosis, &r.DiagnosisNotes, &d.therapies, &d.actions, &r.Status, &r.CreatedAt, &r.CreatedBy,
		&r.UpdatedAt, &r.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, doc := range []struct {
		raw []byte
		dst interface{}
	}{
		{d.vitals, &r.VitalSigns},
		{d.anamnesis, &r.Anamnesis},
		{d.exam, &r.PhysicalExamination},
		{d.therapies, &r.Therapies},
		{d.actions, &r.MedicalActions},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, fmt.Errorf("decode medical record %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func (p *repoPG) Create(ctx context.Context, r *MedicalRecord) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	d, err := marshalDocs(r)
	if err != nil {
		return err
	}
	_, err = db.Conn(ctx, p.pool).Exec(ctx, `
		INSERT INTO medical_record (`+recordCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		r.ID, r.PatientID, r.MedicalRecordNumber, r.QueueEntryID, r.ConsultationDate,
		r.LastConsultationDate, r.ReservationDate, d.vitals, d.anamnesis, d.exam,
		r.Diagnosis, r.DiagnosisNotes, d.therapies, d.actions, r.Status, r.CreatedAt, r.CreatedBy,
		r.UpdatedAt, r.UpdatedBy)
	return err
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return scanRecord(db.Conn(ctx, p.pool).QueryRow(ctx, `SELECT `+recordCols+` FROM medical_record WHERE id = $1`, id))
}

func (p *repoPG) Update(ctx context.Context, r *MedicalRecord, from Status) error {
	d, err := marshalDocs(r)
	if err != nil {
		return err
	}
	tag, err := db.Conn(ctx, p.pool).Exec(ctx, `
		UPDATE medical_record SET queue_entry_id=$2, reservation_date=$3, vital_signs=$4,
			anamnesis=$5, physical_examination=$6, diagnosis=$7, diagnosis_notes=$8,
			therapies=$9, medical_actions=$10, status=$11, updated_at=$12, updated_by=$13
		WHERE id = $1 AND status = $14`,
		r.ID, r.QueueEntryID, r.ReservationDate, d.vitals,
		d.anamnesis, d.exam, r.Diagnosis, r.DiagnosisNotes,
		d.therapies, d.actions, r.Status, r.UpdatedAt, r.UpdatedBy, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := p.GetByID(ctx, r.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (p *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*MedicalRecord, error) {
	rows, err := db.Conn(ctx, p.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*MedicalRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (p *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	return p.query(ctx, `SELECT `+recordCols+` FROM medical_record
		WHERE patient_id = $1 ORDER BY consultation_date DESC, created_at DESC`, patientID)
}

func (p *repoPG) List(ctx context.Context) ([]*MedicalRecord, error) {
	return p.query(ctx, `SELECT `+recordCols+` FROM medical_record ORDER BY consultation_date DESC, created_at DESC`)
}
