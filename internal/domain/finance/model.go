package finance

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

type Category string

const (
	CategoryPatientFee       Category = "patient_fee"
	CategoryMedicineSale     Category = "medicine_sale"
	CategoryConsultationFee  Category = "consultation_fee"
	CategoryMedicinePurchase Category = "medicine_purchase"
	CategoryOperational      Category = "operational"
	CategorySalary           Category = "salary"
	CategoryUtilities        Category = "utilities"
	CategoryEquipment        Category = "equipment"
	CategoryOther            Category = "other"
)

// categoryTypes lists the transaction types each category may be booked as.
var categoryTypes = map[Category][]Type{
	CategoryPatientFee:       {TypeIncome},
	CategoryMedicineSale:     {TypeIncome},
	CategoryConsultationFee:  {TypeIncome},
	CategoryMedicinePurchase: {TypeExpense},
	CategoryOperational:      {TypeExpense},
	CategorySalary:           {TypeExpense},
	CategoryUtilities:        {TypeExpense},
	CategoryEquipment:        {TypeExpense},
	CategoryOther:            {TypeIncome, TypeExpense},
}

func (c Category) Allows(t Type) bool {
	for _, allowed := range categoryTypes[c] {
		if allowed == t {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheck        PaymentMethod = "check"
)

var validPaymentMethods = map[PaymentMethod]bool{
	PaymentCash: true, PaymentCreditCard: true, PaymentBankTransfer: true, PaymentCheck: true,
}

type ReferenceType string

const (
	ReferenceMedicalRecord ReferenceType = "medical_record"
	ReferenceMedicine      ReferenceType = "medicine"
	ReferenceInvoice       ReferenceType = "invoice"
)

var validReferenceTypes = map[ReferenceType]bool{
	ReferenceMedicalRecord: true, ReferenceMedicine: true, ReferenceInvoice: true,
}

// DefaultCurrency is used when a transaction does not name one.
const DefaultCurrency = "IDR"

// Transaction maps to the financial_transaction table.
type Transaction struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	Type          Type           `db:"type" json:"type"`
	Category      Category       `db:"category" json:"category"`
	Description   string         `db:"description" json:"description"`
	Amount        float64        `db:"amount" json:"amount"`
	Currency      string         `db:"currency" json:"currency"`
	ReferenceType *ReferenceType `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *string        `db:"reference_id" json:"reference_id,omitempty"`
	PatientID     *uuid.UUID     `db:"patient_id" json:"patient_id,omitempty"`
	PaymentMethod *PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	Notes         *string        `db:"notes" json:"notes,omitempty"`
	Status        Status         `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	CreatedBy     string         `db:"created_by" json:"created_by"`
}

// Counted reports whether t contributes to financial summaries.
func (t *Transaction) Counted() bool {
	return t.Status == StatusCompleted
}
