package model

import (
	"time"

	"github.com/google/uuid"
)

// DeclarationStatus represents the processing status reported by the customs API.
type DeclarationStatus string

const (
	DeclarationStatusCleared    DeclarationStatus = "CLEARED"
	DeclarationStatusProcessing DeclarationStatus = "PROCESSING"
	DeclarationStatusRejected   DeclarationStatus = "REJECTED"
)

// Declaration is a customs declaration record synchronized from the external
// customs API. XMLData holds the raw payload as received: a JSON envelope with
// embedded 60.1/61.1 fragments, bare XML text, or nothing at all.
type Declaration struct {
	BaseModel
	CustomsID string             `gorm:"type:varchar(100);column:customs_id;not null;index" json:"customsId"`
	CompanyID uuid.UUID          `gorm:"type:uuid;column:company_id;not null;index" json:"companyId"`
	MRN       string             `gorm:"type:varchar(50);column:mrn;index" json:"mrn"`
	Status    DeclarationStatus  `gorm:"type:varchar(20);column:status;not null" json:"status"`
	XMLData   *string            `gorm:"type:text;column:xml_data" json:"xmlData,omitempty"`
	Date      time.Time          `gorm:"type:timestamptz;column:date;not null;index" json:"date"`
	Summary   *Summary           `gorm:"foreignKey:DeclarationID" json:"summary,omitempty"`
	HSCodes   []DeclarationHSCode `gorm:"foreignKey:DeclarationID" json:"hsCodes,omitempty"`
}

func (d *Declaration) TableName() string {
	return "declarations"
}

// Summary is the denormalized cache row maintained alongside each declaration.
// It is the fallback data source whenever XMLData is absent or unparsable.
type Summary struct {
	BaseModel
	DeclarationID   uuid.UUID  `gorm:"type:uuid;column:declaration_id;not null;uniqueIndex" json:"declarationId"`
	SenderName      string     `gorm:"type:text;column:sender_name" json:"senderName"`
	RecipientName   string     `gorm:"type:text;column:recipient_name" json:"recipientName"`
	CustomsOffice   string     `gorm:"type:text;column:customs_office" json:"customsOffice"`
	DeclarationType string     `gorm:"type:varchar(50);column:declaration_type" json:"declarationType"`
	ContractHolder  string     `gorm:"type:text;column:contract_holder" json:"contractHolder"`
	RegisteredDate  *time.Time `gorm:"type:timestamptz;column:registered_date" json:"registeredDate,omitempty"`
	CustomsValue    float64    `gorm:"type:numeric;column:customs_value" json:"customsValue"`
	InvoiceValue    float64    `gorm:"type:numeric;column:invoice_value" json:"invoiceValue"`
	InvoiceValueUAH float64    `gorm:"type:numeric;column:invoice_value_uah" json:"invoiceValueUah"`
	InvoiceCurrency string     `gorm:"type:varchar(10);column:invoice_currency" json:"invoiceCurrency"`
	ExchangeRate    float64    `gorm:"type:numeric;column:exchange_rate" json:"exchangeRate"`
	TotalItems      int        `gorm:"type:integer;column:total_items" json:"totalItems"`
}

func (s *Summary) TableName() string {
	return "declaration_summaries"
}

// DeclarationHSCode is the denormalized HS-code join row for a declaration.
type DeclarationHSCode struct {
	BaseModel
	DeclarationID uuid.UUID `gorm:"type:uuid;column:declaration_id;not null;index" json:"declarationId"`
	HSCode        string    `gorm:"type:varchar(20);column:hs_code;not null" json:"hsCode"`
}

func (h *DeclarationHSCode) TableName() string {
	return "declaration_hs_codes"
}
