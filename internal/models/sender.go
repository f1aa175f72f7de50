package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/orderstack/orderstack/internal/utils"
)

// SupplierProbe is one named supplier lookup table. Candidates are tested
// against the text of each probe cell in order.
type SupplierProbe struct {
	Supplier   string   `json:"supplier"`
	Candidates []string `json:"candidates"`
	Cells      []string `json:"cells"`
}

// SupplierProbes is stored as a JSON column; declaration order is the
// probe priority order.
type SupplierProbes []SupplierProbe

func (p SupplierProbes) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *SupplierProbes) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// Sender is a configured business sender whose order spreadsheets we pull
// from the mailbox. Email is either a full address or a domain-only
// pattern like "@wholesaler.kz" that matches any address at that domain.
type Sender struct {
	ID              string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	CompanyName     string         `gorm:"column:company_name;type:varchar(255)" json:"companyName"`
	Email           string         `gorm:"column:email;type:varchar(255);uniqueIndex" json:"email"`
	Cities          JSONMap        `gorm:"column:cities;type:jsonb" json:"cities"`
	CellCoordinates StringList     `gorm:"column:cell_coordinates;type:jsonb" json:"cellCoordinates"`
	SupplierProbes  SupplierProbes `gorm:"column:supplier_probes;type:jsonb" json:"supplierProbes"`
	CreatedAt       time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Sender) TableName() string {
	return "senders"
}

func (m *Sender) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("sndr", 16)
	}
	return nil
}

// IsDomainPattern reports whether the sender matches a whole domain
// rather than one address.
func (m *Sender) IsDomainPattern() bool {
	return strings.HasPrefix(m.Email, "@")
}

// Validate rejects profiles that would fail at classification time.
func (m *Sender) Validate() error {
	if strings.TrimSpace(m.CompanyName) == "" {
		return ErrValidation("companyName is required")
	}
	if strings.TrimSpace(m.Email) == "" {
		return ErrValidation("email is required")
	}
	if len(m.CellCoordinates) == 0 {
		return ErrValidation("cellCoordinates must contain at least one cell")
	}
	for sub, main := range m.Cities {
		if strings.TrimSpace(main) == "" {
			return ErrValidation("city " + sub + " maps to an empty main city")
		}
	}
	for _, probe := range m.SupplierProbes {
		if strings.TrimSpace(probe.Supplier) == "" {
			return ErrValidation("supplier probe without a supplier label")
		}
		if len(probe.Candidates) == 0 || len(probe.Cells) == 0 {
			return ErrValidation("supplier probe " + probe.Supplier + " needs candidates and cells")
		}
	}
	return nil
}

// ErrValidation marks a profile configuration error.
type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }
