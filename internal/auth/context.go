package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session is a persisted bearer-token session row.
type Session struct {
	Token     string    `gorm:"type:varchar(100);column:token;primaryKey;not null" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null;index" json:"userId"`
	ExpiresAt time.Time `gorm:"type:timestamptz;column:expires_at;not null" json:"expiresAt"`
}

func (s *Session) TableName() string {
	return "sessions"
}

// CompanyAccess grants a user visibility into one company's declarations.
type CompanyAccess struct {
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null;index" json:"userId"`
	CompanyID uuid.UUID `gorm:"type:uuid;column:company_id;not null;index" json:"companyId"`
}

func (c *CompanyAccess) TableName() string {
	return "company_accesses"
}

// AuthContext is the transient per-request authentication context injected by
// the middleware: the session's user plus the companies the user may read.
type AuthContext struct {
	UserID     uuid.UUID
	CompanyIDs []uuid.UUID
}

// CanAccessCompany reports whether the given company is in the user's scope.
func (ac *AuthContext) CanAccessCompany(companyID uuid.UUID) bool {
	if ac == nil {
		return false
	}
	for _, id := range ac.CompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}
