package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidSession is returned for unknown or expired tokens.
var ErrInvalidSession = errors.New("invalid or expired session")

// AuthService resolves bearer tokens into authentication contexts.
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// ResolveSession looks up a session token and loads the user's company
// access scope. Unknown and expired tokens both map to ErrInvalidSession so
// callers cannot distinguish the two.
func (as *AuthService) ResolveSession(ctx context.Context, token string) (*AuthContext, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	var session Session
	result := as.db.WithContext(ctx).Where("token = ?", token).First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		slog.Error("failed to fetch session", "error", result.Error)
		return nil, fmt.Errorf("failed to fetch session: %w", result.Error)
	}

	if time.Now().After(session.ExpiresAt) {
		slog.Debug("session expired", "user_id", session.UserID)
		return nil, ErrInvalidSession
	}

	var accesses []CompanyAccess
	if err := as.db.WithContext(ctx).Where("user_id = ?", session.UserID).Find(&accesses).Error; err != nil {
		slog.Error("failed to fetch company accesses", "user_id", session.UserID, "error", err)
		return nil, fmt.Errorf("failed to fetch company accesses: %w", err)
	}

	companyIDs := make([]uuid.UUID, 0, len(accesses))
	for _, a := range accesses {
		companyIDs = append(companyIDs, a.CompanyID)
	}

	return &AuthContext{UserID: session.UserID, CompanyIDs: companyIDs}, nil
}
