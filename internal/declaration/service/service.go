// Package service is the gorm-backed query layer for the declaration
// archive: filtered listing, detail lookup, deletion, and the batched cursor
// scan the streaming export runs on.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

// ErrNotFound is returned when a declaration does not exist or is outside
// the caller's company scope.
var ErrNotFound = errors.New("declaration not found")

// DefaultBatchSize is the export scan batch size.
const DefaultBatchSize = 200

// ListFilter narrows a declaration query. CompanyIDs is the caller's access
// scope and is always applied; everything else is optional.
type ListFilter struct {
	CompanyIDs     []uuid.UUID
	DateFrom       *time.Time
	DateTo         *time.Time
	CustomsOffice  string
	Currency       string
	Consignor      string
	Consignee      string
	ContractHolder string
	HSCode         string
	Types          []string
	Search         string
	Offset         int
	Limit          int
}

type DeclarationService struct {
	db *gorm.DB
}

func NewDeclarationService(db *gorm.DB) *DeclarationService {
	return &DeclarationService{db: db}
}

// List returns the filtered page plus the total match count.
func (s *DeclarationService) List(ctx context.Context, filter ListFilter) ([]*model.Declaration, int64, error) {
	if len(filter.CompanyIDs) == 0 {
		return nil, 0, nil
	}

	var total int64
	if err := s.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count declarations: %w", err)
	}

	query := s.filtered(ctx, filter).
		Preload("Summary").
		Preload("HSCodes").
		Order("declarations.date DESC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var decls []*model.Declaration
	if err := query.Find(&decls).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list declarations: %w", err)
	}
	return decls, total, nil
}

// GetByID retrieves one declaration within the caller's company scope,
// summary and HS-code rows included.
func (s *DeclarationService) GetByID(ctx context.Context, companyIDs []uuid.UUID, id uuid.UUID) (*model.Declaration, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("declaration ID cannot be nil")
	}

	var decl model.Declaration
	result := s.db.WithContext(ctx).
		Preload("Summary").
		Preload("HSCodes").
		Where("declarations.company_id IN ?", companyIDs).
		First(&decl, "declarations.id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve declaration: %w", result.Error)
	}
	return &decl, nil
}

// Delete removes a declaration and its dependent rows within the caller's
// company scope.
func (s *DeclarationService) Delete(ctx context.Context, companyIDs []uuid.UUID, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("declaration ID cannot be nil")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var decl model.Declaration
		if err := tx.Where("declarations.company_id IN ?", companyIDs).
			First(&decl, "declarations.id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to retrieve declaration: %w", err)
		}

		if err := tx.Where("declaration_id = ?", id).Delete(&model.Summary{}).Error; err != nil {
			return fmt.Errorf("failed to delete declaration summary: %w", err)
		}
		if err := tx.Where("declaration_id = ?", id).Delete(&model.DeclarationHSCode{}).Error; err != nil {
			return fmt.Errorf("failed to delete declaration hs codes: %w", err)
		}
		if err := tx.Delete(&decl).Error; err != nil {
			return fmt.Errorf("failed to delete declaration: %w", err)
		}
		return nil
	})
}

// ScanBatches walks the filtered set in primary-key order, invoking fn once
// per batch. The export handler runs this twice with the same filter: one
// pass collecting payment codes, one pass streaming rows.
func (s *DeclarationService) ScanBatches(ctx context.Context, filter ListFilter, batchSize int, fn func(batch []*model.Declaration) error) error {
	if len(filter.CompanyIDs) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var batch []*model.Declaration
	result := s.filtered(ctx, filter).
		Preload("Summary").
		Preload("HSCodes").
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(batch)
		})
	if result.Error != nil {
		return fmt.Errorf("failed to scan declarations: %w", result.Error)
	}
	return nil
}

// filtered builds the shared WHERE clause of List and ScanBatches. Summary
// columns join in once; substring filters are case-insensitive.
func (s *DeclarationService) filtered(ctx context.Context, f ListFilter) *gorm.DB {
	q := s.db.WithContext(ctx).
		Model(&model.Declaration{}).
		Joins("LEFT JOIN declaration_summaries ON declaration_summaries.declaration_id = declarations.id").
		Where("declarations.company_id IN ?", f.CompanyIDs)

	if f.DateFrom != nil {
		q = q.Where("declarations.date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("declarations.date <= ?", *f.DateTo)
	}
	if f.CustomsOffice != "" {
		q = q.Where("declaration_summaries.customs_office ILIKE ?", contains(f.CustomsOffice))
	}
	if f.Currency != "" {
		q = q.Where("declaration_summaries.invoice_currency = ?", f.Currency)
	}
	if f.Consignor != "" {
		q = q.Where("declaration_summaries.sender_name ILIKE ?", contains(f.Consignor))
	}
	if f.Consignee != "" {
		q = q.Where("declaration_summaries.recipient_name ILIKE ?", contains(f.Consignee))
	}
	if f.ContractHolder != "" {
		q = q.Where("declaration_summaries.contract_holder ILIKE ?", contains(f.ContractHolder))
	}
	if f.HSCode != "" {
		q = q.Where("EXISTS (SELECT 1 FROM declaration_hs_codes WHERE declaration_hs_codes.declaration_id = declarations.id AND declaration_hs_codes.hs_code LIKE ?)",
			contains(f.HSCode))
	}
	if len(f.Types) > 0 {
		q = q.Where("declaration_summaries.declaration_type IN ?", f.Types)
	}
	if f.Search != "" {
		needle := contains(f.Search)
		q = q.Where("declarations.mrn ILIKE ? OR declaration_summaries.sender_name ILIKE ? OR declaration_summaries.recipient_name ILIKE ?",
			needle, needle, needle)
	}
	return q
}

func contains(s string) string {
	return "%" + s + "%"
}
