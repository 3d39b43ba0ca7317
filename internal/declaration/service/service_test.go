package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, sqlMock
}

func declarationRows(ids ...uuid.UUID) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "company_id", "mrn", "status", "date"})
	for i, id := range ids {
		rows.AddRow(id, uuid.New(), "25UA10000000000"+string(rune('1'+i)), "CLEARED", time.Now())
	}
	return rows
}

func TestDeclarationService_List(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	sqlMock.MatchExpectationsInOrder(false)
	svc := NewDeclarationService(db)

	companyID := uuid.New()
	declID := uuid.New()

	sqlMock.ExpectQuery(`SELECT count\(\*\) FROM "declarations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	sqlMock.ExpectQuery(`SELECT .+ FROM "declarations" LEFT JOIN declaration_summaries`).
		WillReturnRows(declarationRows(declID))
	sqlMock.ExpectQuery(`SELECT \* FROM "declaration_summaries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "declaration_id", "customs_value"}).
			AddRow(uuid.New(), declID, 1000.0))
	sqlMock.ExpectQuery(`SELECT \* FROM "declaration_hs_codes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "declaration_id", "hs_code"}).
			AddRow(uuid.New(), declID, "8471300000"))

	decls, total, err := svc.List(context.Background(), ListFilter{
		CompanyIDs: []uuid.UUID{companyID},
		Limit:      20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, decls, 1)
	assert.Equal(t, declID, decls[0].ID)
	require.NotNil(t, decls[0].Summary)
	assert.Equal(t, 1000.0, decls[0].Summary.CustomsValue)
	require.Len(t, decls[0].HSCodes, 1)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestDeclarationService_List_EmptyCompanyScope(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDeclarationService(db)

	decls, total, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, decls)
}

func TestDeclarationService_List_FilterArguments(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	sqlMock.MatchExpectationsInOrder(false)
	svc := NewDeclarationService(db)

	companyID := uuid.New()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	sqlMock.ExpectQuery(`SELECT count\(\*\) FROM "declarations"`).
		WithArgs(companyID, from, "%Гамбург%", "EUR", "%8471%", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	sqlMock.ExpectQuery(`SELECT .+ FROM "declarations"`).
		WillReturnRows(declarationRows())

	_, _, err := svc.List(context.Background(), ListFilter{
		CompanyIDs:    []uuid.UUID{companyID},
		DateFrom:      &from,
		CustomsOffice: "Гамбург",
		Currency:      "EUR",
		HSCode:        "8471",
		Search:        "MRN",
	})
	require.NoError(t, err)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestDeclarationService_GetByID(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	sqlMock.MatchExpectationsInOrder(false)
	svc := NewDeclarationService(db)

	companyID := uuid.New()
	declID := uuid.New()

	sqlMock.ExpectQuery(`SELECT .+ FROM "declarations"`).
		WillReturnRows(declarationRows(declID))
	sqlMock.ExpectQuery(`SELECT \* FROM "declaration_summaries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "declaration_id"}))
	sqlMock.ExpectQuery(`SELECT \* FROM "declaration_hs_codes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "declaration_id", "hs_code"}))

	decl, err := svc.GetByID(context.Background(), []uuid.UUID{companyID}, declID)
	require.NoError(t, err)
	assert.Equal(t, declID, decl.ID)
}

func TestDeclarationService_GetByID_NotFound(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	svc := NewDeclarationService(db)

	sqlMock.ExpectQuery(`SELECT .+ FROM "declarations"`).
		WillReturnRows(declarationRows())

	_, err := svc.GetByID(context.Background(), []uuid.UUID{uuid.New()}, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeclarationService_Delete(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	svc := NewDeclarationService(db)

	declID := uuid.New()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(`SELECT .+ FROM "declarations"`).
		WillReturnRows(declarationRows(declID))
	sqlMock.ExpectExec(`DELETE FROM "declaration_summaries"`).
		WithArgs(declID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec(`DELETE FROM "declaration_hs_codes"`).
		WithArgs(declID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec(`DELETE FROM "declarations"`).
		WithArgs(declID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	err := svc.Delete(context.Background(), []uuid.UUID{uuid.New()}, declID)
	require.NoError(t, err)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestDeclarationService_Delete_NotFound(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	svc := NewDeclarationService(db)

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(`SELECT .+ FROM "declarations"`).
		WillReturnRows(declarationRows())
	sqlMock.ExpectRollback()

	err := svc.Delete(context.Background(), []uuid.UUID{uuid.New()}, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeclarationService_ScanBatches(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	sqlMock.MatchExpectationsInOrder(false)
	svc := NewDeclarationService(db)

	id1, id2 := uuid.New(), uuid.New()

	sqlMock.ExpectQuery(`SELECT .+ FROM "declarations"`).
		WillReturnRows(declarationRows(id1, id2))
	sqlMock.ExpectQuery(`SELECT \* FROM "declaration_summaries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "declaration_id"}))
	sqlMock.ExpectQuery(`SELECT \* FROM "declaration_hs_codes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "declaration_id", "hs_code"}))

	var seen []uuid.UUID
	err := svc.ScanBatches(context.Background(), ListFilter{CompanyIDs: []uuid.UUID{uuid.New()}}, 200,
		func(batch []*model.Declaration) error {
			for _, d := range batch {
				seen = append(seen, d.ID)
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id1, id2}, seen)
}

func TestDeclarationService_ScanBatches_Cancelled(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDeclarationService(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.ScanBatches(ctx, ListFilter{CompanyIDs: []uuid.UUID{uuid.New()}}, 200,
		func([]*model.Declaration) error { return nil })
	assert.Error(t, err)
}
