// Package router exposes the declaration archive over HTTP: filtered
// listing, detail lookup, deletion, statistics, and the streaming XLSX
// export.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OpenCCD/archive/internal/auth"
	"github.com/OpenCCD/archive/internal/declaration/model"
	"github.com/OpenCCD/archive/internal/declaration/service"
	"github.com/OpenCCD/archive/utils"
)

// DeclarationStore is the query layer the router runs on.
type DeclarationStore interface {
	List(ctx context.Context, filter service.ListFilter) ([]*model.Declaration, int64, error)
	GetByID(ctx context.Context, companyIDs []uuid.UUID, id uuid.UUID) (*model.Declaration, error)
	Delete(ctx context.Context, companyIDs []uuid.UUID, id uuid.UUID) error
	ScanBatches(ctx context.Context, filter service.ListFilter, batchSize int, fn func(batch []*model.Declaration) error) error
}

// StatisticsComputer aggregates statistics over a filtered declaration set.
type StatisticsComputer interface {
	Compute(decls []*model.Declaration, tab string) *model.Statistics
}

// Archiver persists a copy of a generated export artifact.
type Archiver interface {
	Archive(ctx context.Context, filename, contentType string, data []byte) error
}

type DeclarationRouter struct {
	store            DeclarationStore
	stats            StatisticsComputer
	exporter         exporter
	archiver         Archiver
	fetchConcurrency int
}

func NewDeclarationRouter(store DeclarationStore, stats StatisticsComputer, exp exporter) *DeclarationRouter {
	return &DeclarationRouter{store: store, stats: stats, exporter: exp}
}

// WithArchiver enables export-artifact archiving.
func (dr *DeclarationRouter) WithArchiver(a Archiver) *DeclarationRouter {
	dr.archiver = a
	return dr
}

// WithFetchConcurrency sets the detail-fetch pool size for exports.
func (dr *DeclarationRouter) WithFetchConcurrency(n int) *DeclarationRouter {
	dr.fetchConcurrency = n
	return dr
}

// Register wires the declaration routes onto the mux behind the auth
// middleware.
func Register(mux *http.ServeMux, dr *DeclarationRouter, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/declarations", requireAuth(http.HandlerFunc(dr.HandleListDeclarations)))
	mux.Handle("GET /api/declarations/statistics", requireAuth(http.HandlerFunc(dr.HandleGetStatistics)))
	mux.Handle("GET /api/declarations/export", requireAuth(http.HandlerFunc(dr.HandleExport)))
	mux.Handle("GET /api/declarations/{declarationID}", requireAuth(http.HandlerFunc(dr.HandleGetDeclaration)))
	mux.Handle("DELETE /api/declarations/{declarationID}", requireAuth(http.HandlerFunc(dr.HandleDeleteDeclaration)))
}

// listResponse is the paginated list envelope.
type listResponse struct {
	Items  []*model.Declaration `json:"items"`
	Total  int64                `json:"total"`
	Offset int                  `json:"offset"`
	Limit  int                  `json:"limit"`
}

// HandleListDeclarations handles GET /api/declarations requests.
// Optional query filters: offset, limit, dateFrom, dateTo, customsOffice,
// currency, consignor, consignee, contractHolder, hsCode, types, search.
func (dr *DeclarationRouter) HandleListDeclarations(w http.ResponseWriter, r *http.Request) {
	filter, ok := dr.filterFromRequest(w, r)
	if !ok {
		return
	}

	decls, total, err := dr.store.List(r.Context(), filter)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list declarations: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:  decls,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// HandleGetDeclaration handles GET /api/declarations/{declarationID}
// requests. The response includes the raw xmlData blob, which is what the
// export enrichment pool fetches.
func (dr *DeclarationRouter) HandleGetDeclaration(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.GetAuthContext(r.Context())
	if authCtx == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	id, ok := declarationID(w, r)
	if !ok {
		return
	}

	decl, err := dr.store.GetByID(r.Context(), authCtx.CompanyIDs, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "declaration not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("failed to get declaration: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, decl)
}

// HandleDeleteDeclaration handles DELETE /api/declarations/{declarationID}.
func (dr *DeclarationRouter) HandleDeleteDeclaration(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.GetAuthContext(r.Context())
	if authCtx == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	id, ok := declarationID(w, r)
	if !ok {
		return
	}

	if err := dr.store.Delete(r.Context(), authCtx.CompanyIDs, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "declaration not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("failed to delete declaration: %v", err), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetStatistics handles GET /api/declarations/statistics?tab=...
// requests. The same filters as the list endpoint apply; the whole filtered
// set is aggregated, not just one page.
func (dr *DeclarationRouter) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	filter, ok := dr.filterFromRequest(w, r)
	if !ok {
		return
	}
	filter.Offset = 0
	filter.Limit = 0

	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = "list60"
	}
	if tab != "list60" && tab != "list61" {
		http.Error(w, "invalid 'tab' query parameter, must be list60 or list61", http.StatusBadRequest)
		return
	}

	var decls []*model.Declaration
	err := dr.store.ScanBatches(r.Context(), filter, service.DefaultBatchSize, func(batch []*model.Declaration) error {
		decls = append(decls, batch...)
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to load declarations: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dr.stats.Compute(decls, tab))
}

// filterFromRequest builds the query filter shared by the list, statistics,
// and export handlers. ok=false means the response has been written.
func (dr *DeclarationRouter) filterFromRequest(w http.ResponseWriter, r *http.Request) (service.ListFilter, bool) {
	var filter service.ListFilter

	authCtx := auth.GetAuthContext(r.Context())
	if authCtx == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return filter, false
	}
	filter.CompanyIDs = authCtx.CompanyIDs

	q := r.URL.Query()

	if companyIDStr := q.Get("companyId"); companyIDStr != "" {
		companyID, err := uuid.Parse(companyIDStr)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid companyId: %v", err), http.StatusBadRequest)
			return filter, false
		}
		if !authCtx.CanAccessCompany(companyID) {
			http.Error(w, "access to the requested company is forbidden", http.StatusForbidden)
			return filter, false
		}
		filter.CompanyIDs = []uuid.UUID{companyID}
	}

	var offset, limit *int
	if offsetStr := q.Get("offset"); offsetStr != "" {
		v, err := strconv.Atoi(offsetStr)
		if err != nil {
			http.Error(w, "invalid 'offset' query parameter, must be an integer", http.StatusBadRequest)
			return filter, false
		}
		offset = &v
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, "invalid 'limit' query parameter, must be an integer", http.StatusBadRequest)
			return filter, false
		}
		limit = &v
	}
	filter.Offset, filter.Limit = utils.GetPaginationParams(offset, limit)

	if from := q.Get("dateFrom"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			http.Error(w, "invalid 'dateFrom' query parameter, must be YYYY-MM-DD", http.StatusBadRequest)
			return filter, false
		}
		filter.DateFrom = &t
	}
	if to := q.Get("dateTo"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			http.Error(w, "invalid 'dateTo' query parameter, must be YYYY-MM-DD", http.StatusBadRequest)
			return filter, false
		}
		// Inclusive end of day.
		end := t.AddDate(0, 0, 1).Add(-time.Second)
		filter.DateTo = &end
	}

	filter.CustomsOffice = q.Get("customsOffice")
	filter.Currency = q.Get("currency")
	filter.Consignor = q.Get("consignor")
	filter.Consignee = q.Get("consignee")
	filter.ContractHolder = q.Get("contractHolder")
	filter.HSCode = q.Get("hsCode")
	filter.Search = q.Get("search")
	if types := q.Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, t)
			}
		}
	}

	return filter, true
}

func declarationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("declarationID")
	if idStr == "" {
		http.Error(w, "missing declarationID in path", http.StatusBadRequest)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid declarationID: %v", err), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
