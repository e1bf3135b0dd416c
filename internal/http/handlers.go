package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cuentas/internal/core"
	"cuentas/internal/services"
	"cuentas/internal/storage"
)

type bookResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type movementRow struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Kind       string `json:"kind"`
	Category   string `json:"category"`
	CategoryID string `json:"category_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Fixed      bool   `json:"fixed"`
	Amount     string `json:"amount"`
	Formatted  string `json:"amount_formatted"`
}

type groupedRowResponse struct {
	Category   string `json:"category"`
	Detail     string `json:"detail"`
	Total      string `json:"total"`
	Formatted  string `json:"total_formatted"`
	Count      int    `json:"count"`
	Fixed      string `json:"fixed"`
	LatestDate string `json:"latest_date,omitempty"`
}

type totalsResponse struct {
	Income           string `json:"income"`
	Expense          string `json:"expense"`
	Balance          string `json:"balance"`
	IncomeFormatted  string `json:"income_formatted"`
	ExpenseFormatted string `json:"expense_formatted"`
	BalanceFormatted string `json:"balance_formatted"`
}

type sortResponse struct {
	Key       string `json:"key"`
	Direction string `json:"dir"`
}

type movementsResponse struct {
	Book       bookResponse         `json:"book"`
	Year       int                  `json:"year"`
	Totals     totalsResponse       `json:"totals"`
	Categories []string             `json:"categories"`
	Category   string               `json:"category"`
	Sort       sortResponse         `json:"sort"`
	Rows       []movementRow        `json:"rows,omitempty"`
	Groups     []groupedRowResponse `json:"groups,omitempty"`
}

type chartRowResponse struct {
	Category string `json:"category"`
	Fixed    string `json:"fixed"`
	Variable string `json:"variable"`
	Total    string `json:"total"`
}

type chartResponse struct {
	Book    bookResponse       `json:"book"`
	Year    int                `json:"year"`
	Income  []chartRowResponse `json:"income"`
	Expense []chartRowResponse `json:"expense"`
	Max     string             `json:"max"`
}

type segmentResponse struct {
	Kind     string `json:"kind"`
	Fixed    bool   `json:"fixed"`
	Category string `json:"category"`
}

type detailTotalResponse struct {
	Detail string `json:"detail"`
	Total  string `json:"total"`
}

type monthBucketResponse struct {
	Month   int                   `json:"month"`
	Details []detailTotalResponse `json:"details"`
	Total   string                `json:"total"`
}

type drilldownResponse struct {
	Segment *segmentResponse      `json:"segment"`
	Months  []monthBucketResponse `json:"months,omitempty"`
	Max     string                `json:"max,omitempty"`
}

type pivotCategoryResponse struct {
	Key             string         `json:"key"`
	Name            string         `json:"name"`
	IncomeFixed     map[int]string `json:"income_fixed,omitempty"`
	IncomeVariable  map[int]string `json:"income_variable,omitempty"`
	ExpenseFixed    map[int]string `json:"expense_fixed,omitempty"`
	ExpenseVariable map[int]string `json:"expense_variable,omitempty"`
	TotalFixed      string         `json:"total_fixed"`
	TotalVariable   string         `json:"total_variable"`
	Total           string         `json:"total"`
}

type yearTotalsResponse struct {
	Fixed    string `json:"fixed"`
	Variable string `json:"variable"`
	Total    string `json:"total"`
}

type pivotResponse struct {
	Book         bookResponse               `json:"book"`
	Years        []int                      `json:"years"`
	Categories   []pivotCategoryResponse    `json:"categories"`
	TotalsByYear map[int]yearTotalsResponse `json:"totals_by_year,omitempty"`
	GrandTotal   yearTotalsResponse         `json:"grand_total"`
	Max          string                     `json:"max"`
	Empty        string                     `json:"empty,omitempty"`
}

type movementRequest struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Detail     string `json:"detail"`
	Fixed      bool   `json:"fixed"`
	CategoryID string `json:"category_id"`
}

// loadSnapshot memoizes dashboard snapshots per book generation so
// repeated reads between writes hit the cache.
func (s *Server) loadSnapshot(r *http.Request, userID, bookID string, year int) (services.Snapshot, error) {
	key := fmt.Sprintf("%s|%s|%d|g%d", userID, bookID, year, s.generation(bookID))
	return s.snapshotCache.GetOrCompute(key, func() (services.Snapshot, error) {
		return s.dashboard.LoadSnapshot(r.Context(), userID, bookID, year)
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := requestUser(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing user")
		return
	}
	books, err := s.dashboard.Books(r.Context(), userID)
	if err != nil {
		s.respondInternal(w, r, "load books", err)
		return
	}
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, bookResponse{ID: b.ID, Name: b.Name, Currency: b.CurrencyOrDefault()})
	}
	respondJSON(w, http.StatusOK, map[string]any{"books": out})
}

func (s *Server) handleMovements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListMovements(w, r)
	case http.MethodPost:
		s.handleCreateMovement(w, r)
	case http.MethodPut:
		s.handleUpdateMovement(w, r)
	case http.MethodDelete:
		s.handleDeleteMovement(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListMovements(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing user")
		return
	}
	year := queryInt(r, "year", time.Now().Year())

	snap, err := s.loadSnapshot(r, userID, queryString(r, "book"), year)
	if err != nil {
		s.respondSnapshotError(w, r, err)
		return
	}

	formatter := s.dashboard.Formatter(snap.Book)
	set := core.Classify(snap.Movements, snap.Categories)
	all := set.All()

	options := core.CategoryOptions(all)
	filterOpts := parseFilterOptions(r)
	filterOpts.Category = core.ResolveCategorySelection(filterOpts.Category, options)
	filtered := core.ApplyFilters(all, filterOpts, formatter)

	sortSpec := parseSortSpec(r)
	resp := movementsResponse{
		Book:       bookResponse{ID: snap.Book.ID, Name: snap.Book.Name, Currency: snap.Book.CurrencyOrDefault()},
		Year:       year,
		Totals:     buildTotals(filtered, formatter),
		Categories: options,
		Category:   filterOpts.Category,
		Sort:       sortResponse{Key: string(sortSpec.Key), Direction: string(sortSpec.Direction)},
	}

	groupOpts := parseGroupOptions(r)
	if groupOpts.ByCategory || groupOpts.ByDetail {
		grouped := core.SortGrouped(core.BuildGroupedRows(filtered, groupOpts), sortSpec)
		resp.Groups = make([]groupedRowResponse, 0, len(grouped))
		for _, g := range grouped {
			row := groupedRowResponse{
				Category:  g.Category,
				Detail:    g.Detail,
				Total:     g.Total.String(),
				Formatted: formatter.Currency(g.Total),
				Count:     g.Count,
				Fixed:     string(g.FixedLabel),
			}
			if !g.LatestDate.IsZero() {
				row.LatestDate = g.LatestDate.Format("2006-01-02")
			}
			resp.Groups = append(resp.Groups, row)
		}
	} else {
		sorted := core.SortMovements(filtered, sortSpec)
		resp.Rows = make([]movementRow, 0, len(sorted))
		for _, c := range sorted {
			resp.Rows = append(resp.Rows, movementRow{
				ID:         c.ID,
				Date:       c.Date,
				Kind:       string(c.Kind),
				Category:   c.CategoryName,
				CategoryID: c.CategoryID,
				Detail:     c.DetailText,
				Fixed:      c.FixedStrict(),
				Amount:     c.Amount.String(),
				Formatted:  formatter.Currency(c.Magnitude),
			})
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func buildTotals(rows []core.Classified, f core.Formatter) totalsResponse {
	income := decimal.Zero
	expense := decimal.Zero
	for _, c := range rows {
		switch c.Kind {
		case core.KindIncome:
			income = income.Add(c.Magnitude)
		case core.KindExpense:
			expense = expense.Add(c.Magnitude)
		}
	}
	balance := income.Sub(expense)
	return totalsResponse{
		Income:           income.String(),
		Expense:          expense.String(),
		Balance:          balance.String(),
		IncomeFormatted:  f.Currency(income),
		ExpenseFormatted: f.Currency(expense),
		BalanceFormatted: f.Currency(balance),
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := requestUser(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing user")
		return
	}
	year := queryInt(r, "year", time.Now().Year())

	snap, err := s.loadSnapshot(r, userID, queryString(r, "book"), year)
	if err != nil {
		s.respondSnapshotError(w, r, err)
		return
	}

	filtered := s.filteredRows(r, snap)
	chart := core.BuildChart(filtered)

	respondJSON(w, http.StatusOK, chartResponse{
		Book:    bookResponse{ID: snap.Book.ID, Name: snap.Book.Name, Currency: snap.Book.CurrencyOrDefault()},
		Year:    year,
		Income:  chartRows(chart.Income),
		Expense: chartRows(chart.Expense),
		Max:     chart.Max.String(),
	})
}

func (s *Server) filteredRows(r *http.Request, snap services.Snapshot) []core.Classified {
	formatter := s.dashboard.Formatter(snap.Book)
	all := core.Classify(snap.Movements, snap.Categories).All()
	opts := parseFilterOptions(r)
	opts.Category = core.ResolveCategorySelection(opts.Category, core.CategoryOptions(all))
	return core.ApplyFilters(all, opts, formatter)
}

func chartRows(rows []core.ChartRow) []chartRowResponse {
	out := make([]chartRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, chartRowResponse{
			Category: row.Category,
			Fixed:    row.Fixed.String(),
			Variable: row.Variable.String(),
			Total:    row.Total.String(),
		})
	}
	return out
}

func (s *Server) handleDrilldown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := requestUser(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing user")
		return
	}
	year := queryInt(r, "year", time.Now().Year())

	snap, err := s.loadSnapshot(r, userID, queryString(r, "book"), year)
	if err != nil {
		s.respondSnapshotError(w, r, err)
		return
	}

	kind := core.ResolveKindText(queryString(r, "kind"))
	if kind == core.KindUnknown {
		respondError(w, http.StatusBadRequest, "unknown kind")
		return
	}
	category := queryString(r, "category")
	if category == "" {
		respondError(w, http.StatusBadRequest, "missing category")
		return
	}
	selected := core.Segment{
		Kind:     kind,
		Fixed:    queryBool(r, "segment_fixed", false),
		Category: category,
	}

	filtered := s.filteredRows(r, snap)
	chart := core.BuildChart(filtered)
	resolved := core.ResolveSegment(&selected, chart)
	if resolved == nil {
		// Stale selection: the segment no longer exists in the current
		// chart, so the client should clear it.
		respondJSON(w, http.StatusOK, drilldownResponse{Segment: nil})
		return
	}

	data := core.BuildDrilldown(filtered, *resolved)
	months := make([]monthBucketResponse, 0, len(data.Months))
	for _, m := range data.Months {
		details := make([]detailTotalResponse, 0, len(m.Details))
		for _, d := range m.Details {
			details = append(details, detailTotalResponse{Detail: d.Detail, Total: d.Total.String()})
		}
		months = append(months, monthBucketResponse{Month: m.Month, Details: details, Total: m.Total.String()})
	}
	respondJSON(w, http.StatusOK, drilldownResponse{
		Segment: &segmentResponse{
			Kind:     string(data.Segment.Kind),
			Fixed:    data.Segment.Fixed,
			Category: data.Segment.Category,
		},
		Months: months,
		Max:    data.Max.String(),
	})
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := requestUser(r)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing user")
		return
	}
	bookID := queryString(r, "book")
	opts := parsePivotOptions(r)

	key := fmt.Sprintf("pivot|%s|%s|%v|%v|%v|%v|%d|%s|%s|g%d",
		userID, bookID,
		opts.ShowIncome, opts.ShowExpense, opts.ShowFixed, opts.ShowVariable,
		opts.Year, opts.Category, opts.Detail,
		s.generation(bookID))

	resp, err := s.pivotCache.GetOrCompute(key, func() (pivotResponse, error) {
		// Year 0 pulls full history; the pivot spans every year with
		// movements regardless of the dashboard's selected year.
		snap, err := s.dashboard.LoadSnapshot(r.Context(), userID, bookID, 0)
		if err != nil {
			return pivotResponse{}, err
		}
		return buildPivotResponse(snap, opts), nil
	})
	if err != nil {
		s.respondSnapshotError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func buildPivotResponse(snap services.Snapshot, opts core.PivotOptions) pivotResponse {
	pivot := core.BuildPivot(snap.Movements, snap.Categories, opts)

	categories := make([]pivotCategoryResponse, 0, len(pivot.Categories))
	for _, c := range pivot.Categories {
		categories = append(categories, pivotCategoryResponse{
			Key:             c.Key,
			Name:            c.Name,
			IncomeFixed:     yearSeries(c.IncomeFixed),
			IncomeVariable:  yearSeries(c.IncomeVariable),
			ExpenseFixed:    yearSeries(c.ExpenseFixed),
			ExpenseVariable: yearSeries(c.ExpenseVariable),
			TotalFixed:      c.TotalFixed.String(),
			TotalVariable:   c.TotalVariable.String(),
			Total:           c.Total.String(),
		})
	}
	totalsByYear := make(map[int]yearTotalsResponse, len(pivot.TotalsByYear))
	for year, t := range pivot.TotalsByYear {
		totalsByYear[year] = yearTotals(t)
	}
	return pivotResponse{
		Book:         bookResponse{ID: snap.Book.ID, Name: snap.Book.Name, Currency: snap.Book.CurrencyOrDefault()},
		Years:        pivot.Years,
		Categories:   categories,
		TotalsByYear: totalsByYear,
		GrandTotal:   yearTotals(pivot.GrandTotal),
		Max:          pivot.Max.String(),
		Empty:        string(pivot.Empty),
	}
}

func yearSeries(series map[int]decimal.Decimal) map[int]string {
	if len(series) == 0 {
		return nil
	}
	out := make(map[int]string, len(series))
	for year, v := range series {
		out[year] = v.String()
	}
	return out
}

func yearTotals(t core.YearTotals) yearTotalsResponse {
	return yearTotalsResponse{
		Fixed:    t.Fixed.String(),
		Variable: t.Variable.String(),
		Total:    t.Total.String(),
	}
}

func (s *Server) handleCreateMovement(w http.ResponseWriter, r *http.Request) {
	bookID, req, ok := s.decodeMovementRequest(w, r)
	if !ok {
		return
	}
	m, parseErr := req.toMovement()
	if parseErr != nil {
		respondError(w, http.StatusBadRequest, parseErr.Error())
		return
	}
	created, err := s.movements.CreateMovement(r.Context(), bookID, m)
	if err != nil {
		s.respondWriteError(w, r, "create movement", err)
		return
	}
	s.bumpGeneration(bookID)
	respondJSON(w, http.StatusCreated, map[string]string{"id": created.ID})
}

func (s *Server) handleUpdateMovement(w http.ResponseWriter, r *http.Request) {
	bookID, req, ok := s.decodeMovementRequest(w, r)
	if !ok {
		return
	}
	m, parseErr := req.toMovement()
	if parseErr != nil {
		respondError(w, http.StatusBadRequest, parseErr.Error())
		return
	}
	if err := s.movements.UpdateMovement(r.Context(), bookID, m); err != nil {
		s.respondWriteError(w, r, "update movement", err)
		return
	}
	s.bumpGeneration(bookID)
	respondJSON(w, http.StatusOK, map[string]string{"id": m.ID})
}

func (s *Server) handleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	bookID := queryString(r, "book")
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "missing book")
		return
	}
	movementID := queryString(r, "id")
	if movementID == "" {
		respondError(w, http.StatusBadRequest, "missing id")
		return
	}
	if err := s.movements.DeleteMovement(r.Context(), bookID, movementID); err != nil {
		s.respondWriteError(w, r, "delete movement", err)
		return
	}
	s.bumpGeneration(bookID)
	respondJSON(w, http.StatusOK, map[string]string{"id": movementID})
}

func (s *Server) decodeMovementRequest(w http.ResponseWriter, r *http.Request) (string, movementRequest, bool) {
	bookID := queryString(r, "book")
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "missing book")
		return "", movementRequest{}, false
	}
	var req movementRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return "", movementRequest{}, false
	}
	return bookID, req, true
}

func (req movementRequest) toMovement() (core.Movement, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return core.Movement{}, fmt.Errorf("invalid amount %q", req.Amount)
	}
	return core.Movement{
		ID:         req.ID,
		Date:       req.Date,
		RawKind:    req.Kind,
		Amount:     amount,
		Detail:     req.Detail,
		Fixed:      req.Fixed,
		CategoryID: req.CategoryID,
	}, nil
}

func (s *Server) respondSnapshotError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrBookNotFound) {
		respondError(w, http.StatusNotFound, "book not found")
		return
	}
	s.respondInternal(w, r, "load snapshot", err)
}

func (s *Server) respondWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidMovement):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "movement not found")
	default:
		s.respondInternal(w, r, op, err)
	}
}

func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.ErrorContext(r.Context(), "Request failed",
		"operation", op,
		"path", r.URL.Path,
		"error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}
