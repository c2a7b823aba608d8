package cenabast

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
)

// InternalCounterpartyRut is the placeholder the dispensing system writes on
// internal transfers. Those rows never go to CENABAST.
const InternalCounterpartyRut = "11-101"

// Document types CENABAST accepts on movement submissions.
var allowedDocumentTypes = []string{"FACTURA", "GUIA DE DESPACHO"}

// StockItem is one aggregated stock line: the sum of every batch balance for
// a (code, generic code) pair on a given date.
type StockItem struct {
	Code        string `json:"code"`
	GenericCode string `json:"generic_code"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// SelectionDiagnostics counts how many rows survive each movement predicate.
// The counts are per predicate in isolation, so a dropped batch can be traced
// to the filter that rejected it.
type SelectionDiagnostics struct {
	Total             int `json:"total"`
	DirectionMatch    int `json:"direction_match"`
	DocumentTypeMatch int `json:"document_type_match"`
	CounterpartyMatch int `json:"counterparty_match"`
	Eligible          int `json:"eligible"`
}

// normalizeDocType uppercases and strips accents so "Guía de Despacho"
// matches "GUIA DE DESPACHO".
func normalizeDocType(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	replacer := strings.NewReplacer("Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ñ", "N")
	return replacer.Replace(s)
}

func IsInvoiceDocument(docType string) bool {
	return normalizeDocType(docType) == "FACTURA"
}

func DocumentTypeAllowed(docType string) bool {
	norm := normalizeDocType(docType)
	for _, allowed := range allowedDocumentTypes {
		if norm == allowed {
			return true
		}
	}
	return false
}

// DirectionMatches checks the sign convention: incoming rows are positive,
// outgoing rows negative. Zero quantities match neither direction.
func DirectionMatches(m models.Movement, direction string) bool {
	switch direction {
	case models.MovementIn:
		return m.Quantity > 0
	case models.MovementOut:
		return m.Quantity < 0
	}
	return false
}

func CounterpartyAllowed(m models.Movement) bool {
	return strings.TrimSpace(m.SupplierRut) != InternalCounterpartyRut
}

// MovementEligible is the conjunction of every movement predicate.
func MovementEligible(m models.Movement, direction string) bool {
	return DirectionMatches(m, direction) &&
		DocumentTypeAllowed(m.DocumentType) &&
		CounterpartyAllowed(m)
}

// FilterMovements applies the eligibility predicates in Go so the exact same
// logic serves submissions, previews and the diagnostics report.
func FilterMovements(rows []models.Movement, direction string) ([]models.Movement, SelectionDiagnostics) {
	diag := SelectionDiagnostics{Total: len(rows)}
	eligible := make([]models.Movement, 0, len(rows))
	for _, row := range rows {
		dirOk := DirectionMatches(row, direction)
		docOk := DocumentTypeAllowed(row.DocumentType)
		cpOk := CounterpartyAllowed(row)
		if dirOk {
			diag.DirectionMatch++
		}
		if docOk {
			diag.DocumentTypeMatch++
		}
		if cpOk {
			diag.CounterpartyMatch++
		}
		if dirOk && docOk && cpOk {
			diag.Eligible++
			eligible = append(eligible, row)
		}
	}
	return eligible, diag
}

// HasNumericGenericCode is the strict stock policy: only products CENABAST
// can match by ZGEN.
func HasNumericGenericCode(code string) bool {
	s := strings.TrimSpace(code)
	if s == "" {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

// AggregateStock groups balances by (code, generic code), sums quantities and
// keeps groups with positive totals and a non-empty internal code. With
// strict enabled, groups without a numeric ZGEN are dropped too.
func AggregateStock(rows []models.StockBalance, strict bool) []StockItem {
	type key struct{ code, zgen string }
	totals := map[key]*StockItem{}
	order := []key{}
	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		if code == "" {
			continue
		}
		k := key{code, strings.TrimSpace(row.GenericCode)}
		item, ok := totals[k]
		if !ok {
			item = &StockItem{Code: k.code, GenericCode: k.zgen, Description: row.Description}
			totals[k] = item
			order = append(order, k)
		}
		item.Quantity += row.Quantity
		if item.Description == "" {
			item.Description = row.Description
		}
	}

	items := make([]StockItem, 0, len(order))
	for _, k := range order {
		item := totals[k]
		if item.Quantity <= 0 {
			continue
		}
		if strict && !HasNumericGenericCode(item.GenericCode) {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return items
}

// StockDiagnostics reports both policies side by side for one date.
type StockDiagnostics struct {
	Date          string `json:"date"`
	TotalRows     int    `json:"total_rows"`
	LenientGroups int    `json:"lenient_groups"`
	StrictGroups  int    `json:"strict_groups"`
}

func SelectStockCandidates(ctx context.Context, date time.Time, strict bool) ([]StockItem, error) {
	rows, err := stockRowsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return AggregateStock(rows, strict), nil
}

func SelectMovementCandidates(ctx context.Context, date time.Time, direction string) ([]models.Movement, SelectionDiagnostics, error) {
	rows, err := movementRowsForDate(ctx, date)
	if err != nil {
		return nil, SelectionDiagnostics{}, err
	}
	eligible, diag := FilterMovements(rows, direction)
	return eligible, diag, nil
}

func DiagnoseStock(ctx context.Context, date time.Time) (StockDiagnostics, error) {
	rows, err := stockRowsForDate(ctx, date)
	if err != nil {
		return StockDiagnostics{}, err
	}
	return StockDiagnostics{
		Date:          FormatDate(date),
		TotalRows:     len(rows),
		LenientGroups: len(AggregateStock(rows, false)),
		StrictGroups:  len(AggregateStock(rows, true)),
	}, nil
}

func stockRowsForDate(ctx context.Context, date time.Time) ([]models.StockBalance, error) {
	var rows []models.StockBalance
	err := config.GetDB().WithContext(ctx).
		Where("date = ? AND active = ?", FormatDate(date), true).
		Find(&rows).Error
	return rows, err
}

func movementRowsForDate(ctx context.Context, date time.Time) ([]models.Movement, error) {
	var rows []models.Movement
	err := config.GetDB().WithContext(ctx).
		Where("date = ?", FormatDate(date)).
		Order("id").
		Find(&rows).Error
	return rows, err
}

// LatestMovementDate finds the most recent prior date that still has eligible
// rows for the direction. It scans a bounded window of distinct dates so a
// long-idle direction cannot trigger an unbounded walk.
func LatestMovementDate(ctx context.Context, before time.Time, direction string) (time.Time, bool, error) {
	var dates []time.Time
	err := config.GetDB().WithContext(ctx).
		Model(&models.Movement{}).
		Distinct("date").
		Where("date < ?", FormatDate(before)).
		Order("date desc").
		Limit(30).
		Pluck("date", &dates).Error
	if err != nil {
		return time.Time{}, false, err
	}
	for _, d := range dates {
		rows, err := movementRowsForDate(ctx, d)
		if err != nil {
			return time.Time{}, false, err
		}
		if eligible, _ := FilterMovements(rows, direction); len(eligible) > 0 {
			return d, true, nil
		}
	}
	return time.Time{}, false, nil
}

func LatestStockDate(ctx context.Context) (time.Time, bool, error) {
	var dates []time.Time
	err := config.GetDB().WithContext(ctx).
		Model(&models.StockBalance{}).
		Distinct("date").
		Where("active = ?", true).
		Order("date desc").
		Limit(30).
		Pluck("date", &dates).Error
	if err != nil {
		return time.Time{}, false, err
	}
	strict := config.StockStrictGenericFilter()
	for _, d := range dates {
		items, err := SelectStockCandidates(ctx, d, strict)
		if err != nil {
			return time.Time{}, false, err
		}
		if len(items) > 0 {
			return d, true, nil
		}
	}
	return time.Time{}, false, nil
}

// MarkMovementsReported flags submitted rows so reruns of the same day do not
// resend them.
func MarkMovementsReported(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return config.GetDB().WithContext(ctx).
		Model(&models.Movement{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"reported": true, "reported_at": now}).Error
}
