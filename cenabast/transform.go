package cenabast

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
)

// Wire types follow the CENABAST v1.9 envelope field names.

type StockDetail struct {
	CodigoInterno       string `json:"codigo_interno"`
	CodigoGenerico      int    `json:"codigo_generico"`
	CantidadStock       int    `json:"cantidad_stock"`
	CodigoDespacho      int    `json:"codigo_despacho,omitempty"`
	DescripcionProducto string `json:"descripcion_producto,omitempty"`
}

type StockPayload struct {
	IdRelacion   int           `json:"id_relacion"`
	FechaStock   string        `json:"fecha_stock"`
	StockDetalle []StockDetail `json:"stock_detalle"`
}

type MovementDetail struct {
	CodigoInterno    string `json:"codigo_interno"`
	CodigoGenerico   int    `json:"codigo_generico"`
	Cantidad         int    `json:"cantidad"`
	Lote             string `json:"lote,omitempty"`
	FechaVencimiento string `json:"fecha_vencimiento,omitempty"`
	RutProveedor     int    `json:"rut_proveedor,omitempty"`
	NroFactura       int    `json:"nro_factura,omitempty"`
	NroGuiaDespacho  int    `json:"nro_guia_despacho,omitempty"`
	CodigoDespacho   int    `json:"codigo_despacho,omitempty"`
}

type MovementPayload struct {
	IdRelacion        int              `json:"id_relacion"`
	FechaMovimiento   string           `json:"fecha_movimiento"`
	TipoMovimiento    string           `json:"tipo_movimiento"`
	TipoCompra        string           `json:"tipo_compra"`
	MovimientoDetalle []MovementDetail `json:"movimiento_detalle"`
}

type StockRule struct {
	RutSolicitante string `json:"RutSolicitante"`
	IdRelacion     int    `json:"IdRelacion"`
	CodigoProducto string `json:"CodigoProducto"`
	StockMinimo    int    `json:"StockMinimo"`
	StockMaximo    int    `json:"StockMaximo"`
}

// SQL Server rejects dates outside this range with an SqlDateTime overflow.
var (
	sqlServerMinDate = time.Date(1753, 1, 1, 0, 0, 0, 0, time.UTC)
	sqlServerMaxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

const minValidRut = 1_000_000

// CleanRut strips dots and spaces, drops the check digit after the dash, and
// parses the body as an integer. Identifiers below one million are internal
// placeholders, not real tax ids, and are reported absent.
func CleanRut(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minValidRut {
		return 0, false
	}
	return n, true
}

// ToInt keeps only digit characters and parses them. Zero and empty both mean
// absent, matching how the legacy feed encodes "no document number".
func ToInt(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// ToGenericCode normalizes a ZGEN code with the same digit-stripping as
// ToInt, returning 0 for anything unparseable. Zero is the sentinel for
// "no valid generic code"; downstream validation turns it into a warning,
// never a silent drop.
func ToGenericCode(raw string) int {
	n, ok := ToInt(raw)
	if !ok {
		return 0
	}
	return n
}

// FormatDate renders a date the way the broker expects it.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// sanitizeExpiry drops expiry dates SQL Server cannot store.
func sanitizeExpiry(t *time.Time) string {
	if t == nil {
		return ""
	}
	if t.Before(sqlServerMinDate) || t.After(sqlServerMaxDate) {
		return ""
	}
	return FormatDate(*t)
}

// TransformStockItems maps aggregated stock lines onto the wire shape. No row
// is dropped here; products without a numeric ZGEN go out with codigo 0 so the
// dashboard can see what CENABAST will reject.
func TransformStockItems(items []StockItem) []StockDetail {
	details := make([]StockDetail, 0, len(items))
	for _, it := range items {
		qty := it.Quantity
		if qty < 0 {
			qty = 0
		}
		details = append(details, StockDetail{
			CodigoInterno:       it.Code,
			CodigoGenerico:      ToGenericCode(it.GenericCode),
			CantidadStock:       qty,
			DescripcionProducto: it.Description,
		})
	}
	return details
}

// TransformMovementDetail maps one ledger row. Optional fields that are absent
// are omitted entirely instead of being sent as zero values.
func TransformMovementDetail(m models.Movement) MovementDetail {
	detail := MovementDetail{
		CodigoInterno:  strings.TrimSpace(m.Code),
		CodigoGenerico: ToGenericCode(m.GenericCode),
		Cantidad:       abs(m.Quantity),
	}

	if lote := strings.TrimSpace(m.Batch); lote != "" {
		detail.Lote = lote
	}
	detail.FechaVencimiento = sanitizeExpiry(m.ExpiryDate)

	if rut, ok := CleanRut(m.SupplierRut); ok {
		detail.RutProveedor = rut
	}

	// Exactly one of invoice / dispatch-note number, driven by document type.
	if IsInvoiceDocument(m.DocumentType) {
		if n, ok := ToInt(m.DocumentNumber); ok {
			detail.NroFactura = n
		}
	} else {
		n, ok := ToInt(m.DispatchNumber)
		if !ok {
			n, ok = ToInt(m.DocumentNumber)
		}
		if ok {
			detail.NroGuiaDespacho = n
		}
	}

	if n, ok := ToInt(m.DispatchCode); ok {
		detail.CodigoDespacho = n
	}

	return detail
}

// ValidateMovementDetail returns the hard rule violations for one detail.
func ValidateMovementDetail(d MovementDetail) []string {
	var errs []string
	if d.CodigoInterno == "" {
		errs = append(errs, "codigo_interno es obligatorio")
	}
	if d.Cantidad <= 0 {
		errs = append(errs, fmt.Sprintf("Producto %s: cantidad debe ser mayor a 0", d.CodigoInterno))
	}
	return errs
}

// DetailWarnings reports the soft issues CENABAST will reject on its side,
// regardless of whether the details came from selection or from the caller.
func DetailWarnings(details []MovementDetail) []string {
	var warnings []string
	for _, d := range details {
		if d.CodigoGenerico == 0 {
			warnings = append(warnings, fmt.Sprintf(
				"Producto %s: codigo_generico es 0. Este producto será rechazado por CENABAST.", d.CodigoInterno))
		}
	}
	return warnings
}

// TransformMovements builds the detail list plus the hard errors and warnings
// found along the way. A non-empty error list means the payload must not be
// submitted; warnings are informational.
func TransformMovements(rows []models.Movement) (details []MovementDetail, errores []string, warnings []string) {
	details = make([]MovementDetail, 0, len(rows))
	for _, row := range rows {
		d := TransformMovementDetail(row)
		errores = append(errores, ValidateMovementDetail(d)...)
		details = append(details, d)
	}
	return details, errores, DetailWarnings(details)
}

// BuildMovementPayload assembles the submission envelope for one day and
// direction.
func BuildMovementPayload(relationId int, date time.Time, direction string, purchaseType string, rows []models.Movement) (MovementPayload, []string, []string) {
	details, errores, warnings := TransformMovements(rows)
	if purchaseType == "" {
		purchaseType = "C"
	}
	return MovementPayload{
		IdRelacion:        relationId,
		FechaMovimiento:   FormatDate(date),
		TipoMovimiento:    direction,
		TipoCompra:        purchaseType,
		MovimientoDetalle: details,
	}, errores, warnings
}

func BuildStockPayload(relationId int, date time.Time, items []StockItem) StockPayload {
	return StockPayload{
		IdRelacion:   relationId,
		FechaStock:   FormatDate(date),
		StockDetalle: TransformStockItems(items),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
