package cenabast

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
)

func TestCleanRut(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOk bool
	}{
		{"96.519.830-K", 96519830, true},
		{"96519830-1", 96519830, true},
		{"96519830", 96519830, true},
		{" 96.519.830 - 5 ", 96519830, true},
		{"11-101", 0, false},
		{"999999", 0, false},
		{"1000000", 1000000, true},
		{"", 0, false},
		{"S/N", 0, false},
	}
	for _, tc := range cases {
		got, ok := CleanRut(tc.in)
		if got != tc.want || ok != tc.wantOk {
			t.Errorf("CleanRut(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOk)
		}
	}
}

func TestToInt(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOk bool
	}{
		{"12345", 12345, true},
		{"F-12345", 12345, true},
		{"0", 0, false},
		{"000", 0, false},
		{"", 0, false},
		{"sin documento", 0, false},
	}
	for _, tc := range cases {
		got, ok := ToInt(tc.in)
		if got != tc.want || ok != tc.wantOk {
			t.Errorf("ToInt(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOk)
		}
	}
}

func TestToGenericCode(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"5423", 5423},
		{" 5423 ", 5423},
		{"100.000", 100000},
		{"ZGEN-1", 1},
		{"", 0},
		{"ZGEN", 0},
		{"0", 0},
	}
	for _, tc := range cases {
		if got := ToGenericCode(tc.in); got != tc.want {
			t.Errorf("ToGenericCode(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTransformMovementDetailInvoice(t *testing.T) {
	expiry := time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC)
	m := models.Movement{
		Code:           "MED001",
		GenericCode:    "5423",
		Quantity:       -30,
		Batch:          "L-99",
		ExpiryDate:     &expiry,
		SupplierRut:    "96.519.830-K",
		DocumentType:   "Factura",
		DocumentNumber: "778899",
		DispatchCode:   "4",
	}
	d := TransformMovementDetail(m)
	if d.Cantidad != 30 {
		t.Errorf("Cantidad = %d, want 30 (absolute value)", d.Cantidad)
	}
	if d.NroFactura != 778899 || d.NroGuiaDespacho != 0 {
		t.Errorf("invoice doc should set nro_factura only, got factura=%d guia=%d", d.NroFactura, d.NroGuiaDespacho)
	}
	if d.RutProveedor != 96519830 {
		t.Errorf("RutProveedor = %d, want 96519830", d.RutProveedor)
	}
	if d.FechaVencimiento != "2027-03-15" {
		t.Errorf("FechaVencimiento = %q", d.FechaVencimiento)
	}
	if d.CodigoDespacho != 4 {
		t.Errorf("CodigoDespacho = %d, want 4", d.CodigoDespacho)
	}
}

func TestTransformMovementDetailDispatchFallback(t *testing.T) {
	m := models.Movement{
		Code:           "MED002",
		GenericCode:    "100",
		Quantity:       10,
		DocumentType:   "GUÍA DE DESPACHO",
		DocumentNumber: "445566",
	}
	d := TransformMovementDetail(m)
	if d.NroGuiaDespacho != 445566 || d.NroFactura != 0 {
		t.Errorf("dispatch doc should fall back to document number, got guia=%d factura=%d", d.NroGuiaDespacho, d.NroFactura)
	}
}

func TestTransformMovementDetailOutOfRangeExpiry(t *testing.T) {
	expiry := time.Date(1752, 12, 31, 0, 0, 0, 0, time.UTC)
	m := models.Movement{Code: "MED003", Quantity: 1, ExpiryDate: &expiry}
	if d := TransformMovementDetail(m); d.FechaVencimiento != "" {
		t.Errorf("expiry before 1753 must be dropped, got %q", d.FechaVencimiento)
	}
}

func TestTransformMovementsErrorsAndWarnings(t *testing.T) {
	rows := []models.Movement{
		{Code: "MED001", GenericCode: "5423", Quantity: 5, DocumentType: "FACTURA"},
		{Code: "", GenericCode: "5423", Quantity: 5},
		{Code: "MED003", GenericCode: "", Quantity: 0},
	}
	details, errores, warnings := TransformMovements(rows)
	if len(details) != 3 {
		t.Fatalf("details = %d, want 3 (no silent drops)", len(details))
	}
	if len(errores) != 2 {
		t.Fatalf("errores = %v, want 2 hard errors", errores)
	}
	if errores[0] != "codigo_interno es obligatorio" {
		t.Errorf("unexpected first error %q", errores[0])
	}
	if !strings.Contains(errores[1], "cantidad debe ser mayor a 0") {
		t.Errorf("unexpected second error %q", errores[1])
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want 1 generic-code warning", warnings)
	}
	if !strings.Contains(warnings[0], "MED003") || !strings.Contains(warnings[0], "codigo_generico es 0") {
		t.Errorf("unexpected warning %q", warnings[0])
	}
}

func TestBuildMovementPayloadDefaults(t *testing.T) {
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	rows := []models.Movement{{Code: "MED001", GenericCode: "1", Quantity: 2, DocumentType: "FACTURA"}}
	payload, errores, _ := BuildMovementPayload(7, date, models.MovementIn, "", rows)
	if len(errores) != 0 {
		t.Fatalf("unexpected errors %v", errores)
	}
	if payload.TipoCompra != "C" {
		t.Errorf("TipoCompra = %q, want default C", payload.TipoCompra)
	}
	if payload.TipoMovimiento != "E" || payload.IdRelacion != 7 || payload.FechaMovimiento != "2026-08-31" {
		t.Errorf("unexpected payload header %+v", payload)
	}
}

func TestTransformStockItemsKeepsZeroGeneric(t *testing.T) {
	items := []StockItem{
		{Code: "MED001", GenericCode: "5423", Description: "Paracetamol", Quantity: 40},
		{Code: "MED002", GenericCode: "ZGEN-X", Quantity: 12},
	}
	details := TransformStockItems(items)
	if len(details) != 2 {
		t.Fatalf("details = %d, want 2", len(details))
	}
	if details[0].CodigoGenerico != 5423 || details[1].CodigoGenerico != 0 {
		t.Errorf("generic codes = %d, %d", details[0].CodigoGenerico, details[1].CodigoGenerico)
	}
	if details[0].CantidadStock != 40 {
		t.Errorf("CantidadStock = %d", details[0].CantidadStock)
	}
}

func TestTransformMovementsIdempotent(t *testing.T) {
	rows := []models.Movement{
		{Code: "MED001", GenericCode: "5423", Quantity: -3, DocumentType: "FACTURA", DocumentNumber: "10"},
	}
	first, _, _ := TransformMovements(rows)
	second, _, _ := TransformMovements(rows)
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("transform not deterministic: %+v vs %+v", first[0], second[0])
	}
}

func TestDetailWarningsCallerSupplied(t *testing.T) {
	details := []MovementDetail{
		{CodigoInterno: "MED001", CodigoGenerico: 5423, Cantidad: 2},
		{CodigoInterno: "MED002", CodigoGenerico: 0, Cantidad: 1},
	}
	warnings := DetailWarnings(details)
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", warnings)
	}
	if !strings.Contains(warnings[0], "MED002") {
		t.Errorf("warning must name the product: %q", warnings[0])
	}
}
