package cenabast

import (
	"math/rand"
	"testing"

	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
)

func TestDocumentTypeAllowed(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"FACTURA", true},
		{"factura", true},
		{"GUIA DE DESPACHO", true},
		{"Guía de Despacho", true},
		{"GUÍA DE DESPACHO", true},
		{"BOLETA", false},
		{"AJUSTE INTERNO", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DocumentTypeAllowed(tc.in); got != tc.want {
			t.Errorf("DocumentTypeAllowed(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDirectionMatches(t *testing.T) {
	in := models.Movement{Quantity: 5}
	out := models.Movement{Quantity: -5}
	zero := models.Movement{Quantity: 0}

	if !DirectionMatches(in, models.MovementIn) || DirectionMatches(in, models.MovementOut) {
		t.Error("positive quantity must match E only")
	}
	if !DirectionMatches(out, models.MovementOut) || DirectionMatches(out, models.MovementIn) {
		t.Error("negative quantity must match S only")
	}
	if DirectionMatches(zero, models.MovementIn) || DirectionMatches(zero, models.MovementOut) {
		t.Error("zero quantity must match neither direction")
	}
}

func TestCounterpartyAllowed(t *testing.T) {
	if CounterpartyAllowed(models.Movement{SupplierRut: "11-101"}) {
		t.Error("internal placeholder rut must be excluded")
	}
	if CounterpartyAllowed(models.Movement{SupplierRut: " 11-101 "}) {
		t.Error("internal placeholder rut must be excluded after trimming")
	}
	if !CounterpartyAllowed(models.Movement{SupplierRut: "96.519.830-K"}) {
		t.Error("real supplier rut must pass")
	}
}

func TestFilterMovementsDiagnostics(t *testing.T) {
	rows := []models.Movement{
		{Quantity: 10, DocumentType: "FACTURA", SupplierRut: "96519830-1"},
		{Quantity: -4, DocumentType: "FACTURA", SupplierRut: "96519830-1"},
		{Quantity: 8, DocumentType: "BOLETA", SupplierRut: "96519830-1"},
		{Quantity: 2, DocumentType: "GUIA DE DESPACHO", SupplierRut: "11-101"},
	}
	eligible, diag := FilterMovements(rows, models.MovementIn)

	if len(eligible) != 1 {
		t.Fatalf("eligible = %d, want 1", len(eligible))
	}
	if diag.Total != 4 {
		t.Errorf("Total = %d", diag.Total)
	}
	if diag.DirectionMatch != 3 {
		t.Errorf("DirectionMatch = %d, want 3", diag.DirectionMatch)
	}
	if diag.DocumentTypeMatch != 3 {
		t.Errorf("DocumentTypeMatch = %d, want 3", diag.DocumentTypeMatch)
	}
	if diag.CounterpartyMatch != 3 {
		t.Errorf("CounterpartyMatch = %d, want 3", diag.CounterpartyMatch)
	}
	if diag.Eligible != 1 {
		t.Errorf("Eligible = %d, want 1", diag.Eligible)
	}
}

func TestFilterMovementsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	docTypes := []string{"FACTURA", "Guía de Despacho", "BOLETA", "AJUSTE", ""}
	ruts := []string{"96519830-1", "11-101", "77.000.111-K", ""}

	rows := make([]models.Movement, 500)
	for i := range rows {
		rows[i] = models.Movement{
			Quantity:     rng.Intn(41) - 20,
			DocumentType: docTypes[rng.Intn(len(docTypes))],
			SupplierRut:  ruts[rng.Intn(len(ruts))],
		}
	}

	for _, direction := range []string{models.MovementIn, models.MovementOut} {
		eligible, diag := FilterMovements(rows, direction)
		for _, row := range eligible {
			if row.SupplierRut == InternalCounterpartyRut {
				t.Fatalf("direction %s: internal counterparty leaked through", direction)
			}
			if !DocumentTypeAllowed(row.DocumentType) {
				t.Fatalf("direction %s: disallowed document type %q leaked through", direction, row.DocumentType)
			}
			if !DirectionMatches(row, direction) {
				t.Fatalf("direction %s: quantity %d has the wrong sign", direction, row.Quantity)
			}
		}
		if diag.Eligible != len(eligible) {
			t.Errorf("direction %s: Eligible=%d but %d rows returned", direction, diag.Eligible, len(eligible))
		}
	}
}

func TestAggregateStockLenient(t *testing.T) {
	rows := []models.StockBalance{
		{Code: "MED002", GenericCode: "100", Description: "Ibuprofeno", Quantity: 5},
		{Code: "MED001", GenericCode: "5423", Description: "Paracetamol", Quantity: 30},
		{Code: "MED001", GenericCode: "5423", Quantity: 10},
		{Code: "MED003", GenericCode: "7", Quantity: 4},
		{Code: "MED003", GenericCode: "7", Quantity: -4},
		{Code: "", GenericCode: "9", Quantity: 12},
		{Code: "MED004", GenericCode: "ZGEN-X", Quantity: 3},
	}
	items := AggregateStock(rows, false)

	if len(items) != 3 {
		t.Fatalf("items = %d, want 3 (MED003 nets to zero, empty code dropped)", len(items))
	}
	if items[0].Code != "MED001" || items[0].Quantity != 40 {
		t.Errorf("items[0] = %+v, want MED001 quantity 40", items[0])
	}
	if items[0].Description != "Paracetamol" {
		t.Errorf("description should come from the first row that has one, got %q", items[0].Description)
	}
	if items[1].Code != "MED002" || items[2].Code != "MED004" {
		t.Errorf("items must be sorted by code: %+v", items)
	}
}

func TestAggregateStockStrict(t *testing.T) {
	rows := []models.StockBalance{
		{Code: "MED001", GenericCode: "5423", Quantity: 30},
		{Code: "MED004", GenericCode: "ZGEN-X", Quantity: 3},
		{Code: "MED005", GenericCode: "", Quantity: 9},
	}
	items := AggregateStock(rows, true)
	if len(items) != 1 || items[0].Code != "MED001" {
		t.Fatalf("strict policy must keep numeric ZGEN groups only, got %+v", items)
	}
}

func TestHasNumericGenericCode(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"5423", true},
		{" 1 ", true},
		{"0", false},
		{"", false},
		{"ZGEN-1", false},
	}
	for _, tc := range cases {
		if got := HasNumericGenericCode(tc.in); got != tc.want {
			t.Errorf("HasNumericGenericCode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
