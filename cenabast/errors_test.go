package cenabast

import (
	"reflect"
	"strings"
	"testing"
)

func TestClassifyRequiredNull(t *testing.T) {
	o := Outcome{
		Kind:       OutcomeSoftFailure,
		StatusCode: 200,
		Envelope:   Envelope{ErrorMessage: "Cannot insert NULL into column 'fecha_stock'"},
	}
	got := Classify(o)
	if got.Category != CategoryRequiredNull {
		t.Fatalf("Category = %s, want %s", got.Category, CategoryRequiredNull)
	}
	if !got.Recoverable {
		t.Error("required-null errors are recoverable")
	}
	found := false
	for _, d := range got.Details {
		if strings.Contains(d, "fecha_stock") {
			found = true
		}
	}
	if !found {
		t.Errorf("details must name the offending column: %v", got.Details)
	}
}

func TestClassifyInvalidDate(t *testing.T) {
	o := Outcome{Kind: OutcomeHTTPFailure, StatusCode: 500, Err: "SqlDateTime overflow. Must be between 1/1/1753 and 12/31/9999"}
	if got := Classify(o); got.Category != CategoryInvalidDate || !got.Recoverable {
		t.Errorf("got %+v, want recoverable %s", got, CategoryInvalidDate)
	}
}

func TestClassifyForeignKey(t *testing.T) {
	o := Outcome{Kind: OutcomeHTTPFailure, StatusCode: 500, Err: "conflicted with the FOREIGN KEY constraint FK_stock_relacion"}
	if got := Classify(o); got.Category != CategoryForeignKey {
		t.Errorf("Category = %s, want %s", got.Category, CategoryForeignKey)
	}
}

func TestClassifyTimeoutBeatsTransport(t *testing.T) {
	o := Outcome{Kind: OutcomeTransportFailure, Err: "Timeout: Mirth no respondió"}
	if got := Classify(o); got.Category != CategoryTimeout {
		t.Errorf("Category = %s, want %s (timeout text wins over transport kind)", got.Category, CategoryTimeout)
	}
}

func TestClassifyTransportFailureRecoverable(t *testing.T) {
	o := Outcome{Kind: OutcomeTransportFailure, Err: "dial tcp 10.0.0.5:6663: connect: connection refused"}
	got := Classify(o)
	if got.Category != CategoryServerError {
		t.Fatalf("Category = %s, want %s", got.Category, CategoryServerError)
	}
	if !got.Recoverable {
		t.Error("connection failures must be recoverable")
	}
}

func TestClassifyUnauthorized(t *testing.T) {
	o := Outcome{Kind: OutcomeHTTPFailure, StatusCode: 401, Err: "Unauthorized"}
	if got := Classify(o); got.Category != CategoryUnauthorized || !got.Recoverable {
		t.Errorf("got %+v", got)
	}
}

func TestClassifyNotFoundNotRecoverable(t *testing.T) {
	o := Outcome{Kind: OutcomeHTTPFailure, StatusCode: 404, Err: "Not Found"}
	if got := Classify(o); got.Category != CategoryNotFound || got.Recoverable {
		t.Errorf("got %+v, want non-recoverable %s", got, CategoryNotFound)
	}
}

func TestClassifyServerErrorTruncates(t *testing.T) {
	o := Outcome{Kind: OutcomeHTTPFailure, StatusCode: 500, Err: strings.Repeat("x", 300)}
	got := Classify(o)
	if got.Category != CategoryServerError {
		t.Fatalf("Category = %s", got.Category)
	}
	for _, d := range got.Details {
		if len(d) > 200 {
			t.Errorf("detail longer than 200 chars: %d", len(d))
		}
	}
}

func TestClassifyUnknownFallback(t *testing.T) {
	o := Outcome{Kind: OutcomeHTTPFailure, StatusCode: 418, Err: "algo salió mal"}
	got := Classify(o)
	if got.Category != CategoryUnknown {
		t.Fatalf("Category = %s, want %s", got.Category, CategoryUnknown)
	}
	if got.Recoverable {
		t.Error("unknown errors are not recoverable")
	}
	if got.Message != "algo salió mal" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestClassifySoftFailureUsesEnvelopeStatus(t *testing.T) {
	no := false
	// HTTP 200 whose only failure signal is the envelope.
	o := Outcome{
		Kind:       OutcomeSoftFailure,
		StatusCode: 200,
		Envelope: Envelope{
			StatusCode:   500,
			IsSuccessful: &no,
			ErrorMessage: "Unhandled server exception al procesar stock",
		},
	}
	got := Classify(o)
	if got.Category != CategoryServerError {
		t.Fatalf("Category = %s, want %s", got.Category, CategoryServerError)
	}
	if !got.Recoverable {
		t.Error("server errors are recoverable")
	}
}

func TestClassifySameEnvelopeBothPaths(t *testing.T) {
	no := false
	env := Envelope{StatusCode: 500, IsSuccessful: &no, ErrorMessage: "Unhandled server exception"}
	soft := Classify(Outcome{Kind: OutcomeSoftFailure, StatusCode: 200, Envelope: env})
	hard := Classify(Outcome{Kind: OutcomeHTTPFailure, StatusCode: 500, Envelope: env})
	if !reflect.DeepEqual(soft, hard) {
		t.Errorf("soft = %+v, hard = %+v", soft, hard)
	}
}

func TestClassifyEnvelopeUnauthorized(t *testing.T) {
	no := false
	o := Outcome{
		Kind:       OutcomeSoftFailure,
		StatusCode: 200,
		Envelope:   Envelope{StatusCode: 401, IsSuccessful: &no, ErrorMessage: "Acceso denegado"},
	}
	if got := Classify(o); got.Category != CategoryUnauthorized || !got.Recoverable {
		t.Errorf("got %+v, want recoverable %s", got, CategoryUnauthorized)
	}
}
