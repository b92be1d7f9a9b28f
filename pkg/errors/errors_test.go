package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNetwork, status: http.StatusBadGateway, publicMsg: "upstream unreachable", retryable: true},
		{code: CodeRejected, status: http.StatusUnprocessableEntity, publicMsg: "operation rejected", detailsOK: true},
		{code: CodeStorage, status: http.StatusInternalServerError, publicMsg: "local storage unavailable", retryable: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing email")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing email" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeNetwork, cause, "fetch cart")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("wrapped error should unwrap to its cause")
	}
	if wrapped.Error() != "NETWORK_ERROR: fetch cart" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}

	if Wrap(CodeRejected, nil, "declined").Unwrap() != nil {
		t.Fatalf("wrap with nil cause should have no cause")
	}
}

func TestAsAndIsCode(t *testing.T) {
	err := New(CodeRejected, "invalid promo code").WithDetails(map[string]string{"code": "INVALID"})

	typed := As(err)
	if typed == nil || typed.Code() != CodeRejected {
		t.Fatalf("expected typed rejected error, got %v", typed)
	}
	if typed.Details() == nil {
		t.Fatalf("expected details to survive As")
	}

	if !IsCode(err, CodeRejected) {
		t.Fatalf("IsCode should match the error's code")
	}
	if IsCode(err, CodeNetwork) {
		t.Fatalf("IsCode should not match a different code")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("IsCode should reject untyped errors")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should be nil")
	}
}

func TestDumpFlattensChain(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := Wrap(CodeNetwork, cause, "update item")

	dump := Dump(err)
	if dump.Code != CodeNetwork {
		t.Fatalf("expected network code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("dump of nil should be empty")
	}
}
