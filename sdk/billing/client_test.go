package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Decide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/access/course/intro-go" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"allow":false,"reason":"UPGRADE_OR_BUY","required_plan":"pro","individual_price":499,"currency":"INR","priced":true}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithToken("tok"))
	d, err := c.Decide(context.Background(), "course", "intro-go")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Allow || d.Reason != "UPGRADE_OR_BUY" || d.IndividualPrice != 499 || !d.Priced {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestClient_VerifyPaymentSendsAction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["action"] != "verify" || body["order_id"] != "order_1" || body["signature"] != "sig" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"success":true,"purchase_id":"pur_1","price_paid":499,"currency":"INR"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithToken("tok"))
	res, err := c.VerifyPayment(context.Background(), Verification{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"})
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if !res.Success || res.PurchaseID != "pur_1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"success":false,"error":{"type":"integrity_error","message":"payment signature mismatch","reason":"SIG_MISMATCH"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.VerifyPayment(context.Background(), Verification{OrderID: "o", PaymentID: "p", Signature: "s"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Reason != "SIG_MISMATCH" || apiErr.Retryable {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Plan(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
}
