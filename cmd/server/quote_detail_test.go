package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Simplici0/voltquote/internal/accounts"
	"github.com/Simplici0/voltquote/internal/quotes"
)

func TestGetQuoteReturnsStoredPricing(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, testInstallerEmail, accounts.RoleInstaller)
	created := app.createQuote(t, token, "Alex Homeowner", "Garage install")

	// Catalogue changes must not reprice a saved quote.
	if _, err := app.db.Exec(`UPDATE battery_products SET capacity_kwh = 5`); err != nil {
		t.Fatalf("update catalogue: %v", err)
	}

	assessor := app.login(t, testAssessorEmail, accounts.RoleAssessor)
	rec := app.do(t, http.MethodGet, "/api/quotes/"+created.ID, assessor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get quote: status %d body %s", rec.Code, rec.Body.String())
	}
	var got quotes.Quote
	decodeBody(t, rec, &got)
	if got.Pricing.Total != created.Pricing.Total || got.Pricing.AnnualSavings != created.Pricing.AnnualSavings {
		t.Fatalf("expected stored pricing, got %+v want %+v", got.Pricing, created.Pricing)
	}
	if got.Pricing.BatteryCapacityKWh != 13.5 {
		t.Fatalf("expected stored capacity 13.5, got %v", got.Pricing.BatteryCapacityKWh)
	}
	if len(got.Pricing.Projections) != 10 {
		t.Fatalf("expected 10 projection years, got %d", len(got.Pricing.Projections))
	}
	if got.Customer.Postcode != "BS1 4DJ" || got.Notes != "Garage install" {
		t.Fatalf("unexpected stored content: %+v", got)
	}
}

func TestGetQuoteFromOtherCompanyIsNotFound(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, testInstallerEmail, accounts.RoleInstaller)
	created := app.createQuote(t, token, "Alex Homeowner", "")

	other := app.login(t, testOtherEmail, accounts.RoleInstaller)
	for _, path := range []string{"/api/quotes/" + created.ID, "/api/quotes/" + created.ID + "/text"} {
		if rec := app.do(t, http.MethodGet, path, other, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d", path, rec.Code)
		}
	}
	rec := app.do(t, http.MethodPost, "/api/quotes/"+created.ID+"/status", other, map[string]string{"status": "sent"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 changing another company's quote, got %d", rec.Code)
	}
}

func TestHandleQuoteTextReturnsPlainText(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, testInstallerEmail, accounts.RoleInstaller)
	created := app.createQuote(t, token, "Alex Homeowner", "Garage install")

	rec := app.do(t, http.MethodGet, "/api/quotes/"+created.ID+"/text", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quote text: status %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, created.Reference+".txt") {
		t.Fatalf("expected filename with reference, got %q", cd)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"VoltQuote Installations",
		"Battery storage proposal " + created.Reference,
		"Prepared for Alex Homeowner, BS1 4DJ",
		"GivEnergy All-in-One 13.5",
		quotes.Pounds(created.Pricing.Total),
		"Ten year projection",
		"Garage install",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected text to contain %q, got:\n%s", want, body)
		}
	}
}

func TestQuoteStatusLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, testInstallerEmail, accounts.RoleInstaller)
	created := app.createQuote(t, token, "Alex Homeowner", "")
	path := "/api/quotes/" + created.ID + "/status"

	rec := app.do(t, http.MethodPost, path, token, map[string]string{"status": "accepted"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 accepting a draft, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodPost, path, token, map[string]string{"status": "sent"})
	if rec.Code != http.StatusOK {
		t.Fatalf("send quote: status %d body %s", rec.Code, rec.Body.String())
	}
	var sent quotes.Quote
	decodeBody(t, rec, &sent)
	if sent.Status != quotes.StatusSent || sent.SentAt == nil {
		t.Fatalf("expected sent quote with sent_at, got %+v", sent)
	}

	rec = app.do(t, http.MethodPut, "/api/quotes/"+created.ID, token, app.quotePayload("Alex Homeowner", "changed"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 editing a sent quote, got %d", rec.Code)
	}
	var errResp errorResponse
	decodeBody(t, rec, &errResp)
	if errResp.Error.Code != "not_editable" {
		t.Fatalf("expected not_editable, got %+v", errResp)
	}

	for _, status := range []string{"viewed", "accepted"} {
		rec = app.do(t, http.MethodPost, path, token, map[string]string{"status": status})
		if rec.Code != http.StatusOK {
			t.Fatalf("move to %s: status %d body %s", status, rec.Code, rec.Body.String())
		}
	}
	var accepted quotes.Quote
	decodeBody(t, rec, &accepted)
	if accepted.ViewedAt == nil || accepted.AcceptedAt == nil {
		t.Fatalf("expected viewed_at and accepted_at stamped, got %+v", accepted)
	}

	rec = app.do(t, http.MethodPost, path, token, map[string]string{"status": "rejected"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 leaving accepted, got %d", rec.Code)
	}
}

func TestUpdateDraftReprices(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, testInstallerEmail, accounts.RoleInstaller)
	created := app.createQuote(t, token, "Alex Homeowner", "")

	payload := app.quotePayload("Alex Homeowner", "two batteries")
	payload["line_items"].([]map[string]any)[0]["quantity"] = 2

	rec := app.do(t, http.MethodPut, "/api/quotes/"+created.ID, token, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("update quote: status %d body %s", rec.Code, rec.Body.String())
	}
	var updated quotes.Quote
	decodeBody(t, rec, &updated)
	if updated.Reference != created.Reference {
		t.Fatalf("expected reference to be kept, got %s", updated.Reference)
	}
	if updated.Pricing.BatteryCapacityKWh != 27 {
		t.Fatalf("expected 27 kWh after update, got %v", updated.Pricing.BatteryCapacityKWh)
	}
	if updated.Pricing.Total <= created.Pricing.Total {
		t.Fatalf("expected higher total after update, got %v <= %v", updated.Pricing.Total, created.Pricing.Total)
	}

	if rec := app.do(t, http.MethodPut, "/api/quotes/missing", token, payload); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 updating missing quote, got %d", rec.Code)
	}
}
