package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bindStatus(t *testing.T, body string, target any) (int, map[string]any) {
	t.Helper()
	RegisterValidators()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	if err := c.ShouldBindJSON(target); err != nil {
		respondValidationError(c, err)
	} else {
		c.Status(http.StatusNoContent)
		c.Writer.WriteHeaderNow()
	}

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec.Code, out
}

func TestRegisterRequestValidation(t *testing.T) {
	code, body := bindStatus(t, `{"name":"A","email":"nope","password":"abcdef"}`, &RegisterRequest{})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	details, _ := body["details"].([]any)
	want := []string{
		"name must be at least 2 characters",
		"email must be a valid email",
		"password must contain at least one uppercase letter, one lowercase letter, and one number",
	}
	if len(details) != len(want) {
		t.Fatalf("expected %d details, got %v", len(want), details)
	}
	for i, w := range want {
		if details[i] != w {
			t.Fatalf("detail %d: expected %q, got %q", i, w, details[i])
		}
	}

	code, _ = bindStatus(t, `{"name":"Ann","email":"ann@example.com","password":"Secret123"}`, &RegisterRequest{})
	if code != http.StatusNoContent {
		t.Fatalf("expected valid request to bind, got %d", code)
	}
}

func TestCreateProductRequestRequiresPriceAndCategoryID(t *testing.T) {
	code, body := bindStatus(t, `{"name":"Lamp","description":"d","sku":"L1","category":"123"}`, &CreateProductRequest{})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	details := body["details"].([]any)
	if details[0] != "price is required" || details[1] != "category is invalid" {
		t.Fatalf("unexpected details: %v", details)
	}
}

func TestCreateProductRequestDefaults(t *testing.T) {
	price := 12.5
	p := CreateProductRequest{Name: "Lamp", Price: &price, SKU: "l1", Category: "65f0c0ffee0000000000abcd"}.toProduct()
	if !p.Inventory.TrackQuantity || p.Inventory.LowStockThreshold != 10 {
		t.Fatalf("expected tracked inventory with threshold 10, got %+v", p.Inventory)
	}
	if p.Price != 12.5 {
		t.Fatalf("expected price 12.5, got %v", p.Price)
	}
}

func TestMalformedJSONIsRejected(t *testing.T) {
	code, body := bindStatus(t, `{"email":`, &LoginRequest{})
	if code != http.StatusBadRequest || body["error"] != "invalid body" {
		t.Fatalf("expected invalid body 400, got %d %v", code, body)
	}
}

func TestLowerCamel(t *testing.T) {
	if got := lowerCamel("ZipCode"); got != "zipCode" {
		t.Fatalf("expected zipCode, got %s", got)
	}
	if got := lowerCamel(""); got != "" {
		t.Fatalf("expected empty, got %s", got)
	}
}
