package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opticare/m/domain"
	"opticare/m/internal/database"
	"opticare/m/internal/migrations"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := database.Connect(":memory:")
	migrations.Run(db)
	handler := New(db, "test_secret")
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, srv *httptest.Server, email, role string) string {
	t.Helper()
	var out struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", map[string]any{
		"username": "user " + email,
		"email":    email,
		"password": "secret123",
		"role":     role,
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func createStockItem(t *testing.T, srv *httptest.Server, token string, body map[string]any) domain.StockItem {
	t.Helper()
	var item domain.StockItem
	status := doJSON(t, http.MethodPost, srv.URL+"/stock/", token, body, &item)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, item.ID)
	return item
}

func TestAuthRequired(t *testing.T) {
	srv := setupServer(t)
	status := doJSON(t, http.MethodGet, srv.URL+"/stock/search", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	srv := setupServer(t)
	status := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", map[string]any{
		"username": "x", "email": "x@example.com", "password": "pw", "role": "superuser",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoginRoundTrip(t *testing.T) {
	srv := setupServer(t)
	registerUser(t, srv, "owner@example.com", "admin")

	var out struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]any{
		"email": "owner@example.com", "password": "secret123",
	}, &out)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "admin", out.User.Role)
	assert.Empty(t, out.User.Password)

	status = doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]any{
		"email": "owner@example.com", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOrderIssueAndReturnFlow(t *testing.T) {
	srv := setupServer(t)
	token := registerUser(t, srv, "staff@example.com", "staff")

	item := createStockItem(t, srv, token, map[string]any{
		"product_name": "clear float 4mm",
		"item_type":    "glass",
		"batch_number": "GL-2024-07",
		"quantity":     100,
		"unit_price":   "12.50",
		"width_cm":     100.0,
		"height_cm":    200.0,
	})

	var order domain.Order
	status := doJSON(t, http.MethodPost, srv.URL+"/orders/", token, map[string]any{
		"customer_name": "A. Rahman",
	}, &order)
	require.Equal(t, http.StatusCreated, status)

	var issuance domain.Issuance
	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/issue", srv.URL, order.ID), token, map[string]any{
		"stock_item_id": item.ID,
		"quantity":      30,
		"remarks":       "storefront pane",
	}, &issuance)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, domain.IssuanceIssued, issuance.Status)
	assert.Equal(t, int64(30), issuance.Quantity)

	var got domain.StockItem
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/stock/%d", srv.URL, item.ID), token, nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(70), got.CurrentQuantity)

	// Overdraw carries both sides of the shortfall.
	var errBody map[string]any
	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/issue", srv.URL, order.ID), token, map[string]any{
		"stock_item_id": item.ID,
		"quantity":      1000,
	}, &errBody)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, float64(70), errBody["available"])
	assert.Equal(t, float64(1000), errBody["requested"])

	returnURL := fmt.Sprintf("%s/orders/%d/issue?issuanceId=%s&action=return", srv.URL, order.ID, issuance.ID)
	var returned domain.Issuance
	status = doJSON(t, http.MethodPut, returnURL, token, map[string]any{"remarks": "order cancelled"}, &returned)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.IssuanceReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)

	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/stock/%d", srv.URL, item.ID), token, nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(100), got.CurrentQuantity)

	// Second return must not double-credit.
	status = doJSON(t, http.MethodPut, returnURL, token, nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	var entries []domain.LedgerEntry
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/stock/%d/history", srv.URL, item.ID), token, nil, &entries)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryIssued, entries[0].Type)
	assert.Equal(t, domain.EntryReturned, entries[1].Type)

	var detail struct {
		domain.Order
		Issuances []domain.Issuance `json:"issuances"`
	}
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/orders/%d", srv.URL, order.ID), token, nil, &detail)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, detail.Issuances, 1)
	assert.Equal(t, domain.IssuanceReturned, detail.Issuances[0].Status)
}

func TestDirectMedicineIssue(t *testing.T) {
	srv := setupServer(t)
	token := registerUser(t, srv, "pharm@example.com", "staff")

	item := createStockItem(t, srv, token, map[string]any{
		"product_name": "paracetamol 500mg",
		"item_type":    "medicine",
		"batch_number": "MD-9",
		"quantity":     20,
		"unit_price":   "0.80",
	})

	var issuance domain.Issuance
	status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/stock/%d/issue", srv.URL, item.ID), token, map[string]any{
		"quantity": 6,
		"remarks":  "prescription 1142",
	}, &issuance)
	require.Equal(t, http.StatusCreated, status)
	assert.Nil(t, issuance.OrderID)
	assert.Equal(t, int64(6), issuance.Quantity)

	var got domain.StockItem
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/stock/%d", srv.URL, item.ID), token, nil, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(14), got.CurrentQuantity)
}

func TestRestockAndAdjustRoutes(t *testing.T) {
	srv := setupServer(t)
	admin := registerUser(t, srv, "admin@example.com", "admin")
	staff := registerUser(t, srv, "helper@example.com", "staff")

	item := createStockItem(t, srv, staff, map[string]any{
		"product_name": "amoxicillin 250mg",
		"item_type":    "medicine",
		"quantity":     10,
		"unit_price":   "1.10",
	})

	var got domain.StockItem
	status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/stock/%d/restock", srv.URL, item.ID), staff, map[string]any{
		"quantity": 5, "reason": "supplier delivery",
	}, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(15), got.CurrentQuantity)

	// Adjust is reserved for admins.
	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/stock/%d/adjust", srv.URL, item.ID), staff, map[string]any{
		"quantity": 12, "reason": "stock count",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/stock/%d/adjust", srv.URL, item.ID), admin, map[string]any{
		"quantity": 12, "reason": "stock count",
	}, &got)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(12), got.CurrentQuantity)
}

func TestDeleteProtection(t *testing.T) {
	srv := setupServer(t)
	admin := registerUser(t, srv, "boss@example.com", "admin")
	staff := registerUser(t, srv, "aide@example.com", "staff")

	item := createStockItem(t, srv, admin, map[string]any{
		"product_name": "tinted 6mm",
		"item_type":    "glass",
		"quantity":     10,
		"unit_price":   "9.99",
	})

	status := doJSON(t, http.MethodDelete, fmt.Sprintf("%s/stock/%d", srv.URL, item.ID), staff, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/stock/%d/issue", srv.URL, item.ID), admin, map[string]any{
		"quantity": 1,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	// History makes the item undeletable.
	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/stock/%d", srv.URL, item.ID), admin, nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	fresh := createStockItem(t, srv, admin, map[string]any{
		"product_name": "untouched",
		"item_type":    "glass",
		"quantity":     1,
		"unit_price":   "1.00",
	})
	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/stock/%d", srv.URL, fresh.ID), admin, nil, nil)
	assert.Equal(t, http.StatusOK, status)
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/stock/%d", srv.URL, fresh.ID), admin, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReportsRoutes(t *testing.T) {
	srv := setupServer(t)
	admin := registerUser(t, srv, "ceo@example.com", "admin")

	item := createStockItem(t, srv, admin, map[string]any{
		"product_name": "clear float 4mm",
		"item_type":    "glass",
		"quantity":     500,
		"unit_price":   "2.00",
		"width_cm":     100.0,
		"height_cm":    100.0,
	})
	var got domain.StockItem
	status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/stock/%d/adjust", srv.URL, item.ID), admin, map[string]any{
		"quantity": 50, "reason": "breakage",
	}, &got)
	require.Equal(t, http.StatusOK, status)

	var low []domain.StockItem
	status = doJSON(t, http.MethodGet, srv.URL+"/reports/low-stock", admin, nil, &low)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, low, 1)
	assert.Equal(t, item.ID, low[0].ID)

	var areas map[string]float64
	status = doJSON(t, http.MethodGet, srv.URL+"/reports/glass-area", admin, nil, &areas)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 50.0, areas["clear float 4mm"], 1e-9)

	var valuation struct {
		TotalValue decimal.Decimal `json:"total_value"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/reports/valuation", admin, nil, &valuation)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, valuation.TotalValue.Equal(decimal.NewFromInt(100)), "got %s", valuation.TotalValue)
}

func TestExpenses(t *testing.T) {
	srv := setupServer(t)
	admin := registerUser(t, srv, "fin@example.com", "admin")

	var expense domain.Expense
	status := doJSON(t, http.MethodPost, srv.URL+"/expenses/", admin, map[string]any{
		"description": "shop rent",
		"category":    "rent",
		"amount":      "1500.00",
	}, &expense)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, expense.ID)

	var summary struct {
		Total    decimal.Decimal  `json:"total"`
		Expenses []domain.Expense `json:"expenses"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/reports/expenses/monthly", admin, nil, &summary)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, summary.Expenses, 1)
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(1500)), "got %s", summary.Total)
}
