package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"opticare/m/domain"
	"opticare/m/internal/stock"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db      *sqlx.DB
	service *stock.Service
	reports *stock.Reports
	ledger  *stock.Ledger
	repo    *stock.Repository
	secret  string
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string) *Handler {
	repo := stock.NewRepository(db)
	return &Handler{
		db:      db,
		service: stock.NewService(db, repo),
		reports: stock.NewReports(db, repo),
		ledger:  stock.NewLedger(db),
		repo:    repo,
		secret:  secret,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/stock", func(r chi.Router) {
			r.Post("/", h.createStockItem)
			r.Get("/search", h.searchStock)
			r.Get("/expiry-alert", h.expiryAlerts)
			r.Get("/{id}", h.getStockItem)
			r.Delete("/{id}", h.deleteStockItem)
			r.Get("/{id}/history", h.stockHistory)
			r.Post("/{id}/issue", h.issueStock)
			r.Post("/{id}/restock", h.restockStock)
			r.Post("/{id}/adjust", h.adjustStock)
		})

		pr.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/{id}", h.getOrder)
			r.Post("/{id}/issue", h.issueToOrder)
			r.Put("/{id}/issue", h.updateOrderIssuance)
		})

		pr.Route("/expenses", func(r chi.Router) {
			r.Post("/", h.createExpense)
			r.Get("/", h.listExpenses)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/low-stock", h.lowStockReport)
			r.Get("/valuation", h.valuationReport)
			r.Get("/glass-area", h.glassAreaReport)
			r.Get("/expenses/monthly", h.monthlyExpenses)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

func userIDFromContext(r *http.Request) int64 {
	if val := r.Context().Value(ctxUserID); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}

// Auth Handlers

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "username, email, password and role are required")
		return
	}
	if req.Role != "admin" && req.Role != "staff" {
		respondError(w, http.StatusBadRequest, "role must be admin or staff")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	res, err := h.db.Exec(`INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)`,
		req.Username, strings.ToLower(req.Email), hashed, req.Role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "unique constraint") {
			respondError(w, http.StatusConflict, "email already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "db error: "+err.Error())
		}
		return
	}
	userID, err := res.LastInsertId()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to read user id")
		return
	}

	token, err := h.generateToken(userID, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: domain.User{
		ID: userID, Username: req.Username, Email: strings.ToLower(req.Email), Role: req.Role,
	}})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user domain.User
	err := h.db.Get(&user, `SELECT id, username, email, password, role FROM users WHERE email = ?`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	uid := userIDFromContext(r)
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if _, err := h.db.Exec(`UPDATE users SET password = ? WHERE id = ?`, hashed, uid); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Stock handlers

type stockItemRequest struct {
	ProductName string          `json:"product_name"`
	ItemType    string          `json:"item_type"`
	BatchNumber string          `json:"batch_number"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	WidthCM     *float64        `json:"width_cm"`
	HeightCM    *float64        `json:"height_cm"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
}

func (h *Handler) createStockItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req stockItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductName == "" {
		respondError(w, http.StatusBadRequest, "product_name is required")
		return
	}
	if req.ItemType != domain.ItemGlass && req.ItemType != domain.ItemMedicine {
		respondError(w, http.StatusBadRequest, "item_type must be glass or medicine")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}
	if req.UnitPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "unit_price must not be negative")
		return
	}

	item := &domain.StockItem{
		ProductName:      req.ProductName,
		ItemType:         req.ItemType,
		BatchNumber:      req.BatchNumber,
		CurrentQuantity:  req.Quantity,
		OriginalQuantity: req.Quantity,
		UnitPrice:        req.UnitPrice,
		WidthCM:          req.WidthCM,
		HeightCM:         req.HeightCM,
		ExpiryDate:       req.ExpiryDate,
	}
	if err := h.repo.Insert(r.Context(), item); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to add stock item")
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handler) getStockItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid stock item id")
		return
	}
	item, err := h.repo.Get(r.Context(), id)
	if err != nil {
		respondStockError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) deleteStockItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid stock item id")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		respondStockError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) searchStock(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 25
	}
	filter := stock.ListFilter{
		Query:    strings.TrimSpace(r.URL.Query().Get("query")),
		ItemType: strings.TrimSpace(r.URL.Query().Get("type")),
		Sort:     strings.TrimSpace(r.URL.Query().Get("sort")),
		Limit:    limit,
	}
	items, err := h.repo.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search stock")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) stockHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid stock item id")
		return
	}
	if _, err := h.repo.Get(r.Context(), id); err != nil {
		respondStockError(w, err)
		return
	}
	entries, err := h.ledger.HistoryFor(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load history")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

type issueRequest struct {
	StockItemID int64  `json:"stock_item_id"`
	Quantity    int64  `json:"quantity"`
	Remarks     string `json:"remarks"`
}

// issueStock handles direct issues against a stock item, the medicine-side
// equivalent of issuing to an order.
func (h *Handler) issueStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid stock item id")
		return
	}
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	issuance, err := h.service.Issue(r.Context(), nil, id, req.Quantity, userIDFromContext(r), req.Remarks)
	if err != nil {
		respondStockError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, issuance)
}

type quantityChangeRequest struct {
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

func (h *Handler) restockStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid stock item id")
		return
	}
	var req quantityChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.service.Restock(r.Context(), id, req.Quantity, userIDFromContext(r), req.Reason)
	if err != nil {
		respondStockError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid stock item id")
		return
	}
	var req quantityChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.service.Adjust(r.Context(), id, req.Quantity, userIDFromContext(r), req.Reason)
	if err != nil {
		respondStockError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) expiryAlerts(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}
	items, err := h.reports.ExpiringWithin(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch alerts")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Order handlers

type orderRequest struct {
	CustomerName string `json:"customer_name"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerName == "" {
		respondError(w, http.StatusBadRequest, "customer_name is required")
		return
	}
	order := domain.Order{
		CustomerName: req.CustomerName,
		Status:       "open",
		CreatedBy:    userIDFromContext(r),
		CreatedAt:    time.Now().UTC(),
	}
	res, err := h.db.Exec(`INSERT INTO orders (customer_name, status, created_by, created_at) VALUES (?, ?, ?, ?)`,
		order.CustomerName, order.Status, order.CreatedBy, order.CreatedAt)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create order")
		return
	}
	order.ID, err = res.LastInsertId()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to read order id")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

type orderDetail struct {
	domain.Order
	Issuances []domain.Issuance `json:"issuances"`
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var order domain.Order
	if err := h.db.Get(&order, `SELECT id, customer_name, status, created_by, created_at FROM orders WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load order")
		return
	}
	issuances, err := h.service.IssuancesForOrder(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load issuances")
		return
	}
	respondJSON(w, http.StatusOK, orderDetail{Order: order, Issuances: issuances})
}

func (h *Handler) issueToOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.StockItemID <= 0 {
		respondError(w, http.StatusBadRequest, "stock_item_id is required")
		return
	}
	issuance, err := h.service.Issue(r.Context(), &orderID, req.StockItemID, req.Quantity, userIDFromContext(r), req.Remarks)
	if err != nil {
		respondStockError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, issuance)
}

// updateOrderIssuance handles PUT /orders/{id}/issue?issuanceId=...&action=return.
func (h *Handler) updateOrderIssuance(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	if r.URL.Query().Get("action") != "return" {
		respondError(w, http.StatusBadRequest, "unsupported action")
		return
	}
	issuanceID, err := uuid.Parse(r.URL.Query().Get("issuanceId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid issuance id")
		return
	}
	existing, err := h.service.GetIssuance(r.Context(), issuanceID)
	if err != nil {
		respondStockError(w, err)
		return
	}
	if existing.OrderID == nil || *existing.OrderID != orderID {
		respondError(w, http.StatusNotFound, "issuance does not belong to this order")
		return
	}
	var req struct {
		Remarks string `json:"remarks"`
	}
	// The body is optional for returns.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	issuance, err := h.service.ReturnIssuance(r.Context(), issuanceID, userIDFromContext(r), req.Remarks)
	if err != nil {
		respondStockError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, issuance)
}

// Expense handlers

type expenseRequest struct {
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Description == "" || !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "description and a positive amount are required")
		return
	}
	expense := domain.Expense{
		Description: req.Description,
		Category:    req.Category,
		Amount:      req.Amount,
		SpentBy:     userIDFromContext(r),
		SpentAt:     time.Now().UTC(),
	}
	res, err := h.db.Exec(`INSERT INTO expenses (description, category, amount, spent_by, spent_at) VALUES (?, ?, ?, ?, ?)`,
		expense.Description, expense.Category, expense.Amount, expense.SpentBy, expense.SpentAt)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record expense")
		return
	}
	expense.ID, err = res.LastInsertId()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to read expense id")
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses := []domain.Expense{}
	if err := h.db.Select(&expenses, `SELECT id, description, category, amount, spent_by, spent_at FROM expenses ORDER BY spent_at DESC`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list expenses")
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

// Reports

func (h *Handler) lowStockReport(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.LowStock(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch low stock")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) valuationReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	total, err := h.reports.Valuation(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute valuation")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total_value": total})
}

func (h *Handler) glassAreaReport(w http.ResponseWriter, r *http.Request) {
	areas, err := h.reports.GlassAreaByType(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute glass area")
		return
	}
	respondJSON(w, http.StatusOK, areas)
}

func (h *Handler) monthlyExpenses(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	all := []domain.Expense{}
	err := h.db.Select(&all, `SELECT id, description, category, amount, spent_by, spent_at
		FROM expenses ORDER BY spent_at DESC`)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch monthly expenses")
		return
	}
	now := time.Now().UTC()
	expenses := []domain.Expense{}
	total := decimal.Zero
	for _, e := range all {
		if e.SpentAt.Year() != now.Year() || e.SpentAt.Month() != now.Month() {
			continue
		}
		expenses = append(expenses, e)
		total = total.Add(e.Amount)
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": total, "expenses": expenses})
}

// Error mapping

func respondStockError(w http.ResponseWriter, err error) {
	var insufficient *stock.InsufficientStockError
	var returned *stock.AlreadyReturnedError
	var validation *stock.ValidationError
	switch {
	case errors.As(err, &insufficient):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient stock",
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.As(err, &returned):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, stock.ErrHasHistory):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, stock.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
