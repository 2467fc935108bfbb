package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/bank"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/domain/portfolio"
	"github.com/hellofresh/bankengine/money"
)

// userIDHeader carries the user authenticated by the gateway in front of the service
const userIDHeader = "X-User-ID"

type contextKey string

const (
	contextKeyUserID contextKey = "userID"
	contextKeyID     contextKey = "aggregateID"
)

type (
	openAccountRequest struct {
		Type           account.Type `json:"type"`
		InitialBalance money.Money  `json:"initial_balance"`
		Name           string       `json:"name"`
	}

	amountRequest struct {
		Amount      money.Money `json:"amount"`
		Description string      `json:"description"`
	}

	transferRequest struct {
		FromAccountID aggregate.ID `json:"from_account_id"`
		ToAccountID   aggregate.ID `json:"to_account_id"`
		Amount        money.Money  `json:"amount"`
		Description   string       `json:"description"`
	}

	openPortfolioRequest struct {
		AccountID aggregate.ID `json:"account_id"`
	}

	placeOrderRequest struct {
		AccountID   aggregate.ID `json:"account_id"`
		PortfolioID aggregate.ID `json:"portfolio_id"`
		SecurityID  string       `json:"security_id"`
		Side        order.Side   `json:"side"`
		Quantity    int64        `json:"quantity"`
		Price       money.Money  `json:"price"`
	}

	accountView struct {
		ID      aggregate.ID   `json:"id"`
		UserID  string         `json:"user_id"`
		IBAN    string         `json:"iban"`
		Type    account.Type   `json:"type"`
		Name    string         `json:"name"`
		Balance money.Money    `json:"balance"`
		Status  account.Status `json:"status"`
		Version int            `json:"version"`
	}

	portfolioView struct {
		ID        aggregate.ID     `json:"id"`
		AccountID aggregate.ID     `json:"account_id"`
		Holdings  map[string]int64 `json:"holdings"`
	}

	orderView struct {
		ID                aggregate.ID `json:"id"`
		SecurityID        string       `json:"security_id"`
		Side              order.Side   `json:"side"`
		Quantity          int64        `json:"quantity"`
		Price             money.Money  `json:"price"`
		Status            order.Status `json:"status"`
		RemainingQuantity int64        `json:"remaining_quantity"`
		FilledAmount      money.Money  `json:"filled_amount"`
		Executions        int          `json:"executions,omitempty"`
	}
)

type handler struct {
	service *bank.Service
	logger  *zap.Logger
}

func newHandler(service *bank.Service, logger *zap.Logger) *handler {
	return &handler{service: service, logger: logger}
}

func (h *handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Use(middleware.RequestID)
	r.Use(h.userIDFromHeader)

	r.Post("/accounts", h.OpenAccount)
	r.Route("/accounts/{id}", func(r chi.Router) {
		r.Use(h.idFromURL)

		r.Get("/", h.ViewAccount)
		r.Post("/deposits", h.Deposit)
		r.Post("/withdrawals", h.Withdraw)
	})
	r.Post("/transfers", h.Transfer)
	r.Post("/portfolios", h.OpenPortfolio)
	r.Post("/orders", h.PlaceOrder)
	r.With(h.idFromURL).Delete("/orders/{id}", h.CancelOrder)

	return r
}

func (h *handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.OpenAccount(r.Context(), userID(r), req.Type, req.InitialBalance, req.Name)
	if err != nil {
		h.renderError(w, err, zap.String("user_id", userID(r)))
		return
	}

	w.Header().Add("Location", fmt.Sprintf("/accounts/%s", a.AggregateID()))
	h.render(w, http.StatusCreated, newAccountView(a))
}

func (h *handler) ViewAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Account(r.Context(), aggregateID(r))
	if err != nil {
		h.renderError(w, err, zap.String("account_id", string(aggregateID(r))))
		return
	}
	if a.UserID() != userID(r) {
		h.renderError(w, bank.ErrNotOwner, zap.String("account_id", string(aggregateID(r))))
		return
	}

	h.render(w, http.StatusOK, newAccountView(a))
}

func (h *handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.changeBalance(w, r, h.service.Deposit)
}

func (h *handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.changeBalance(w, r, h.service.Withdraw)
}

func (h *handler) changeBalance(
	w http.ResponseWriter,
	r *http.Request,
	change func(context.Context, aggregate.ID, money.Money, string) (*account.Account, error),
) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := change(r.Context(), aggregateID(r), req.Amount, req.Description)
	if err != nil {
		h.renderError(w, err,
			zap.String("account_id", string(aggregateID(r))),
			zap.Stringer("amount", req.Amount),
		)
		return
	}

	h.render(w, http.StatusOK, newAccountView(a))
}

func (h *handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}

	from, err := h.service.Account(r.Context(), req.FromAccountID)
	if err != nil {
		h.renderError(w, err, zap.String("account_id", string(req.FromAccountID)))
		return
	}
	if from.UserID() != userID(r) {
		h.renderError(w, bank.ErrNotOwner, zap.String("account_id", string(req.FromAccountID)))
		return
	}

	if err := h.service.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount, req.Description); err != nil {
		h.renderError(w, err,
			zap.String("from_account_id", string(req.FromAccountID)),
			zap.String("to_account_id", string(req.ToAccountID)),
			zap.Stringer("amount", req.Amount),
		)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) OpenPortfolio(w http.ResponseWriter, r *http.Request) {
	var req openPortfolioRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.OpenPortfolio(r.Context(), userID(r), req.AccountID)
	if err != nil {
		h.renderError(w, err, zap.String("account_id", string(req.AccountID)))
		return
	}

	w.Header().Add("Location", fmt.Sprintf("/portfolios/%s", p.AggregateID()))
	h.render(w, http.StatusCreated, newPortfolioView(p))
}

func (h *handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, executions, err := h.service.PlaceOrder(r.Context(), bank.PlaceOrder{
		UserID:      userID(r),
		AccountID:   req.AccountID,
		PortfolioID: req.PortfolioID,
		SecurityID:  req.SecurityID,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Price:       req.Price,
	})
	if err != nil {
		h.renderError(w, err,
			zap.String("account_id", string(req.AccountID)),
			zap.String("security_id", req.SecurityID),
		)
		return
	}

	view := newOrderView(o)
	view.Executions = executions
	h.render(w, http.StatusCreated, view)
}

func (h *handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.CancelOrder(r.Context(), userID(r), aggregateID(r), "cancelled by user")
	if err != nil {
		h.renderError(w, err, zap.String("order_id", string(aggregateID(r))))
		return
	}

	h.render(w, http.StatusOK, newOrderView(o))
}

func (h *handler) userIDFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(userIDHeader)
		if user == "" {
			w.WriteHeader(http.StatusUnauthorized)
			h.logger.Debug("request without user", zap.String("path", r.URL.Path))
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) idFromURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "id")
		id, err := aggregate.IDFromString(idStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			h.logger.Debug("invalid id in url", zap.Error(err), zap.String("id", idStr))
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		h.logger.Debug("invalid request body", zap.Error(err))
		return false
	}

	return true
}

func (h *handler) render(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("failed to marshal response", zap.Error(err))
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *handler) renderError(w http.ResponseWriter, err error, fields ...zap.Field) {
	status := statusOf(err)
	log := h.logger.With(append(fields, zap.Error(err))...)
	if status == http.StatusInternalServerError {
		log.Error("failed to handle request")
	} else {
		log.Debug("request rejected", zap.Int("status", status))
	}

	w.WriteHeader(status)
}

func statusOf(err error) int {
	var invalidArgument bankengine.InvalidArgumentError
	switch {
	case errors.Is(err, aggregate.ErrAggregateNotFound):
		return http.StatusNotFound
	case errors.Is(err, bank.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, bankengine.ErrConcurrencyConflict),
		errors.Is(err, bankengine.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, account.ErrInsufficientFunds),
		errors.Is(err, portfolio.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalidArgument),
		errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, account.ErrExternalTransfer),
		errors.Is(err, account.ErrInvalidType),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrInvalidIBAN),
		errors.Is(err, order.ErrInvalidSide),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, portfolio.ErrInvalidQuantity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func userID(r *http.Request) string {
	user, _ := r.Context().Value(contextKeyUserID).(string)
	return user
}

func aggregateID(r *http.Request) aggregate.ID {
	id, _ := r.Context().Value(contextKeyID).(aggregate.ID)
	return id
}

func newAccountView(a *account.Account) accountView {
	return accountView{
		ID:      a.AggregateID(),
		UserID:  a.UserID(),
		IBAN:    a.IBAN().String(),
		Type:    a.Type(),
		Name:    a.Name(),
		Balance: a.Balance(),
		Status:  a.Status(),
		Version: a.Version(),
	}
}

func newPortfolioView(p *portfolio.Portfolio) portfolioView {
	return portfolioView{
		ID:        p.AggregateID(),
		AccountID: p.AccountID(),
		Holdings:  p.Holdings(),
	}
}

func newOrderView(o *order.Order) orderView {
	return orderView{
		ID:                o.AggregateID(),
		SecurityID:        o.SecurityID(),
		Side:              o.Side(),
		Quantity:          o.Quantity(),
		Price:             o.Price(),
		Status:            o.Status(),
		RemainingQuantity: o.RemainingQuantity(),
		FilledAmount:      o.FilledAmount(),
	}
}
