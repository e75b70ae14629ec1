package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"cartflow/pkg/cart"
	"cartflow/pkg/otel"
)

type ctxKey int

const userKey ctxKey = 1

// loginRequest represents login credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginHandler handles user login and session creation.
// @Summary Login
// @Description Authenticates user and sets session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Router /login [post]
func loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "loginHandler")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}
	sid := uuid.NewString()
	if err := redisClient.Set(ctx, "session:"+sid, req.Username, time.Hour).Err(); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: sid, Path: "/", Expires: time.Now().Add(time.Hour), HttpOnly: true})
	w.WriteHeader(http.StatusOK)
}

// authMiddleware ensures a valid session exists and records its owner.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session_id")
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		user, err := redisClient.Get(r.Context(), "session:"+c.Value).Result()
		if err != nil || user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getCartHandler returns the current cart snapshot.
// @Summary Get cart
// @Produce json
// @Success 200 {array} cart.Entry
// @Security ApiKeyAuth
// @Router /cart [get]
func getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getCartHandler")
	defer span.End()

	store, ok := storeFor(ctx, w)
	if !ok {
		return
	}
	writeCart(w, store.Items())
}

// addProductHandler adds one unit of a product to the cart.
// @Summary Add product
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {array} cart.Entry
// @Security ApiKeyAuth
// @Router /cart/{productId} [post]
func addProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addProductHandler")
	defer span.End()

	store, ok := storeFor(ctx, w)
	if !ok {
		return
	}
	productID, ok := productIDFrom(w, r)
	if !ok {
		return
	}
	if err := store.AddProduct(ctx, productID); err != nil {
		log.Error(ctx, "add product", "product_id", productID, "error", err)
		writeCartError(w, err, cart.MsgAddFailed)
		return
	}
	writeCart(w, store.Items())
}

// updateAmountRequest carries the target quantity.
type updateAmountRequest struct {
	Amount int `json:"amount"`
}

// updateAmountHandler sets a product's quantity.
// @Summary Update product amount
// @Accept json
// @Produce json
// @Param productId path int true "Product ID"
// @Param body body updateAmountRequest true "Target amount"
// @Success 200 {array} cart.Entry
// @Security ApiKeyAuth
// @Router /cart/{productId} [put]
func updateAmountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "updateAmountHandler")
	defer span.End()

	store, ok := storeFor(ctx, w)
	if !ok {
		return
	}
	productID, ok := productIDFrom(w, r)
	if !ok {
		return
	}
	var req updateAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := store.UpdateProductAmount(ctx, productID, req.Amount); err != nil {
		log.Error(ctx, "update product amount", "product_id", productID, "amount", req.Amount, "error", err)
		writeCartError(w, err, cart.MsgUpdateFailed)
		return
	}
	writeCart(w, store.Items())
}

// removeProductHandler removes a product from the cart.
// @Summary Remove product
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {array} cart.Entry
// @Security ApiKeyAuth
// @Router /cart/{productId} [delete]
func removeProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeProductHandler")
	defer span.End()

	store, ok := storeFor(ctx, w)
	if !ok {
		return
	}
	productID, ok := productIDFrom(w, r)
	if !ok {
		return
	}
	if err := store.RemoveProduct(ctx, productID); err != nil {
		log.Error(ctx, "remove product", "product_id", productID, "error", err)
		writeCartError(w, err, cart.MsgRemoveFailed)
		return
	}
	writeCart(w, store.Items())
}

func storeFor(ctx context.Context, w http.ResponseWriter) (*cart.Store, bool) {
	owner, _ := ctx.Value(userKey).(string)
	store, err := carts.Store(ctx, owner)
	if err != nil {
		log.Error(ctx, "resolve cart store", "owner", owner, "error", err)
		http.Error(w, "cart unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return store, true
}

func productIDFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["productId"], 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeCart(w http.ResponseWriter, entries []cart.Entry) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// writeCartError maps store errors to HTTP responses whose body carries the
// user-facing message.
func writeCartError(w http.ResponseWriter, err error, fallback string) {
	status, msg := httpStatusFromCart(err, fallback)
	http.Error(w, msg, status)
}

func httpStatusFromCart(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict, cart.MsgOutOfStock
	case errors.Is(err, cart.ErrNotFound):
		return http.StatusNotFound, fallback
	default:
		return http.StatusBadGateway, fallback
	}
}
