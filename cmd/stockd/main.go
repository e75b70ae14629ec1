package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"cartflow/pkg/catalog"
	"cartflow/pkg/catalog/postgres"
	"cartflow/pkg/config"
	"cartflow/pkg/logger"
	"cartflow/pkg/otel"
)

var (
	repo *postgres.Repository
	log  *logger.Logger
)

func main() {
	log = logger.New(os.Stdout, logger.Level(config.Get("LOG_LEVEL", "info")), "cartflow-stockd", otel.GetTraceID)

	db, err := sql.Open("postgres", config.Get("DATABASE_URL", "postgres://localhost/cartflow?sslmode=disable"))
	if err != nil {
		log.Error(context.Background(), "db connect", "error", err)
		os.Exit(1)
	}
	if _, err := db.Exec(postgres.Schema); err != nil {
		log.Error(context.Background(), "create table", "error", err)
		os.Exit(1)
	}
	repo = postgres.New(db)

	if path := config.Get("SEED_FILE", ""); path != "" {
		if err := seed(context.Background(), path); err != nil {
			log.Error(context.Background(), "seed catalog", "file", path, "error", err)
			os.Exit(1)
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/products", listProductsHandler).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", getProductHandler).Methods(http.MethodGet)
	r.HandleFunc("/stock/{id}", getStockHandler).Methods(http.MethodGet)
	r.HandleFunc("/stock/{id}", setStockHandler).Methods(http.MethodPut)

	srv := &http.Server{
		Addr:         config.Get("ADDR", ":8081"),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info(ctx, "listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server closed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "shutdown", "error", err)
	}
}

// seedEntry is one row of the JSON seed file.
type seedEntry struct {
	catalog.Product
	Stock int `json:"stock"`
}

func seed(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}
	for _, e := range entries {
		if err := repo.Upsert(ctx, e.Product, e.Stock); err != nil {
			return err
		}
	}
	log.Info(ctx, "catalog seeded", "products", len(entries))
	return nil
}

func listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := repo.Products(r.Context())
	if err != nil {
		log.Error(r.Context(), "list products", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, products)
}

func getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idFrom(w, r)
	if !ok {
		return
	}
	p, err := repo.Product(r.Context(), id)
	if err != nil {
		respondRepoError(w, r, "get product", err)
		return
	}
	writeJSON(w, p)
}

func getStockHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idFrom(w, r)
	if !ok {
		return
	}
	s, err := repo.Stock(r.Context(), id)
	if err != nil {
		respondRepoError(w, r, "get stock", err)
		return
	}
	writeJSON(w, s)
}

func setStockHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idFrom(w, r)
	if !ok {
		return
	}
	var s catalog.Stock
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.Amount < 0 {
		http.Error(w, "amount must be non-negative", http.StatusBadRequest)
		return
	}
	if err := repo.SetStock(r.Context(), id, s.Amount); err != nil {
		respondRepoError(w, r, "set stock", err)
		return
	}
	writeJSON(w, catalog.Stock{ID: id, Amount: s.Amount})
}

func respondRepoError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	log.Error(r.Context(), op, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func idFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
