package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	goredis "github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	"cartflow/pkg/cart"
	"cartflow/pkg/catalog"
	"cartflow/pkg/config"
	"cartflow/pkg/kv/redis"
	"cartflow/pkg/logger"
	"cartflow/pkg/notify"
	"cartflow/pkg/otel"
)

var (
	redisClient *goredis.Client
	carts       *cart.Provider
	log         *logger.Logger
	tracer      trace.Tracer
)

// @title Cartflow API
// @version 1.0
// @description Session-scoped shopping cart with stock validation
// @host localhost:8080
// @BasePath /
func main() {
	log = logger.New(os.Stdout, logger.Level(config.Get("LOG_LEVEL", "info")), "cartflow-api", otel.GetTraceID)

	tp, shutdown, err := otel.InitTracing(log, otel.Config{
		ServiceName: "cartflow-api",
		Host:        config.Get("OTEL_HOST", ""),
		Probability: config.GetFloat("OTEL_PROBABILITY", 1.0),
	})
	if err != nil {
		log.Error(context.Background(), "init tracing", "error", err)
		os.Exit(1)
	}
	defer shutdown(context.Background())
	tracer = tp.Tracer("cartflow-api")

	redisClient = goredis.NewClient(&goredis.Options{Addr: config.Get("REDIS_ADDR", "localhost:6379")})

	stock := catalog.NewClient(config.Get("STOCK_URL", "http://localhost:8081"), &http.Client{Timeout: 10 * time.Second})
	store := redis.New(redisClient, config.GetDuration("CART_TTL", 30*24*time.Hour))
	carts = cart.NewProvider(stock, store, notify.NewLog(log.Zap()), log)

	r := mux.NewRouter()
	r.Use(traceMiddleware)
	r.HandleFunc("/login", loginHandler).Methods(http.MethodPost)

	api := r.PathPrefix("/cart").Subrouter()
	api.Use(authMiddleware)
	api.HandleFunc("", getCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/{productId}", addProductHandler).Methods(http.MethodPost)
	api.HandleFunc("/{productId}", updateAmountHandler).Methods(http.MethodPut)
	api.HandleFunc("/{productId}", removeProductHandler).Methods(http.MethodDelete)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	srv := &http.Server{
		Addr:         config.Get("ADDR", ":8080"),
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

func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.InjectTracing(r.Context(), tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
