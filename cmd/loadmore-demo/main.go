package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/Sternrassler/go-loadmore/pkg/dispatch"
	"github.com/Sternrassler/go-loadmore/pkg/loadmore"
	"github.com/Sternrassler/go-loadmore/pkg/logging"
	"github.com/Sternrassler/go-loadmore/pkg/source"
)

// demoItem is what the demo list holds.
type demoItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func main() {
	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	key := getEnv("DEMO_KEY", "loadmore:demo")
	demoItems := getEnvInt("DEMO_ITEMS", 100)
	pageSize := getEnvInt("PAGE_SIZE", 10)

	// Structured logging for the library components
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo)))
	logging.Setup(logCfg)

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Printf("Connected to Redis at %s", redisURL)

	if err := seedDemoData(ctx, redisClient, key, demoItems); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}
	log.Printf("Seeded %d demo items under %s", demoItems, key)

	// Redis-backed source with retries
	fetcher, err := source.NewRedisList(source.RedisConfig[demoItem]{
		Redis: redisClient,
		Key:   key,
	})
	if err != nil {
		log.Fatalf("Failed to create Redis source: %v", err)
	}

	retrying, err := source.NewRetry[demoItem](fetcher, source.DefaultRetryConfig())
	if err != nil {
		log.Fatalf("Failed to wrap source with retry: %v", err)
	}

	// All list mutations and flag writes run on one dispatcher goroutine
	dispatcher := dispatch.NewSerial(64)
	dispatcher.Start()
	defer dispatcher.Stop(ctx)

	cfg := loadmore.DefaultConfig[demoItem](retrying, pageSize)
	cfg.Dispatcher = dispatcher
	ctrl, err := loadmore.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/items", itemsHandler(ctrl))
	http.HandleFunc("/load", loadHandler(ctrl))
	http.HandleFunc("/state", stateHandler(ctrl))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	log.Printf("Starting loadmore demo server on %s", addr)
	log.Printf("POST /load pulls the next page of %d items", pageSize)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// seedDemoData replaces the demo list with count sequential items.
func seedDemoData(ctx context.Context, rdb *redis.Client, key string, count int) error {
	if err := rdb.Del(ctx, key).Err(); err != nil {
		return err
	}

	vals := make([]any, 0, count)
	for _, id := range lo.RangeFrom(1, count) {
		data, err := json.Marshal(demoItem{ID: id, Name: fmt.Sprintf("Item %03d", id)})
		if err != nil {
			return err
		}
		vals = append(vals, data)
	}

	return rdb.RPush(ctx, key, vals...).Err()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func itemsHandler(ctrl *loadmore.Controller[demoItem]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(ctrl.Items().Items()); err != nil {
			log.Printf("Failed to write items: %v", err)
		}
	}
}

type loadResponse struct {
	CountAfterOperation uint32 `json:"count_after_operation"`
	Length              int    `json:"length"`
	PageIndex           int    `json:"page_index"`
	HasMoreItems        bool   `json:"has_more_items"`
}

func loadHandler(ctrl *loadmore.Controller[demoItem]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		requested := 0
		if v := r.URL.Query().Get("count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "invalid count", http.StatusBadRequest)
				return
			}
			requested = n
		}

		res, err := ctrl.LoadMore(r.Context(), uint32(requested))
		if errors.Is(err, loadmore.ErrLoadInFlight) {
			http.Error(w, "load already in flight", http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("load failed: %v", err), http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		resp := loadResponse{
			CountAfterOperation: res.CountAfterOperation,
			Length:              ctrl.Items().Len(),
			PageIndex:           ctrl.PageIndex(),
			HasMoreItems:        ctrl.HasMoreItems(),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	}
}

type stateResponse struct {
	PageIndex    int  `json:"page_index"`
	PageSize     int  `json:"page_size"`
	Length       int  `json:"length"`
	IsLoading    bool `json:"is_loading"`
	HasMoreItems bool `json:"has_more_items"`
}

func stateHandler(ctrl *loadmore.Controller[demoItem]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		resp := stateResponse{
			PageIndex:    ctrl.PageIndex(),
			PageSize:     ctrl.PageSize(),
			Length:       ctrl.Items().Len(),
			IsLoading:    ctrl.IsLoading(),
			HasMoreItems: ctrl.HasMoreItems(),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			log.Fatalf("Invalid %s: %v", key, err)
		}
		return n
	}
	return defaultValue
}
