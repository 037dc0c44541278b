package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/flash-sale-pipeline/internal/adapter/storage"
	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
	"github.com/rl1809/flash-sale-pipeline/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	productID     = "flash-sale-item"
	initialStock  = 20
	totalRequests = 50
	admissionCap  = 10000
)

// discardLog stands in for the durable log so the reservation path can be
// exercised against Redis alone.
type discardLog struct{}

func (discardLog) Publish(ctx context.Context, r domain.Reservation) error { return nil }

func main() {
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, "stock:"+productID)
	keys, _ := rdb.Keys(ctx, "idempotency:stress-*").Result()
	for _, k := range keys {
		rdb.Del(ctx, k)
	}

	redisAdapter := storage.NewRedisAdapter(rdb)
	if err := redisAdapter.SetStock(ctx, productID, initialStock); err != nil {
		log.Fatalf("failed to set stock: %v", err)
	}

	ingest := service.NewIngestService(redisAdapter, discardLog{}, admissionCap)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			_, err := ingest.PlaceOrder(ctx, service.OrderRequest{
				ProductID:        productID,
				UserID:           fmt.Sprintf("user-%d", userID),
				IdempotencyToken: fmt.Sprintf("stress-%d", userID),
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("requests: %d, success: %d, failed: %d, elapsed: %s\n",
		totalRequests, successCount.Load(), failCount.Load(), elapsed)

	remaining, _ := rdb.Get(ctx, "stock:"+productID).Int()
	fmt.Printf("remaining stock: %d (expected %d)\n", remaining, initialStock-int(successCount.Load()))
}
