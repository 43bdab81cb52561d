package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/adapter/storage"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/service"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

const itemID = "flash-sale-item"

func main() {
	initialStock := flag.Int("stock", 20, "initial stock of the contested item")
	shoppers := flag.Int("shoppers", 50, "concurrent carts checking out")
	quantity := flag.Int("qty", 1, "units each shopper buys")
	redisAddr := flag.String("redis", "", "persist ledger state to this Redis instead of memory")
	flag.Parse()

	if *quantity <= 0 || *shoppers <= 0 || *initialStock < 0 {
		fmt.Fprintln(os.Stderr, "stock must be non-negative, shoppers and qty positive")
		os.Exit(2)
	}

	ctx := context.Background()
	logger := zap.NewNop()

	var store port.StateStore = storage.NewMemoryStore()
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect redis: %v\n", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store = storage.NewRedisAdapter(rdb, "stress:")
	}

	ledger := service.NewInventoryLedger(store, logger)
	if err := ledger.SetStock(ctx, itemID, *initialStock); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set stock: %v\n", err)
		os.Exit(1)
	}
	product := domain.Product{ID: itemID, Name: "Flash Sale Item", Price: decimal.RequireFromString("9.99")}

	var successCount atomic.Int32
	var failCount atomic.Int32
	var rejectedAtAdd atomic.Int32

	// Every shopper fills a cart first, then they all check out at once
	var ready, wg sync.WaitGroup
	gate := make(chan struct{})
	start := time.Now()

	for i := 0; i < *shoppers; i++ {
		ready.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()

			cart := service.NewCart(ledger, nil, logger)
			checkout := service.NewCheckoutService(cart, ledger, 1, logger)
			defer checkout.Close()

			err := cart.AddItem(ctx, product, *quantity)
			ready.Done()
			if err != nil {
				rejectedAtAdd.Add(1)
				failCount.Add(1)
				return
			}

			<-gate
			if checkout.Checkout(ctx).Success {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	ready.Wait()
	close(gate)
	wg.Wait()
	elapsed := time.Since(start)

	success := int(successCount.Load())
	fail := int(failCount.Load())
	expected := min(*shoppers, *initialStock / *quantity)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Shoppers:         %d x %d units\n", *shoppers, *quantity)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d (%d rejected at add)\n", fail, rejectedAtAdd.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	passed := true
	if success == expected && fail == *shoppers-expected {
		fmt.Printf("PASS: Exactly %d checkouts succeeded, %d failed\n", expected, fail)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n", expected, *shoppers-expected, success, fail)
		passed = false
	}

	finalStock := ledger.GetStock(itemID)
	want := *initialStock - success*(*quantity)
	fmt.Printf("Final Stock:      %d\n", finalStock)
	if finalStock == want && finalStock >= 0 {
		fmt.Printf("PASS: Stock is %d, never oversold\n", finalStock)
	} else {
		fmt.Printf("FAIL: Expected stock %d, got %d\n", want, finalStock)
		passed = false
	}

	if !passed {
		os.Exit(1)
	}
}
