package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/service"
)

func TestPrometheus_CheckoutOutcomes(t *testing.T) {
	m := New()

	m.CheckoutSucceeded(domain.Order{
		TotalItems: 3,
		Subtotal:   decimal.RequireFromString("26.97"),
		Savings:    decimal.RequireFromString("3.00"),
	})
	m.CheckoutRejected("insufficient_stock")
	m.CheckoutRejected("insufficient_stock")
	m.CheckoutRejected("empty_cart")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkoutsTotal.WithLabelValues("success", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkoutsTotal.WithLabelValues("rejected", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkoutsTotal.WithLabelValues("rejected", "empty_cart")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsSold))
	assert.InDelta(t, 26.97, testutil.ToFloat64(m.revenueTotal), 0.001)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.savingsTotal), 0.001)
}

func TestPrometheus_StockGaugeEndsOnLedgerValue(t *testing.T) {
	m := New()
	ledger := service.NewInventoryLedger(nil, zap.NewNop())
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "A", 500)
	require.NoError(t, err)
	m.SeedStock(ledger.Snapshot())
	defer ledger.OnChange(m.ObserveInventory)()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%3 == 0 {
				_ = ledger.Add(ctx, "A", 2)
			} else {
				_ = ledger.Deduct(ctx, "A", 5)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, float64(ledger.GetStock("A")), testutil.ToFloat64(m.stockLevel.WithLabelValues("A")))
}

func TestPrometheus_TracksLedgerStock(t *testing.T) {
	m := New()
	ledger := service.NewInventoryLedger(nil, zap.NewNop())
	ctx := context.Background()

	_, err := ledger.Initialize(ctx, "A", 5)
	require.NoError(t, err)
	m.SeedStock(ledger.Snapshot())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.stockLevel.WithLabelValues("A")))

	defer ledger.OnChange(m.ObserveInventory)()

	require.NoError(t, ledger.Deduct(ctx, "A", 2))
	require.NoError(t, ledger.Add(ctx, "B", 4))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.stockLevel.WithLabelValues("A")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.stockLevel.WithLabelValues("B")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockChanges.WithLabelValues("deducted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockChanges.WithLabelValues("added")))
}

func TestPrometheus_Handler(t *testing.T) {
	m := New()
	m.CheckoutRejected("empty_cart")
	m.ArchiveFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `storefront_checkouts_total{outcome="rejected",reason="empty_cart"} 1`))
	assert.Contains(t, body, "storefront_order_archive_failures_total 1")
	assert.Contains(t, body, "go_goroutines")
}
