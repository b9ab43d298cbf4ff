package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bizledger/internal/app"
	"bizledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	app.ApplicationService
	period core.Period
}

func (f *fakeService) LowStock(context.Context, core.Actor) (*core.LowStockReport, error) {
	return &core.LowStockReport{
		Low:             []core.LowStockItem{{SKU: "H-1", Name: "Hammer", CurrentStock: 3, LowStockThreshold: 10}},
		OutOfStock:      []core.LowStockItem{{SKU: "N-1", Name: "Nails"}},
		LowCount:        1,
		OutOfStockCount: 1,
	}, nil
}

func (f *fakeService) AuditStock(context.Context, core.Actor) ([]core.StockDiscrepancy, error) {
	return nil, nil
}

func (f *fakeService) Statements(_ context.Context, _ core.Actor, p core.Period) (*core.FinancialStatements, error) {
	f.period = p
	return &core.FinancialStatements{Period: p, BalanceSheet: core.BalanceSheet{IsBalanced: true}}, nil
}

func (f *fakeService) ExportProducts(_ context.Context, _ core.Actor, w io.Writer) error {
	_, err := w.Write([]byte("xlsx"))
	return err
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	svc := &fakeService{}

	t.Run("low stock", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Run(ctx, svc, core.SystemActor, []string{"low-stock"}, &out))
		assert.Contains(t, out.String(), "1 low, 1 out of stock")
		assert.Contains(t, out.String(), "Hammer")
	})

	t.Run("statements with period", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Run(ctx, svc, core.SystemActor, []string{"st", "2023", "6"}, &out))
		assert.Equal(t, core.Period{Year: 2023, Month: 6}, svc.period)
		assert.Contains(t, out.String(), "2023-06")
	})

	t.Run("audit clean", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Run(ctx, svc, core.SystemActor, []string{"audit"}, &out))
		assert.Contains(t, out.String(), "consistent")
	})

	t.Run("export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "products.xlsx")
		var out bytes.Buffer
		require.NoError(t, Run(ctx, svc, core.SystemActor, []string{"export", "products", path}, &out))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "xlsx", string(data))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, Run(ctx, svc, core.SystemActor, []string{"frobnicate"}, io.Discard))
		assert.Error(t, Run(ctx, svc, core.SystemActor, nil, io.Discard))
	})
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	p, err := parsePeriod(nil, now)
	require.NoError(t, err)
	assert.Equal(t, core.Period{Year: 2024}, p)

	_, err = parsePeriod([]string{"2024", "13"}, now)
	assert.Error(t, err)

	_, err = parsePeriod([]string{"twenty"}, now)
	assert.Error(t, err)
}
