package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"bizledger/internal/core"
	"bizledger/internal/export"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = core.Actor{UserID: 1, Role: core.RoleAdmin}
	ops      = core.Actor{UserID: 2, Role: core.RoleOperationsManager}
	employee = core.Actor{UserID: 3, Role: core.RoleEmployee}
)

type fakeProducts struct {
	core.ProductService

	calls      int
	categories []core.Category
	upserted   []core.ProductInput
	existing   map[string]bool
}

func (f *fakeProducts) CreateProduct(_ context.Context, in core.ProductInput, _ core.Actor) (*core.Product, error) {
	f.calls++
	return &core.Product{ID: 10, Name: in.Name, SKU: in.SKU}, nil
}

func (f *fakeProducts) DeleteProduct(context.Context, int) (bool, error) {
	f.calls++
	return true, nil
}

func (f *fakeProducts) ListCategories(context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeProducts) CreateCategory(_ context.Context, name, _ string) (*core.Category, error) {
	c := core.Category{ID: 100 + len(f.categories), Name: name}
	f.categories = append(f.categories, c)
	return &c, nil
}

func (f *fakeProducts) UpsertBySKU(_ context.Context, in core.ProductInput, _ core.Actor) (bool, *core.Product, error) {
	if in.SKU == "BAD" {
		return false, nil, core.Conflictf("sku BAD is reserved")
	}
	f.upserted = append(f.upserted, in)
	return !f.existing[in.SKU], &core.Product{SKU: in.SKU}, nil
}

type fakeFinancial struct {
	core.FinancialService
	calls int
	err   error
}

func (f *fakeFinancial) GetFinancialStatements(_ context.Context, p core.Period) (*core.FinancialStatements, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &core.FinancialStatements{}, nil
}

func newTestApp(products *fakeProducts, fin *fakeFinancial) *appService {
	return NewAppService(Services{Products: products, Financial: fin}, nil, nil).(*appService)
}

func TestCreateProduct_Validation(t *testing.T) {
	products := &fakeProducts{}
	s := newTestApp(products, nil)

	_, err := s.CreateProduct(context.Background(), ops, ProductRequest{
		Name:         "Widget",
		SellingPrice: decimal.RequireFromString("-1"),
	})
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	var de *core.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "required", de.Fields["sku"])
	assert.Equal(t, "gte=0", de.Fields["selling_price"])
	assert.Zero(t, products.calls)
}

func TestCreateProduct_Defaults(t *testing.T) {
	in := ProductRequest{Name: "Widget", SKU: "W-1"}.toInput()
	assert.True(t, in.TrackInventory)
	assert.Equal(t, 10, in.LowStockThreshold)

	svc := ProductRequest{Name: "Repair", SKU: "S-1", IsService: true}.toInput()
	assert.False(t, svc.TrackInventory)
}

func TestAuthorization(t *testing.T) {
	products := &fakeProducts{}
	s := newTestApp(products, nil)
	ctx := context.Background()

	_, err := s.DeleteProduct(ctx, ops, 5)
	assert.Equal(t, core.KindForbidden, core.KindOf(err))

	_, err = s.CreateProduct(ctx, employee, ProductRequest{Name: "Widget", SKU: "W-1"})
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
	assert.Zero(t, products.calls)

	res, err := s.DeleteProduct(ctx, admin, 5)
	require.NoError(t, err)
	assert.True(t, res.HardDeleted)
	assert.Equal(t, 1, products.calls)
}

func TestSaleRequest_ItemValidation(t *testing.T) {
	s := newTestApp(&fakeProducts{}, nil)
	err := s.validate(SaleRequest{
		Items: []SaleItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 0, DiscountPercentage: decimal.NewFromInt(120)},
		},
		TaxRate: decimal.NewFromInt(8),
	})
	require.Error(t, err)

	var de *core.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "required", de.Fields["items[1].quantity"])
	assert.Equal(t, "lte=100", de.Fields["items[1].discount_percentage"])
	assert.NotContains(t, de.Fields, "items[0].quantity")

	err = s.validate(SaleRequest{})
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "required", de.Fields["items"])
}

func TestLogin_RequiresCredentials(t *testing.T) {
	s := newTestApp(&fakeProducts{}, nil)
	_, err := s.Login(context.Background(), LoginRequest{Username: "admin"})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

func TestStatements(t *testing.T) {
	fin := &fakeFinancial{}
	s := newTestApp(&fakeProducts{}, fin)
	ctx := context.Background()

	_, err := s.Statements(ctx, employee, core.Period{Year: 2024, Month: 13})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
	assert.Zero(t, fin.calls)

	// Without a cache every call rebuilds.
	_, err = s.Statements(ctx, employee, core.Period{Year: 2024})
	require.NoError(t, err)
	_, err = s.Statements(ctx, employee, core.Period{Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 2, fin.calls)

	fin.err = errors.New("connection reset")
	_, err = s.Statements(ctx, employee, core.Period{Year: 2024})
	require.Error(t, err)
	assert.Empty(t, core.KindOf(err))
}

func TestImportProducts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteProducts(&buf, []core.Product{
		{Name: "Hammer", SKU: "H-1", CategoryName: "tools", SellingPrice: decimal.NewFromInt(12), TrackInventory: true, CurrentStock: 4},
		{Name: "Paint", SKU: "P-1", CategoryName: "Paint", SellingPrice: decimal.NewFromInt(20), TrackInventory: true},
		{Name: "Brush", SKU: "B-1", CategoryName: "paint", SellingPrice: decimal.NewFromInt(3), TrackInventory: true},
		{Name: "Reserved", SKU: "BAD"},
	}))

	products := &fakeProducts{
		categories: []core.Category{{ID: 1, Name: "Tools"}},
		existing:   map[string]bool{"P-1": true},
	}
	s := newTestApp(products, nil)

	_, err := s.ImportProducts(context.Background(), employee, bytes.NewReader(buf.Bytes()))
	assert.Equal(t, core.KindForbidden, core.KindOf(err))

	res, err := s.ImportProducts(context.Background(), ops, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.CategoriesCreated)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 5")

	require.Len(t, products.upserted, 3)
	require.NotNil(t, products.upserted[0].CategoryID)
	assert.Equal(t, 1, *products.upserted[0].CategoryID)
	assert.Equal(t, 4, products.upserted[0].OpeningStock)
	assert.Equal(t, *products.upserted[1].CategoryID, *products.upserted[2].CategoryID)
}

func TestImportProducts_Unreadable(t *testing.T) {
	s := newTestApp(&fakeProducts{}, nil)
	_, err := s.ImportProducts(context.Background(), ops, bytes.NewReader([]byte("not a workbook")))
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}
