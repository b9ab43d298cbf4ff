// seed creates one login per role and a small demo catalog. It is idempotent:
// users and products that already exist are left alone.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"

	"bizledger/internal/core"
	"bizledger/internal/db"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type seedProduct struct {
	sku, name, category string
	cost, price         string
	service             bool
	stock, threshold    int
}

var seedProducts = []seedProduct{
	{sku: "HW-HAM-01", name: "Claw Hammer", category: "Hardware", cost: "8.50", price: "14.99", stock: 40, threshold: 10},
	{sku: "HW-SCR-100", name: "Wood Screws (100)", category: "Hardware", cost: "2.10", price: "4.50", stock: 200, threshold: 50},
	{sku: "PT-WHT-5L", name: "White Paint 5L", category: "Paint", cost: "21.00", price: "34.00", stock: 12, threshold: 5},
	{sku: "SV-DELIV", name: "Local Delivery", category: "Services", cost: "0", price: "15.00", service: true},
}

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "changeme"
	}

	users := core.NewUserService(pool)
	log.Println("Seeding users...")
	for _, in := range []core.UserInput{
		{Username: "admin", Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: core.RoleAdmin, MonthlySalary: decimal.NewFromInt(6000)},
		{Username: "ops", Email: "ops@example.com", FirstName: "Otto", LastName: "Ops", Role: core.RoleOperationsManager, MonthlySalary: decimal.NewFromInt(4500)},
		{Username: "finance", Email: "finance@example.com", FirstName: "Fay", LastName: "Finance", Role: core.RoleFinanceManager, MonthlySalary: decimal.NewFromInt(4800)},
		{Username: "clerk", Email: "clerk@example.com", FirstName: "Cole", LastName: "Clerk", Role: core.RoleEmployee, HourlyRate: decimal.NewFromInt(18)},
	} {
		in.Password = password
		if _, err := users.CreateUser(ctx, in); err != nil {
			if core.KindOf(err) == core.KindConflict {
				log.Printf("  %s exists, skipped", in.Username)
				continue
			}
			log.Fatalf("Failed to create user %s: %v", in.Username, err)
		}
		log.Printf("  %s (%s)", in.Username, in.Role)
	}

	inventory := core.NewInventoryService(pool, core.SystemClock)
	products := core.NewProductService(pool, inventory)

	cats, err := products.ListCategories(ctx)
	if err != nil {
		log.Fatalf("Failed to list categories: %v", err)
	}
	categoryIDs := make(map[string]int, len(cats))
	for _, c := range cats {
		categoryIDs[c.Name] = c.ID
	}

	log.Println("Seeding products...")
	for _, sp := range seedProducts {
		if _, err := products.GetProductBySKU(ctx, sp.sku); err == nil {
			log.Printf("  %s exists, skipped", sp.sku)
			continue
		} else if core.KindOf(err) != core.KindNotFound {
			log.Fatalf("Failed to look up %s: %v", sp.sku, err)
		}

		id, ok := categoryIDs[sp.category]
		if !ok {
			c, err := products.CreateCategory(ctx, sp.category, "")
			if err != nil {
				log.Fatalf("Failed to create category %s: %v", sp.category, err)
			}
			id = c.ID
			categoryIDs[sp.category] = id
		}

		_, err := products.CreateProduct(ctx, core.ProductInput{
			Name:              sp.name,
			SKU:               sp.sku,
			CategoryID:        &id,
			ItemCost:          decimal.RequireFromString(sp.cost),
			SellingPrice:      decimal.RequireFromString(sp.price),
			IsService:         sp.service,
			TrackInventory:    !sp.service,
			LowStockThreshold: sp.threshold,
			OpeningStock:      sp.stock,
		}, core.SystemActor)
		if err != nil {
			log.Fatalf("Failed to create product %s: %v", sp.sku, err)
		}
		log.Printf("  %s %s", sp.sku, sp.name)
	}

	log.Println("Seed complete.")
}
