package main

import (
	"context"
	"flag"
	"log"

	"github.com/shopspring/decimal"

	"mensstore-be/internal/config"
	"mensstore-be/internal/logger"
	"mensstore-be/internal/product"
	"mensstore-be/internal/store"
)

func main() {
	dataDir := flag.String("data-dir", "", "override DATA_DIR from the environment")
	flag.Parse()

	cfg := config.LoadConfig()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	s, err := store.Open(store.DefaultOptions(cfg.DataDir))
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	repo := product.NewRepository(s)
	svc := product.NewService(repo)
	ctx := context.Background()

	for _, p := range catalog() {
		id, err := svc.Add(ctx, p)
		if err != nil {
			log.Fatalf("❌ failed to seed %q: %v", p.Name, err)
		}
		log.Printf("🌱 seeded %s (%s)", p.Name, id)
	}
	log.Println("✅ Catalog seeded successfully.")
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func catalog() []product.Product {
	return []product.Product{
		{
			Name:               "Linen Shirt",
			Description:        "Breathable linen shirt for warm days.",
			Price:              price("100.00"),
			Category:           "shirts",
			SubCategory:        "casual",
			Brand:              "Northway",
			Sizes:              []string{"S", "M", "L", "XL"},
			Colors:             []string{"white", "navy"},
			Tags:               []string{"linen", "shirt", "summer"},
			DiscountPercentage: 20,
			StockQuantity:      40,
			Featured:           true,
		},
		{
			Name:          "Wool Coat",
			Description:   "Heavy wool coat with a classic cut.",
			Price:         price("250.00"),
			Category:      "outerwear",
			SubCategory:   "coats",
			Brand:         "Harbrook",
			Sizes:         []string{"M", "L", "XL"},
			Colors:        []string{"charcoal", "camel"},
			Tags:          []string{"wool", "coat", "winter"},
			StockQuantity: 15,
			Featured:      true,
		},
		{
			Name:               "Selvedge Denim",
			Description:        "Raw selvedge denim, straight fit.",
			Price:              price("140.00"),
			Category:           "trousers",
			SubCategory:        "denim",
			Brand:              "Northway",
			Sizes:              []string{"30", "32", "34", "36"},
			Colors:             []string{"indigo"},
			Tags:               []string{"denim", "jeans", "selvedge"},
			DiscountPercentage: 10,
			StockQuantity:      25,
		},
		{
			Name:          "Merino Crewneck",
			Description:   "Fine-gauge merino knit.",
			Price:         price("85.00"),
			Category:      "knitwear",
			SubCategory:   "sweaters",
			Brand:         "Aldermont",
			Sizes:         []string{"S", "M", "L"},
			Colors:        []string{"grey", "forest", "navy"},
			Tags:          []string{"merino", "knitwear", "sweater"},
			StockQuantity: 30,
		},
		{
			Name:          "Leather Derby Shoes",
			Description:   "Full-grain leather derbies, Goodyear welted.",
			Price:         price("195.00"),
			Category:      "shoes",
			SubCategory:   "dress",
			Brand:         "Harbrook",
			Sizes:         []string{"41", "42", "43", "44", "45"},
			Colors:        []string{"black", "brown"},
			Tags:          []string{"leather", "shoes", "derby"},
			StockQuantity: 12,
		},
	}
}
