package main

import (
	"fmt"
	"log"
	"time"

	"tikiti/internal/config"
	"tikiti/internal/database"
	"tikiti/internal/models"
	"tikiti/internal/repositories"
)

// Seeds a demo event with ticket types and coupons for local development.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	start := time.Now().AddDate(0, 1, 0)
	result, err := db.Exec(`
		INSERT INTO events (title, organizer_id, start_date, end_date, location)
		VALUES (?, ?, ?, ?, ?)`,
		"Nairobi Jazz Festival", 1, start, start.Add(8*time.Hour), "Uhuru Gardens, Nairobi")
	if err != nil {
		log.Fatalf("Failed to create event: %v", err)
	}
	eventID, _ := result.LastInsertId()

	ticketTypes := []struct {
		name     string
		price    int
		quantity int
	}{
		{"Early Bird", 50000, 100},  // KES 500
		{"Regular", 100000, 500},    // KES 1000
		{"VIP", 250000, 50},         // KES 2500
	}
	for _, tt := range ticketTypes {
		if _, err := db.Exec(`
			INSERT INTO ticket_types (event_id, name, price, quantity)
			VALUES (?, ?, ?, ?)`,
			eventID, tt.name, tt.price, tt.quantity); err != nil {
			log.Fatalf("Failed to create ticket type %s: %v", tt.name, err)
		}
	}

	couponRepo := repositories.NewCouponRepository(db.DB)
	limit := 100
	expires := time.Now().AddDate(0, 0, 30)
	coupons := []*models.Coupon{
		{Code: "SAVE10", DiscountType: models.DiscountPercentage, Value: 10, UsageLimit: &limit, ExpiresAt: &expires},
		{Code: "KARIBU500", DiscountType: models.DiscountFixed, Value: 50000, EventIDs: []int{int(eventID)}},
	}
	for _, coupon := range coupons {
		if err := couponRepo.Create(coupon); err != nil {
			log.Fatalf("Failed to create coupon %s: %v", coupon.Code, err)
		}
	}

	fmt.Printf("Seeded event %d with %d ticket types and %d coupons\n",
		eventID, len(ticketTypes), len(coupons))
}
