package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"csms/internal/config"
	"csms/internal/db"
	"csms/internal/models"
	"csms/internal/repo"

	"github.com/joho/godotenv"
)

// Provisions a charge point row and RFID tags for local development.
func main() {
	id := flag.String("id", "CP-001", "chargePointId")
	vendor := flag.String("vendor", "ABB", "vendor")
	model := flag.String("model", "Terra54", "model")
	tags := flag.String("tags", "TAG1", "comma separated id tags to authorize")
	blocked := flag.String("blocked", "", "comma separated id tags to store as not authorized")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	chargePoints := repo.NewChargePointsRepo(d.Pool)
	rfid := repo.NewRfidRepo(d.Pool)

	err = chargePoints.Upsert(ctx, models.ChargePoint{
		ID:          *id,
		OcppVersion: "1.6",
		Vendor:      *vendor,
		Model:       *model,
		LastBoot:    time.Now().UTC(),
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, tag := range splitTags(*tags) {
		if err := rfid.UpsertTag(ctx, tag, true); err != nil {
			log.Fatal(err)
		}
	}
	for _, tag := range splitTags(*blocked) {
		if err := rfid.UpsertTag(ctx, tag, false); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("Seeded charge point:", *id)
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
