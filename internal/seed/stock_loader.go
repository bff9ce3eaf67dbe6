package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// LoadStock ingests an initial stock CSV, skipping batches already present.
// Expected columns: product_name, item_type, batch_number, quantity,
// unit_price, width_cm, height_cm, expiry_date (YYYY-MM-DD).
func LoadStock(db *sqlx.DB, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Warn().Err(err).Str("path", csvPath).Msg("unable to open stock seed file")
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Warn().Err(err).Msg("unable to read stock seed header")
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Warn().Err(err).Msg("unable to start stock seed transaction")
		return
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("unable to read stock seed row")
			continue
		}
		if len(record) < 5 {
			continue
		}
		name := strings.TrimSpace(record[0])
		itemType := strings.TrimSpace(record[1])
		batch := strings.TrimSpace(record[2])
		qty, _ := strconv.ParseInt(strings.TrimSpace(record[3]), 10, 64)
		price := strings.TrimSpace(record[4])

		if name == "" || qty < 0 {
			continue
		}
		if price == "" {
			price = "0"
		}

		if batch != "" {
			var exists bool
			if err := tx.Get(&exists, `SELECT EXISTS(SELECT 1 FROM stock_items WHERE batch_number = ?)`, batch); err == nil && exists {
				continue
			}
		}

		var widthCM, heightCM *float64
		if len(record) > 6 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64); err == nil {
				widthCM = &v
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[6]), 64); err == nil {
				heightCM = &v
			}
		}
		var expiry *time.Time
		if len(record) > 7 {
			if t, err := time.Parse("2006-01-02", strings.TrimSpace(record[7])); err == nil {
				expiry = &t
			}
		}

		now := time.Now().UTC()
		_, err = tx.Exec(`INSERT INTO stock_items
			(product_name, item_type, batch_number, current_quantity, original_quantity,
			 unit_price, width_cm, height_cm, expiry_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			name, itemType, batch, qty, qty, price, widthCM, heightCM, expiry, now, now)
		if err != nil {
			log.Warn().Err(err).Str("product", name).Msg("unable to insert stock row")
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("unable to commit stock seed")
	} else {
		log.Info().Int("rows", rows).Msg("seeded initial stock")
	}
}
