// internal/database/seed.go
package database

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/duka-backend/internal/models"
)

//go:embed seed/products.json
var seedFS embed.FS

// DemoProducts decodes the bundled demo catalog. Ids in the file are a mix
// of numbers and strings, as in older catalog exports.
func DemoProducts() ([]models.Product, error) {
	data, err := seedFS.ReadFile("seed/products.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	for i := range products {
		if products[i].Status == "" {
			products[i].Status = models.ProductStatusActive
		}
	}
	return products, nil
}

// SeedDemoProducts inserts the demo catalog, leaving existing rows alone.
func SeedDemoProducts(ctx context.Context, db *gorm.DB) error {
	logrus.Info("Seeding demo products...")

	products, err := DemoProducts()
	if err != nil {
		return err
	}

	err = WithTransaction(db.WithContext(ctx), func(tx *gorm.DB) error {
		for i := range products {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&products[i]).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", products[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithField("count", len(products)).Info("Demo products seeded")
	return nil
}
