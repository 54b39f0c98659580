package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"shelfhub/pkg/models"
)

func LoadCategoriesFromJSON(jsonPath string) ([]models.Category, error) {
	b, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read categories json: %w", err)
	}

	var list []models.Category
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("unmarshal categories json: %w", err)
	}

	return list, nil
}

func SeedCategories(db *sql.DB, categories []models.Category) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO categories (id, name, image)
		VALUES (?, ?, ?);
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert category: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range categories {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}

		res, err := stmt.Exec(id, c.Name, c.Image)
		if err != nil {
			return 0, fmt.Errorf("insert category %s: %w", c.Name, err)
		}

		aff, _ := res.RowsAffected()
		if aff > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}
