// Package seed loads reference data and demo content into the database.
// Every entry point takes the *gorm.DB it writes to.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"istancool/internal/cache"
	"istancool/internal/middleware"
	"istancool/internal/models"
	"istancool/internal/slug"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed districts.yml
var districtsYAML []byte

// DistrictSeed is one entry of the built-in district list.
type DistrictSeed struct {
	Name   string
	Slug   string
	Region models.Region
}

// BuiltInDistricts parses the embedded district list.
func BuiltInDistricts() ([]DistrictSeed, error) {
	var byRegion map[models.Region][]string
	if err := yaml.Unmarshal(districtsYAML, &byRegion); err != nil {
		return nil, fmt.Errorf("parse districts.yml: %w", err)
	}

	var out []DistrictSeed
	for _, region := range []models.Region{models.RegionEurope, models.RegionAsia} {
		for _, name := range byRegion[region] {
			out = append(out, DistrictSeed{Name: name, Slug: slug.Make(name), Region: region})
		}
	}
	return out, nil
}

// Districts upserts the built-in districts by slug. Running it again only
// refreshes names and regions.
func Districts(ctx context.Context, db *gorm.DB) (int, error) {
	list, err := BuiltInDistricts()
	if err != nil {
		return 0, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range list {
			district := models.District{
				Name:     item.Name,
				Slug:     item.Slug,
				Region:   item.Region,
				IsActive: true,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "region"}),
			}).Create(&district).Error; err != nil {
				return fmt.Errorf("upsert district %q: %w", item.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	cache.InvalidateDistricts(ctx)
	middleware.Logger.InfoContext(ctx, "districts seeded", "count", len(list))
	return len(list), nil
}
