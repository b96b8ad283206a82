package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/vocasync/models"
)

// lwwCondition guards the upsert so that a stale write never replaces a newer record.
const lwwCondition = "(records.stamp IS NULL OR excluded.stamp IS NULL OR records.stamp <= excluded.stamp)"

// GormStore keeps records in a single SQL table through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the records table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.StoredRecord{}); err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, path string) (*Record, error) {
	var row models.StoredRecord
	err := s.db.WithContext(ctx).Where("path = ?", path).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	rec := fromRow(row)
	return &rec, nil
}

func (s *GormStore) Children(ctx context.Context, parent string) ([]Record, error) {
	var rows []models.StoredRecord
	err := s.db.WithContext(ctx).
		Where("parent = ?", parent).
		Order("path ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", parent, err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// Apply runs every write as a conditional upsert inside one transaction. The
// database evaluates the stamp comparison against the row it is about to
// update, so the decision and the write cannot be separated by another push.
func (s *GormStore) Apply(ctx context.Context, writes []Write) ([]bool, error) {
	applied := make([]bool, len(writes))
	if len(writes) == 0 {
		return applied, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, w := range writes {
			row := models.StoredRecord{
				Path:       w.Path,
				Parent:     Parent(w.Path),
				Stamp:      w.Stamp,
				ModifiedAt: w.ModifiedAt,
				Value:      datatypes.JSON(w.Value),
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "path"}},
				DoUpdates: clause.AssignmentColumns([]string{"stamp", "modified_at", "value", "updated_at"}),
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: lwwCondition},
				}},
			}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("write %s: %w", w.Path, res.Error)
			}
			applied[i] = res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("cannot get DB instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromRow(row models.StoredRecord) Record {
	return Record{
		Path:       row.Path,
		Stamp:      row.Stamp,
		ModifiedAt: row.ModifiedAt,
		Value:      []byte(row.Value),
	}
}
