package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kinfolio/kinfolio/internal/database"
	"github.com/kinfolio/kinfolio/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type document struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:128;column:id"`
	Data       []byte `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (document) TableName() string {
	return "documents"
}

// GormStore persists documents in a single two-column-keyed table. Each
// per-document operation runs in its own transaction, which is the only
// atomicity the store promises.
type GormStore struct {
	logger      *zap.SugaredLogger
	db          *gorm.DB
	transaction database.TransactionFunc
}

func NewGormStore(logger *zap.SugaredLogger, db *gorm.DB) (*GormStore, error) {
	transactionFunc, _, err := database.GetTransactionFunc(db)
	if err != nil {
		return nil, err
	}
	return &GormStore{
		logger:      logger,
		db:          db,
		transaction: transactionFunc,
	}, nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var doc document
	res := s.db.WithContext(ctx).First(&doc, "collection = ? AND id = ?", collection, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}
	var fields map[string]any
	if err := json.Unmarshal(doc.Data, &fields); err != nil {
		return nil, fmt.Errorf("document %s/%s is corrupt: %w", collection, id, err)
	}
	return fields, nil
}

func (s *GormStore) Upsert(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	// Two concurrent first-writers race on the insert; the loser retries and
	// takes the merge path instead.
	return util.RetryOperationForErrors(ctx, time.Millisecond*10, 1, []error{gorm.ErrDuplicatedKey}, func() error {
		return s.transaction(ctx, func(tx *gorm.DB) error {
			var doc document
			res := tx.First(&doc, "collection = ? AND id = ?", collection, id)
			if res.Error != nil {
				if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
					return res.Error
				}
				data, err := json.Marshal(fields)
				if err != nil {
					return err
				}
				if res := tx.Create(&document{
					Collection: collection,
					ID:         id,
					Data:       data,
				}); res.Error != nil {
					if database.IsDuplicateError(res.Error) {
						return gorm.ErrDuplicatedKey
					}
					return res.Error
				}
				return nil
			}

			next := fields
			if merge {
				var existing map[string]any
				if err := json.Unmarshal(doc.Data, &existing); err != nil {
					return fmt.Errorf("document %s/%s is corrupt: %w", collection, id, err)
				}
				for k, v := range fields {
					existing[k] = v
				}
				next = existing
			}
			data, err := json.Marshal(next)
			if err != nil {
				return err
			}
			return tx.Model(&document{}).
				Where("collection = ? AND id = ?", collection, id).
				Updates(map[string]any{"data": data, "updated_at": time.Now()}).Error
		})
	})
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	// Deleting zero rows is not an error, which matches the store contract
	// of absent-means-success.
	return s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&document{}).Error
}

func (s *GormStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	ids := []string{}
	res := s.db.WithContext(ctx).Model(&document{}).
		Where("collection = ?", collection).
		Order("id").
		Pluck("id", &ids)
	if res.Error != nil {
		return nil, res.Error
	}
	return ids, nil
}
