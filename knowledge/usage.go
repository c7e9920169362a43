package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRecord 知识条目的使用计数行。计数归外部持久化协作方所有，
// 检索侧只在高置信度命中时递增，从不读回参与排序。
type UsageRecord struct {
	ID        uint   `gorm:"primaryKey"`
	EntryID   string `gorm:"uniqueIndex;size:128"`
	Category  string `gorm:"size:64"`
	Count     int64
	UpdatedAt time.Time
}

// TableName 指定表名
func (UsageRecord) TableName() string {
	return "knowledge_usage"
}

// UsageStore 使用计数持久化
type UsageStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUsageStore 创建使用计数存储并迁移表结构
func NewUsageStore(db *gorm.DB, logger *zap.Logger) (*UsageStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&UsageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate usage table: %w", err)
	}
	return &UsageStore{
		db:     db,
		logger: logger.With(zap.String("component", "usage_store")),
	}, nil
}

// Increment 原子递增条目计数，不存在时创建
func (u *UsageStore) Increment(ctx context.Context, entryID, category string) error {
	if entryID == "" {
		return nil
	}

	record := UsageRecord{
		EntryID:   entryID,
		Category:  category,
		Count:     1,
		UpdatedAt: time.Now(),
	}
	err := u.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entry_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr("count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", entryID, err)
	}
	return nil
}

// Count 返回条目当前计数，无记录返回 0
func (u *UsageStore) Count(ctx context.Context, entryID string) (int64, error) {
	var record UsageRecord
	err := u.db.WithContext(ctx).Where("entry_id = ?", entryID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Count, nil
}
