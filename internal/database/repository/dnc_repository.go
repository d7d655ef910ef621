package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

// dncCacheKey is the Redis set mirroring the do-not-call registry
const dncCacheKey = "dnc:numbers"

// DNCRepository stores the do-not-call registry in Postgres with an
// optional Redis set as a fast membership path. Redis is a cache only:
// every write goes to Postgres first and lookups fall back to it.
type DNCRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewDNCRepository(db *gorm.DB, rdb *redis.Client) *DNCRepository {
	return &DNCRepository{db: db, rdb: rdb}
}

// Add registers a canonical number, tolerating duplicates
func (r *DNCRepository) Add(phoneNumber, source string) error {
	entry := &models.DNCEntry{PhoneNumber: phoneNumber, Source: source}
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
	if err != nil {
		return err
	}
	if r.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.rdb.SAdd(ctx, dncCacheKey, phoneNumber).Err(); err != nil {
			logrus.Warnf("Failed to add %s to DNC cache: %v", phoneNumber, err)
		}
	}
	return nil
}

// Remove deletes a number from the registry
func (r *DNCRepository) Remove(phoneNumber string) error {
	if err := r.db.Delete(&models.DNCEntry{}, "phone_number = ?", phoneNumber).Error; err != nil {
		return err
	}
	if r.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.rdb.SRem(ctx, dncCacheKey, phoneNumber).Err(); err != nil {
			logrus.Warnf("Failed to remove %s from DNC cache: %v", phoneNumber, err)
		}
	}
	return nil
}

// Contains tests membership, preferring the Redis set
func (r *DNCRepository) Contains(phoneNumber string) (bool, error) {
	if r.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		member, err := r.rdb.SIsMember(ctx, dncCacheKey, phoneNumber).Result()
		if err == nil && member {
			return true, nil
		}
		// a negative or failed cache answer falls through to Postgres
	}
	var entry models.DNCEntry
	err := r.db.First(&entry, "phone_number = ?", phoneNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AllNumbers loads the full registry as a set. The expander calls this once
// per run instead of testing membership per contact. The Redis mirror is
// refreshed best-effort as a side effect.
func (r *DNCRepository) AllNumbers() (map[string]struct{}, error) {
	var numbers []string
	err := r.db.Model(&models.DNCEntry{}).Pluck("phone_number", &numbers).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		out[n] = struct{}{}
	}

	if r.rdb != nil && len(numbers) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		members := make([]interface{}, len(numbers))
		for i, n := range numbers {
			members[i] = n
		}
		if err := r.rdb.SAdd(ctx, dncCacheKey, members...).Err(); err != nil {
			logrus.Warnf("Failed to refresh DNC cache: %v", err)
		}
	}
	return out, nil
}

// List returns a page of the registry, newest first
func (r *DNCRepository) List(offset, limit int) ([]*models.DNCEntry, int64, error) {
	var total int64
	if err := r.db.Model(&models.DNCEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []*models.DNCEntry
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}
