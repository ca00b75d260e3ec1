package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// LockRecord is one named lock. ExpiresAt is unix milliseconds so expiry
// comparisons do not depend on the dialect's time encoding.
type LockRecord struct {
	Name      string `gorm:"primaryKey;size:191"`
	Token     string `gorm:"size:64;not null"`
	ExpiresAt int64  `gorm:"index;not null"`
}

// TableName overrides the default table name.
func (LockRecord) TableName() string { return "job_locks" }

// GormOption configures a GormLocker.
type GormOption func(*GormLocker)

// WithClock replaces the time source.
func WithClock(now func() time.Time) GormOption {
	return func(l *GormLocker) { l.now = now }
}

// WithGormLogger sets a custom logger.
func WithGormLogger(logger *slog.Logger) GormOption {
	return func(l *GormLocker) { l.logger = logger }
}

// GormLocker implements core.Locker with a row per lock name.
type GormLocker struct {
	db     *gorm.DB
	now    func() time.Time
	logger *slog.Logger
}

var _ core.Locker = (*GormLocker)(nil)

// NewGormLocker creates a database-backed locker.
func NewGormLocker(db *gorm.DB, opts ...GormOption) *GormLocker {
	l := &GormLocker{db: db, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Migrate creates the lock table.
func (l *GormLocker) Migrate(ctx context.Context) error {
	return l.db.WithContext(ctx).AutoMigrate(&LockRecord{})
}

// Acquire inserts the lock row, or takes over a row whose holder expired.
func (l *GormLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	now := l.now()
	rec := LockRecord{
		Name:      name,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}

	result := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "job_locks.expires_at <= ?", Vars: []any{now.UnixMilli()}},
		}},
	}).Create(&rec)
	if result.Error != nil {
		return "", false, result.Error
	}
	if result.RowsAffected == 0 {
		return "", false, nil
	}
	l.logger.Debug("lock acquired", "lock", name, "ttl", ttl)
	return rec.Token, true, nil
}

// Release deletes the lock row if token still holds it.
func (l *GormLocker) Release(ctx context.Context, name, token string) error {
	result := l.db.WithContext(ctx).
		Where("name = ? AND token = ?", name, token).
		Delete(&LockRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrLockNotHeld
	}
	return nil
}

// Held reports whether an unexpired holder exists.
func (l *GormLocker) Held(ctx context.Context, name string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&LockRecord{}).
		Where("name = ? AND expires_at > ?", name, l.now().UnixMilli()).
		Count(&count).Error
	return count > 0, err
}
