// Package db is the live tier: a gorm repository over PostgreSQL that
// implements every entity source the services consume.
//
// Missing and soft-deleted rows are reported as (nil, nil) so callers can
// tell "no such record" apart from a failing datastore.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ConnectTimeout time.Duration
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewRepository connects to PostgreSQL, retrying until cfg.ConnectTimeout
// elapses, and applies the embedded migrations.
func NewRepository(ctx context.Context, cfg *Config, logger *zap.Logger) (*Repository, error) {
	logger = logger.Named("db")

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.ConnectTimeout

	var gdb *gorm.DB
	err := backoff.RetryNotify(func() error {
		var err error
		gdb, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return sqlDB.PingContext(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("Database not reachable, retrying",
			zap.Error(err),
			zap.Duration("retry_in", next),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: gdb, logger: logger}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

// New wraps an open connection. The caller owns the schema.
func New(gdb *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{db: gdb, logger: logger.Named("db")}
}

// Migrate applies the embedded goose migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func alive(q *gorm.DB) *gorm.DB {
	return q.Where("deleted_at IS NULL")
}

func like(s string) string {
	return "%" + s + "%"
}

func whereFold(q *gorm.DB, column, value string) *gorm.DB {
	if value == "" {
		return q
	}
	return q.Where("LOWER("+column+") = LOWER(?)", value)
}

func whereEq(q *gorm.DB, column, value string) *gorm.DB {
	if value == "" {
		return q
	}
	return q.Where(column+" = ?", value)
}

// paged counts and fetches one page of q in creation order.
func paged[T any](q *gorm.DB, page models.Page) (models.Paged[T], error) {
	page = page.Normalize()
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Paged[T]{}, err
	}
	items := []T{}
	err := q.Order("created_at ASC, id ASC").Offset(page.Offset()).Limit(page.Limit).Find(&items).Error
	if err != nil {
		return models.Paged[T]{}, err
	}
	return models.Paged[T]{Items: items, Total: total, Page: page}, nil
}

func all[T any](q *gorm.DB) ([]T, error) {
	items := []T{}
	if err := q.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// matching applies match in memory. Used when a filter touches JSON columns.
func matching[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if match(it) {
			out = append(out, it)
		}
	}
	return out
}

func get[T any](ctx context.Context, db *gorm.DB, id string) (*T, error) {
	var row T
	err := alive(db.WithContext(ctx)).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func create(ctx context.Context, db *gorm.DB, row any, resource string) error {
	err := db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return e.Duplicate(resource + " already exists")
	}
	return err
}

// save writes every column except the identity and creation time.
func save(ctx context.Context, db *gorm.DB, row any, id, resource string) error {
	res := db.WithContext(ctx).Model(row).Where("id = ?", id).
		Select("*").Omit("id", "created_at").Updates(row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return e.Duplicate(resource + " already exists")
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return e.NotFound(resource)
	}
	return nil
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
