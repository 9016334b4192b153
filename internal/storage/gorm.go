package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// slowQueryThreshold is the duration after which a query is logged as slow
const slowQueryThreshold = 200 * time.Millisecond

// KVEntry is one row of the key-value table.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName pins the table name independent of gorm's pluralization.
func (KVEntry) TableName() string { return "kv_entries" }

// TableName pins the table name independent of gorm's pluralization.
func (FamilyMember) TableName() string { return "family_members" }

// GormStore implements KeyValue and FamilyStore on a SQL database.
type GormStore struct {
	DB      *gorm.DB
	dialect string
}

// Open opens the backend selected by settings. The memory backend returns nil and
// the caller uses MemoryStore and MemoryFamilyStore instead.
func Open(settings *conf.StorageSettings) (*GormStore, error) {
	switch settings.Type {
	case conf.StorageSQLite:
		return OpenSQLite(settings.Path)
	case conf.StorageMySQL:
		return OpenMySQL(&settings.MySQL)
	case conf.StorageMemory:
		return nil, nil
	default:
		return nil, errors.Newf("unsupported storage type %q", settings.Type).
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// OpenSQLite opens or creates the sqlite database at path.
func OpenSQLite(path string) (*GormStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		return nil, errors.New(err).
			Component("storage").
			Category(errors.CategoryDatabase).
			Context("dialect", "sqlite").
			Context("path", path).
			Build()
	}
	return newGormStore(db, "sqlite")
}

// MySQLDSN builds the driver DSN for settings.
func MySQLDSN(settings *conf.MySQLSettings) string {
	cfg := mysql.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = settings.Host + ":" + strconv.Itoa(settings.Port)
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// OpenMySQL connects to the MySQL database described by settings.
func OpenMySQL(settings *conf.MySQLSettings) (*GormStore, error) {
	db, err := gorm.Open(gormmysql.Open(MySQLDSN(settings)), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", settings.Host),
			logger.Int("port", settings.Port),
			logger.String("database", settings.Database),
			logger.Error(err))
		return nil, errors.New(err).
			Component("storage").
			Category(errors.CategoryDatabase).
			Context("dialect", "mysql").
			Build()
	}
	return newGormStore(db, "mysql")
}

func gormLogger() *logger.GormLoggerAdapter {
	return logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold)
}

func newGormStore(db *gorm.DB, dialect string) (*GormStore, error) {
	if err := db.AutoMigrate(&KVEntry{}, &FamilyMember{}); err != nil {
		return nil, errors.New(err).
			Component("storage").
			Category(errors.CategoryDatabase).
			Context("operation", "auto-migrate").
			Context("dialect", dialect).
			Build()
	}
	GetLogger().Info("database ready", logger.String("dialect", dialect))
	return &GormStore{DB: db, dialect: dialect}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry KVEntry
	result := s.DB.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Limit(1).
		Find(&entry)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set upserts key.
func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) AddMember(ctx context.Context, owner, address, name string) (FamilyMember, error) {
	member, err := newMember(owner, address, name)
	if err != nil {
		return FamilyMember{}, err
	}
	if err := s.DB.WithContext(ctx).Create(&member).Error; err != nil {
		return FamilyMember{}, persistenceError(err, "add-family-member")
	}
	return member, nil
}

func (s *GormStore) RemoveMember(ctx context.Context, owner, id string) error {
	result := s.DB.WithContext(ctx).Where("id = ? AND owner = ?", id, owner).Delete(&FamilyMember{})
	if result.Error != nil {
		return persistenceError(result.Error, "remove-family-member")
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("storage", "family member %s not found", id)
	}
	return nil
}

func (s *GormStore) ListMembers(ctx context.Context, owner string) ([]FamilyMember, error) {
	var members []FamilyMember
	err := s.DB.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, persistenceError(err, "list-family-members")
	}
	return members, nil
}

func (s *GormStore) LookupByOwner(ctx context.Context, owner string) ([]string, error) {
	members, err := s.ListMembers(ctx, owner)
	if err != nil {
		return nil, err
	}
	return addresses(members), nil
}
