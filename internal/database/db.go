package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

type DB struct {
	conn   *sql.DB
	gorm   *gorm.DB
	dbType string
	log    *logrus.Entry
}

type Config struct {
	Type         string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	Logger       *logrus.Entry
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
			config.User, config.Password, config.Host, config.Port, config.Name)
		conn, err = sql.Open("mysql", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids "database is locked".
	if config.Type == "sqlite" {
		conn.SetMaxOpenConns(1)
	} else {
		if config.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(config.MaxOpenConns)
		}
		if config.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(config.MaxIdleConns)
		}
		conn.SetConnMaxLifetime(time.Hour)
	}

	return Wrap(conn, config.Type, config.Logger)
}

// Wrap puts GORM on top of an already open connection pool.
func Wrap(conn *sql.DB, dbType string, log *logrus.Entry) (*DB, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "sqlite":
		dialector = sqlite.Dialector{DriverName: "sqlite3", Conn: conn}
	case "postgres":
		dialector = postgres.New(postgres.Config{Conn: conn})
	case "mysql":
		dialector = mysql.New(mysql.Config{Conn: conn})
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	gdb, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &DB{conn: conn, gorm: gdb, dbType: dbType, log: log}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) GORM() *gorm.DB {
	return db.gorm
}

func (db *DB) Type() string {
	return db.dbType
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) RunMigrations() error {
	return NewMigrator(db.gorm, db.log).Run()
}
