package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/riyaaz/core"
	appfs "github.com/trezcool/riyaaz/fs"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineMySQL    = "mysql"
)

var gooseRunFunc = goose.RunContext // mockable

func init() {
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
}

// DB is the application database; it runs core.DB transactions on top of sqlx.
type DB struct {
	*sqlx.DB
	Engine string
}

var _ core.DB = (*DB)(nil)

// WithinTx runs fn in a transaction, rolled back if fn returns an error or panics.
// The error returned by fn is passed through unchanged.
func (db *DB) WithinTx(ctx context.Context, opts *sql.TxOptions, fn func(tx core.DBExecutor) error) (err error) {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func dataSourceName(dbName string, admin bool, conf *core.Config) (string, error) {
	dbConf := conf.Database
	usr, pwd := dbConf.User, dbConf.Password
	if admin && dbConf.AdminUser != "" {
		usr, pwd = dbConf.AdminUser, dbConf.AdminPassword
	}

	switch dbConf.Engine {
	case EnginePostgres, "":
		sslMode := "require"
		if dbConf.DisableTLS {
			sslMode = "disable"
		}
		q := make(url.Values)
		q.Set("sslmode", sslMode)
		q.Set("timezone", "utc")

		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(usr, pwd),
			Host:     dbConf.Address(),
			Path:     dbName,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case EngineSQLite:
		q := make(url.Values)
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "busy_timeout(5000)")
		q.Set("_txlock", "immediate")
		q.Set("_time_format", "sqlite")
		return "file:" + dbConf.Path + "?" + q.Encode(), nil

	case EngineMySQL:
		cfg := mysql.NewConfig()
		cfg.User = usr
		cfg.Passwd = pwd
		cfg.Net = "tcp"
		cfg.Addr = dbConf.Address()
		cfg.DBName = dbName
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		if !dbConf.DisableTLS {
			cfg.TLSConfig = "true"
		}
		return cfg.FormatDSN(), nil

	default:
		return "", fmt.Errorf("unsupported database engine: %q", dbConf.Engine)
	}
}

func open(dbName string, admin bool, conf *core.Config) (*DB, error) {
	engine := conf.Database.Engine
	if engine == "" {
		engine = EnginePostgres
	}
	dsn, err := dataSourceName(dbName, admin, conf)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(engine, dsn)
	if err != nil {
		return nil, err
	}
	if conf.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.Database.MaxOpenConns)
	}
	return &DB{DB: db, Engine: engine}, nil
}

// Open opens the application database and waits until it is reachable.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func rowExists(ctx context.Context, db *DB, query string, args ...interface{}) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, db.Rebind(query), args...).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return exists, err
}

func createAppUser(ctx context.Context, db *DB, conf *core.Config) error {
	if conf.Database.User == "" || conf.Database.User == conf.Database.AdminUser {
		return nil
	}

	exists, err := rowExists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = ?", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createPostgresDB(ctx context.Context, conf *core.Config) error {
	// connect as admin
	admin, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()

	if err = ping(ctx, admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, admin, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	exists, err := rowExists(ctx, db, "SELECT true FROM pg_database WHERE datname = ?", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

func createMySQLDB(ctx context.Context, conf *core.Config) error {
	admin, err := open("", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()

	if err = ping(ctx, admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if _, err = admin.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", conf.Database.Name)); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// CreateIfNotExist creates the application database (and its postgres role) if missing.
// SQLite databases are created on open.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	switch conf.Database.Engine {
	case EnginePostgres, "":
		return createPostgresDB(ctx, conf)
	case EngineMySQL:
		return createMySQLDB(ctx, conf)
	default:
		return nil
	}
}

func gooseDialect(engine string) string {
	if engine == EngineSQLite {
		return "sqlite3"
	}
	return engine
}

// Migrate runs a goose command (up, down, status, redo, version, ...) with the embedded migrations.
func Migrate(ctx context.Context, db *DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(gooseDialect(db.Engine)); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	dir := path.Join("migrations", db.Engine)
	if err := gooseRunFunc(ctx, command, db.DB.DB, dir, args...); err != nil {
		return errors.Wrapf(err, "running migrations %q", command)
	}
	return nil
}
