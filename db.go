package db

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TechXTT/fluentdao/internal/core"
	"github.com/TechXTT/fluentdao/internal/logger"
	"github.com/TechXTT/fluentdao/pkg/config"
	"github.com/TechXTT/fluentdao/pkg/dao"
	"github.com/TechXTT/fluentdao/pkg/uow"
)

// DB ties a connection pool to a unit-of-work scope and an engine that runs
// on the scope's session, or on the pool outside of one.
type DB struct {
	Conn *sqlx.DB

	scope *uow.Scope
	dao   *dao.DAO
	log   logger.Logger
}

type options struct {
	log      logger.Logger
	registry prometheus.Registerer
	hooks    dao.Hooks
}

type Option func(*options)

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRegistry registers the engine's statement metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

func WithHooks(h dao.Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// NewDB initializes a new database connection
func NewDB(ctx context.Context, driver, dataSourceName string, opts ...Option) (*DB, error) {
	conn, err := core.Connect(ctx, driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return Open(conn, opts...), nil
}

// NewFromConfig connects with cfg and applies its pool settings.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := NewDB(ctx, cfg.Driver, cfg.DSN, opts...)
	if err != nil {
		return nil, err
	}
	d.Conn.SetMaxOpenConns(cfg.MaxOpenConns)
	d.Conn.SetMaxIdleConns(cfg.MaxIdleConns)
	d.Conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return d, nil
}

// Open wraps an existing pool.
func Open(conn *sqlx.DB, opts ...Option) *DB {
	o := options{log: logger.NopLogger}
	for _, opt := range opts {
		opt(&o)
	}

	scope := uow.NewScope(conn.DriverName())
	daoOpts := []dao.Option{
		dao.WithDialect(dao.DialectFor(conn.DriverName())),
		dao.WithLogger(o.log),
		dao.WithHooks(o.hooks),
	}
	if o.registry != nil {
		daoOpts = append(daoOpts, dao.WithMetrics(dao.NewMetrics(o.registry)))
	}
	return &DB{
		Conn:  conn,
		scope: scope,
		dao:   dao.New(scope.Source(conn), daoOpts...),
		log:   o.log,
	}
}

func (db *DB) DAO() *dao.DAO {
	return db.dao
}

func (db *DB) Scope() *uow.Scope {
	return db.scope
}

// Provider opens sessions on connections from the pool.
func (db *DB) Provider() uow.Provider {
	return uow.DBProvider(db.Conn)
}

// Transactional returns a dispatcher that runs calls in a transaction on
// this DB's scope.
func (db *DB) Transactional(opts ...uow.Option) *uow.Dispatcher {
	return uow.NewTransactional(db.scope, db.Provider(), append([]uow.Option{uow.WithLogger(db.log)}, opts...)...)
}

// NonTransactional returns a dispatcher that binds a session without a
// transaction.
func (db *DB) NonTransactional(opts ...uow.Option) *uow.Dispatcher {
	return uow.NewNonTransactional(db.scope, db.Provider(), append([]uow.Option{uow.WithLogger(db.log)}, opts...)...)
}

// Query starts a fluent query over T.
func Query[T any](db *DB) *core.QueryBuilder[T] {
	return core.NewQueryBuilder[T](db.dao)
}

// Select retrieves all rows from the table corresponding to the provided struct slice
func (db *DB) Select(ctx context.Context, dest interface{}) error {
	destVal := reflect.ValueOf(dest)
	if destVal.Kind() != reflect.Ptr || destVal.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("dest must be a pointer to a slice")
	}

	sliceVal := destVal.Elem()
	elemType := sliceVal.Type().Elem()

	// Use the struct name as the table name
	tableName := dao.TableName(reflect.New(elemType).Interface())
	rows, err := db.dao.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s", tableName), nil)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	for _, row := range rows {
		elemPtr := reflect.New(elemType)
		if err := dao.MapRowInto(row, elemPtr.Interface()); err != nil {
			return fmt.Errorf("failed to map row: %w", err)
		}
		sliceVal.Set(reflect.Append(sliceVal, elemPtr.Elem()))
	}
	return nil
}

func (db *DB) Close() error {
	return db.Conn.Close()
}
