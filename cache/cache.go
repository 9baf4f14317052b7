package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/use-agent/flighttrack/config"
	"github.com/use-agent/flighttrack/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// flightRow is the GORM model for the flight_records table.
// The three lookup columns share a unique index so a key maps to one row.
type flightRow struct {
	ID               uint      `gorm:"primaryKey"`
	AirlineCode      string    `gorm:"column:airline_code;size:2;not null;uniqueIndex:idx_flight_lookup,priority:1"`
	FlightNumber     string    `gorm:"column:flight_number;size:16;not null;uniqueIndex:idx_flight_lookup,priority:2"`
	DepartureDate    string    `gorm:"column:departure_date;size:10;not null;uniqueIndex:idx_flight_lookup,priority:3"`
	Status           string    `gorm:"column:status"`
	FlightLabel      string    `gorm:"column:flight_label"`
	DepartureAirport string    `gorm:"column:departure_airport"`
	ArrivalAirport   string    `gorm:"column:arrival_airport"`
	DepartureTime    string    `gorm:"column:departure_time"`
	ArrivalTime      string    `gorm:"column:arrival_time"`
	LastUpdated      time.Time `gorm:"column:last_updated;not null"`
}

// TableName overrides the default table name.
func (flightRow) TableName() string {
	return "flight_records"
}

// Cache is the persisted lookup cache for scraped flight records.
// Records are append-only: there is no update, delete or expiry path.
// It is safe for concurrent use.
type Cache struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the configured database and migrates the schema.
// The returned Cache owns the connection; call Close when done.
func Open(cfg config.DatabaseConfig) (*Cache, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("cache: %w: %q", config.ErrUnknownDriver, cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", cfg.Driver, err)
	}

	// SQLite allows one writer; serialise through a single connection
	// instead of surfacing "database is locked" under load.
	if cfg.Driver == config.DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("cache: get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&flightRow{}); err != nil {
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}

	slog.Info("lookup cache opened", "driver", cfg.Driver)
	return &Cache{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Find returns the stored record for key, or (nil, nil) if there is none.
// If more than one row matches (rows written before the unique index
// existed), the most recently stored one wins.
func (c *Cache) Find(ctx context.Context, key models.LookupKey) (*models.FlightRecord, error) {
	var rows []flightRow
	result := c.db.WithContext(ctx).
		Where("airline_code = ?", key.AirlineCode).
		Where("flight_number = ?", key.FlightNumber).
		Where("departure_date = ?", key.DepartureDate).
		Order("id DESC").
		Limit(1).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("cache: find %s: %w", key, result.Error)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toRecord(), nil
}

// Store persists rec and returns the stored copy with its generated ID and
// LastUpdated set. If a row for the same key already exists, nothing is
// written and the existing row is returned.
func (c *Cache) Store(ctx context.Context, rec *models.FlightRecord) (*models.FlightRecord, error) {
	row := fromRecord(rec)
	row.ID = 0
	row.LastUpdated = c.now().UTC()

	result := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("cache: store %s: %w", rec.Key(), result.Error)
	}

	if result.RowsAffected == 0 {
		slog.Debug("lookup key already stored, returning existing row", "key", rec.Key().String())
		existing, err := c.Find(ctx, rec.Key())
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("cache: store %s: conflicting row vanished", rec.Key())
		}
		return existing, nil
	}

	return row.toRecord(), nil
}

func fromRecord(rec *models.FlightRecord) flightRow {
	return flightRow{
		ID:               rec.ID,
		AirlineCode:      rec.AirlineCode,
		FlightNumber:     rec.FlightNumber,
		DepartureDate:    rec.DepartureDate,
		Status:           rec.Status,
		FlightLabel:      rec.FlightLabel,
		DepartureAirport: rec.DepartureAirport,
		ArrivalAirport:   rec.ArrivalAirport,
		DepartureTime:    rec.DepartureTime,
		ArrivalTime:      rec.ArrivalTime,
		LastUpdated:      rec.LastUpdated,
	}
}

func (r *flightRow) toRecord() *models.FlightRecord {
	return &models.FlightRecord{
		ID:               r.ID,
		AirlineCode:      r.AirlineCode,
		FlightNumber:     r.FlightNumber,
		DepartureDate:    r.DepartureDate,
		Status:           r.Status,
		FlightLabel:      r.FlightLabel,
		DepartureAirport: r.DepartureAirport,
		ArrivalAirport:   r.ArrivalAirport,
		DepartureTime:    r.DepartureTime,
		ArrivalTime:      r.ArrivalTime,
		LastUpdated:      r.LastUpdated,
	}
}
