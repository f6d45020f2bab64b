package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
)

type lobbyRow struct {
	LobbyID   string `gorm:"primaryKey;size:64"`
	Version   int    `gorm:"not null;default:0"`
	Data      string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (lobbyRow) TableName() string { return "lobby_states" }

func (r lobbyRow) state() (LobbyState, error) {
	doc := snapshot.Document{}
	if err := json.Unmarshal([]byte(r.Data), &doc); err != nil {
		return LobbyState{}, fmt.Errorf("decode lobby %s: %w", r.LobbyID, err)
	}
	return LobbyState{LobbyID: r.LobbyID, Version: r.Version, Data: doc, UpdatedAt: r.UpdatedAt}, nil
}

// PostgresStore shares lobby state between server processes. Updates take a
// row lock so the version stays strictly increasing across writers.
type PostgresStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPostgresStore(dsn string, log *zap.Logger) (*PostgresStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&lobbyRow{}); err != nil {
		return nil, fmt.Errorf("migrate lobby_states: %w", err)
	}
	log.Info("postgres store ready")
	return &PostgresStore{db: db, log: log}, nil
}

// ensure inserts an empty lobby row unless one exists already.
func ensure(tx *gorm.DB, id string) error {
	row := lobbyRow{LobbyID: id, Data: "{}", UpdatedAt: time.Now()}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *PostgresStore) Get(ctx context.Context, id string) (LobbyState, error) {
	if id == "" {
		return LobbyState{}, ErrEmptyLobbyID
	}
	db := s.db.WithContext(ctx)
	if err := ensure(db, id); err != nil {
		return LobbyState{}, fmt.Errorf("create lobby %s: %w", id, err)
	}
	var row lobbyRow
	if err := db.First(&row, "lobby_id = ?", id).Error; err != nil {
		return LobbyState{}, fmt.Errorf("load lobby %s: %w", id, err)
	}
	return row.state()
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch snapshot.Document) (LobbyState, error) {
	if id == "" {
		return LobbyState{}, ErrEmptyLobbyID
	}
	var out LobbyState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensure(tx, id); err != nil {
			return err
		}
		var row lobbyRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "lobby_id = ?", id).Error; err != nil {
			return err
		}
		current, err := row.state()
		if err != nil {
			return err
		}
		current.Data.Merge(patch)
		data, err := json.Marshal(current.Data)
		if err != nil {
			return err
		}

		row.Version++
		row.Data = string(data)
		row.UpdatedAt = time.Now()
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		out, err = row.state()
		return err
	})
	if err != nil {
		return LobbyState{}, fmt.Errorf("update lobby %s: %w", id, err)
	}
	s.log.Debug("lobby stored", zap.String("lobby", id), zap.Int("version", out.Version))
	return out, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
