package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordRow struct {
	Address []byte `gorm:"primaryKey;column:address"`
	Kind    string `gorm:"column:kind;not null;index:idx_records_kind_poll"`
	PollID  uint32 `gorm:"column:poll_id;not null;index:idx_records_kind_poll"`
	Owner   string `gorm:"column:owner;not null"`
	Deposit uint64 `gorm:"column:deposit;not null"`
	Version uint64 `gorm:"column:version;not null"`
	Data    []byte `gorm:"column:data;not null"`
}

func (recordRow) TableName() string {
	return "records"
}

func rowFromRecord(r *Record) *recordRow {
	return &recordRow{
		Address: r.Address.Bytes(),
		Kind:    string(r.Kind),
		PollID:  r.PollID,
		Owner:   r.Owner,
		Deposit: r.Deposit,
		Version: r.Version,
		Data:    r.Data,
	}
}

func (row *recordRow) toRecord() (*Record, error) {
	addr, err := identity.AddressFromBytes(row.Address)
	if err != nil {
		return nil, err
	}
	return &Record{
		Address: addr,
		Kind:    Kind(row.Kind),
		PollID:  row.PollID,
		Owner:   row.Owner,
		Deposit: row.Deposit,
		Version: row.Version,
		Data:    row.Data,
	}, nil
}

// SQLRecordStore keeps records in one gorm managed table. A unit of work is a
// single database transaction.
type SQLRecordStore struct {
	db *gorm.DB
}

func NewSQLRecordStore(db *gorm.DB) (*SQLRecordStore, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate records table: %w", err)
	}
	return &SQLRecordStore{db: db}, nil
}

// OpenSQLiteRecordStore opens (or creates) a sqlite database at dsn.
func OpenSQLiteRecordStore(dsn string) (*SQLRecordStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}

	// sqlite allows a single writer; one connection keeps units serialized.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return NewSQLRecordStore(db)
}

func (s *SQLRecordStore) Get(ctx context.Context, addr identity.Address) (*Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("address = ?", addr.Bytes()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		logging.Log.Errorf("STORE: get %s failed: %v", addr, err)
		return nil, err
	}
	return row.toRecord()
}

func (s *SQLRecordStore) GetMany(ctx context.Context, addrs []identity.Address) (map[identity.Address]*Record, error) {
	out := make(map[identity.Address]*Record, len(addrs))
	if len(addrs) == 0 {
		return out, nil
	}

	keys := make([][]byte, 0, len(addrs))
	for _, addr := range addrs {
		keys = append(keys, addr.Bytes())
	}

	var rows []recordRow
	if err := s.db.WithContext(ctx).Where("address IN (?)", keys).Find(&rows).Error; err != nil {
		logging.Log.Errorf("STORE: get many (%d addresses) failed: %v", len(addrs), err)
		return nil, err
	}
	for i := range rows {
		r, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out[r.Address] = r
	}
	return out, nil
}

func (s *SQLRecordStore) ListByPoll(ctx context.Context, kind Kind, pollID uint32) ([]*Record, error) {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND poll_id = ?", string(kind), pollID).
		Order("address ASC").
		Find(&rows).Error
	if err != nil {
		logging.Log.Errorf("STORE: list %s for poll %d failed: %v", kind, pollID, err)
		return nil, err
	}

	out := make([]*Record, 0, len(rows))
	for i := range rows {
		r, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SQLRecordStore) Commit(ctx context.Context, batch *Batch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range batch.Ops {
			if err := applyOp(tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOp(tx *gorm.DB, op Op) error {
	r := op.Record
	switch op.Type {
	case OpCreate:
		var count int64
		if err := tx.Model(&recordRow{}).Where("address = ?", r.Address.Bytes()).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			logging.Log.Warnf("STORE: create on occupied address %s", r.Address)
			return fmt.Errorf("%w: %s", ErrRecordExists, r.Address)
		}
		row := rowFromRecord(r)
		row.Version = 0
		return tx.Create(row).Error

	case OpUpdate:
		result := tx.Model(&recordRow{}).
			Where("address = ? AND version = ?", r.Address.Bytes(), r.Version).
			Updates(map[string]any{
				"kind":    string(r.Kind),
				"poll_id": r.PollID,
				"owner":   r.Owner,
				"deposit": r.Deposit,
				"version": r.Version + 1,
				"data":    r.Data,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			logging.Log.Warnf("STORE: update on %s rejected, expected version %d", r.Address, r.Version)
			return fmt.Errorf("%w: %s", ErrConflict, r.Address)
		}
		return nil

	case OpDelete:
		result := tx.Where("address = ? AND version = ?", r.Address.Bytes(), r.Version).Delete(&recordRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			logging.Log.Warnf("STORE: delete on %s rejected, expected version %d", r.Address, r.Version)
			return fmt.Errorf("%w: %s", ErrConflict, r.Address)
		}
		return nil
	}
	return fmt.Errorf("unknown op type %d", op.Type)
}
