// Package store persists signal rows and account snapshots. Every
// status transition is one atomic conditional UPDATE so the poll loop
// and the gateway callback context can race without resurrecting rows
// the other side already finalized.
package store

import (
	"time"

	"main/internal/model"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

// Store wraps the gorm handle with the row operations the core needs.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the trading_signals and account_info tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&model.Signal{}, &model.Account{}); err != nil {
		return errors.Wrap(err, "migrate schema")
	}
	return nil
}

// InsertPending persists a freshly received signal.
func (s *Store) InsertPending(sig *model.Signal) error {
	if sig.Volume <= 0 {
		sig.Volume = 1
	}
	sig.Status = model.StatusPending
	sig.Processed = false
	if err := s.db.Create(sig).Error; err != nil {
		return errors.Wrap(err, "insert signal")
	}
	return nil
}

// Pending returns unprocessed pending signals, oldest first.
func (s *Store) Pending() ([]model.Signal, error) {
	var out []model.Signal
	err := s.db.
		Where("processed = ? AND status = ?", false, model.StatusPending).
		Order("timestamp ASC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "select pending signals")
	}
	return out, nil
}

// PendingSymbols returns the distinct symbols with in-flight signals,
// used by the engine's periodic re-subscription pass.
func (s *Store) PendingSymbols() ([]string, error) {
	var out []string
	err := s.db.Model(&model.Signal{}).
		Distinct("symbol").
		Where("processed = ?", false).
		Pluck("symbol", &out).Error
	if err != nil {
		return nil, errors.Wrap(err, "select pending symbols")
	}
	return out, nil
}

// Filled returns filled signals in time order for PnL reconstruction.
func (s *Store) Filled() ([]model.Signal, error) {
	var out []model.Signal
	err := s.db.
		Where("status = ?", model.StatusFilled).
		Order("timestamp ASC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "select filled signals")
	}
	return out, nil
}

// Recent returns the newest rows for the read API.
func (s *Store) Recent(limit int) ([]model.Signal, error) {
	var out []model.Signal
	q := s.db.Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "select recent signals")
	}
	return out, nil
}

// Get fetches one row by id.
func (s *Store) Get(id int64) (model.Signal, error) {
	var sig model.Signal
	if err := s.db.First(&sig, id).Error; err != nil {
		return model.Signal{}, errors.Wrap(err, "select signal")
	}
	return sig, nil
}

// MarkSubmitted records a successful submission. The predicate admits
// pending and submitted so the second leg of a split close can update
// the same row; a row the loop or reconciler already finalized is left
// alone.
func (s *Store) MarkSubmitted(id int64, orderID string) (bool, error) {
	res := s.db.Model(&model.Signal{}).
		Where("id = ? AND status IN ?", id, []model.Status{model.StatusPending, model.StatusSubmitted}).
		Updates(map[string]any{
			"status":   model.StatusSubmitted,
			"order_id": orderID,
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "mark submitted")
	}
	return res.RowsAffected > 0, nil
}

// Finalize moves a row to a loop-owned terminal status (failed,
// rejected, price_invalid), stamping processed and process_time.
// Rows already terminal are never overwritten.
func (s *Store) Finalize(id int64, status model.Status, message string) (bool, error) {
	if !status.Terminal() {
		return false, errors.Errorf("finalize with non-terminal status %s", status)
	}
	now := time.Now()
	res := s.db.Model(&model.Signal{}).
		Where("id = ? AND status NOT IN ?", id, model.TerminalStatuses()).
		Updates(map[string]any{
			"status":       status,
			"processed":    true,
			"process_time": &now,
			"message":      message,
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "finalize signal")
	}
	return res.RowsAffected > 0, nil
}

// TransitionByOrderID advances the row owning an order id to the
// status mapped from a gateway callback. Terminal statuses also stamp
// processed/process_time; a terminal row is never regressed, which
// makes replayed callbacks no-ops.
func (s *Store) TransitionByOrderID(orderID string, status model.Status) (bool, error) {
	updates := map[string]any{"status": status}
	if status.Terminal() {
		now := time.Now()
		updates["processed"] = true
		updates["process_time"] = &now
	}
	res := s.db.Model(&model.Signal{}).
		Where("order_id = ? AND status NOT IN ?", orderID, model.TerminalStatuses()).
		Updates(updates)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "transition by order id")
	}
	return res.RowsAffected > 0, nil
}

// UpsertAccount keeps the single account_info row current.
func (s *Store) UpsertAccount(acc model.Account) error {
	acc.ID = 1
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Account{}).
			Where("id = ?", acc.ID).
			Updates(map[string]any{
				"balance":         acc.Balance,
				"equity":          acc.Equity,
				"available":       acc.Available,
				"position_profit": acc.PositionProfit,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Create(&acc).Error
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "upsert account")
	}
	return nil
}

// Account returns the latest snapshot.
func (s *Store) Account() (model.Account, bool, error) {
	var acc model.Account
	err := s.db.Order("timestamp DESC").First(&acc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.Account{}, false, nil
		}
		return model.Account{}, false, errors.Wrap(err, "select account")
	}
	return acc, true, nil
}

// Purge truncates both tables. Operational maintenance only; the core
// never deletes rows.
func (s *Store) Purge() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Signal{}).Error; err != nil {
			return errors.Wrap(err, "purge signals")
		}
		if err := tx.Where("1 = 1").Delete(&model.Account{}).Error; err != nil {
			return errors.Wrap(err, "purge account info")
		}
		return nil
	})
}
