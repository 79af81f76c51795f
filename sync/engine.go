package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
	"github.com/cmplx-xyttmt/personal-finance-tracker/remote"
)

// Engine reconciles the local replica with the remote backend: dirty
// tombstones and rows are pushed first, then rows newer than the persisted
// watermark are pulled. Concurrent calls to Sync are not supported; the
// Coordinator serializes them.
type Engine struct {
	remote   *remote.Client
	sessions remote.SessionSource
	applier  Applier
}

func NewEngine(client *remote.Client, sessions remote.SessionSource) *Engine {
	return &Engine{remote: client, sessions: sessions}
}

// Sync runs one push-then-pull cycle. Without an authenticated session it
// is a silent no-op: sync is an enhancement, the app works offline.
// Push runs first so a local edit is durably on the remote before a pull
// could reintroduce a stale copy of the same record from another device.
func (e *Engine) Sync(ctx context.Context) error {
	if e.sessions.GetSession() == nil {
		return nil
	}

	if err := e.pushDeletions(ctx); err != nil {
		return fmt.Errorf("push deletions: %w", err)
	}
	if err := e.pushUpserts(ctx); err != nil {
		return fmt.Errorf("push upserts: %w", err)
	}
	if err := e.pullChanges(ctx); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// pushDeletions propagates dirty tombstones. Tombstones are independent,
// so they are deleted remotely in parallel and a failure on one leaves
// only that one dirty for the next cycle.
func (e *Engine) pushDeletions(ctx context.Context) error {
	records, err := database.DirtyTombstones()
	if err != nil {
		return err
	}

	var wg stdsync.WaitGroup
	for _, record := range records {
		wg.Add(1)
		go func(r models.DeletedRecord) {
			defer wg.Done()
			if err := e.remote.DeleteByID(ctx, r.Table, r.ItemID); err != nil {
				log.Printf("Failed to delete %s %s remotely: %v", r.Table, r.ItemID, err)
				return
			}
			if err := database.MarkTombstoneSynced(r.ID); err != nil {
				log.Printf("Failed to mark tombstone %d synced: %v", r.ID, err)
			}
		}(record)
	}
	wg.Wait()
	return nil
}

// pushUpserts sends each table's dirty rows as one batch. A failing table
// leaves its rows dirty and fails the cycle (watermark untouched), but the
// other tables still push - their dirty sets are independent and the next
// cycle retries only what is left.
func (e *Engine) pushUpserts(ctx context.Context) error {
	var errs []error
	pushTime := time.Now().UnixMilli()

	months, err := database.DirtyMonths()
	if err != nil {
		return err
	}
	if len(months) > 0 {
		rows := make([]monthRow, len(months))
		ids := make([]string, len(months))
		for i, m := range months {
			rows[i] = monthToRow(m)
			ids[i] = m.ID
		}
		if err := e.remote.Upsert(ctx, models.TableMonths, rows); err != nil {
			errs = append(errs, err)
		} else {
			e.adoptTimestamps(ctx, models.TableMonths, ids, pushTime)
		}
	}

	budgets, err := database.DirtyBudgets()
	if err != nil {
		return err
	}
	if len(budgets) > 0 {
		rows := make([]budgetRow, len(budgets))
		ids := make([]string, len(budgets))
		for i, b := range budgets {
			rows[i] = budgetToRow(b)
			ids[i] = b.ID
		}
		if err := e.remote.Upsert(ctx, models.TableBudgets, rows); err != nil {
			errs = append(errs, err)
		} else {
			e.adoptTimestamps(ctx, models.TableBudgets, ids, pushTime)
		}
	}

	txns, err := database.DirtyTransactions()
	if err != nil {
		return err
	}
	if len(txns) > 0 {
		rows := make([]transactionRow, len(txns))
		ids := make([]string, len(txns))
		for i, t := range txns {
			rows[i] = transactionToRow(t)
			ids[i] = t.ID
		}
		if err := e.remote.Upsert(ctx, models.TableTransactions, rows); err != nil {
			errs = append(errs, err)
		} else {
			e.adoptTimestamps(ctx, models.TableTransactions, ids, pushTime)
		}
	}

	bonds, err := database.DirtyBonds()
	if err != nil {
		return err
	}
	if len(bonds) > 0 {
		rows := make([]bondRow, len(bonds))
		ids := make([]string, len(bonds))
		for i, b := range bonds {
			rows[i] = bondToRow(b)
			ids[i] = b.ID
		}
		if err := e.remote.Upsert(ctx, models.TableBonds, rows); err != nil {
			errs = append(errs, err)
		} else {
			e.adoptTimestamps(ctx, models.TableBonds, ids, pushTime)
		}
	}

	return errors.Join(errs...)
}

// adoptTimestamps clears the dirty flag of a pushed batch and adopts the
// server's updated_at, closing the race with server-side triggers that may
// rewrite it. The rows are first marked clean optimistically so a failed
// re-fetch degrades to the local push time instead of leaving them dirty.
func (e *Engine) adoptTimestamps(ctx context.Context, table string, ids []string, pushTime int64) {
	if err := database.MarkRowsSynced(table, ids, pushTime); err != nil {
		log.Printf("Failed to mark %s batch synced: %v", table, err)
		return
	}

	rows, err := e.remote.SelectByIDs(ctx, table, ids)
	if err != nil {
		log.Printf("Re-fetch of pushed %s rows failed, keeping push time: %v", table, err)
		return
	}
	for _, raw := range rows {
		id, updatedAt, err := rowStamp(raw)
		if err != nil {
			log.Printf("Skipping malformed %s row during re-fetch: %v", table, err)
			continue
		}
		if err := database.MarkRowSynced(table, id, updatedAt); err != nil {
			log.Printf("Failed to adopt timestamp for %s %s: %v", table, id, err)
		}
	}
}

// pullChanges fetches rows newer than the watermark and applies them,
// skipping any whose local counterpart is dirty. The watermark only
// advances once all four tables pulled cleanly; a partial pull keeps what
// it applied and retries the rest next cycle.
func (e *Engine) pullChanges(ctx context.Context) error {
	watermark, err := database.GetSyncState(database.WatermarkKey)
	if err != nil {
		return err
	}
	if watermark == "" {
		watermark = time.Unix(0, 0).UTC().Format(time.RFC3339)
	}
	pullStart := time.Now().UTC().Format(time.RFC3339Nano)

	var errs []error
	for _, table := range models.SyncedTables {
		rows, err := e.remote.Select(ctx, table, watermark)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, raw := range rows {
			if err := e.applier.Apply(table, raw, false); err != nil {
				if IsMalformedRow(err) {
					log.Printf("Skipping malformed %s row during pull: %v", table, err)
					continue
				}
				errs = append(errs, fmt.Errorf("apply %s: %w", table, err))
				break
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	return database.SetSyncState(database.WatermarkKey, pullStart)
}

// PullAll ignores the watermark and overwrites local rows with the remote
// copy, dirty or not. Recovery tool, not part of the steady-state cycle.
func (e *Engine) PullAll(ctx context.Context) error {
	if e.sessions.GetSession() == nil {
		return nil
	}

	for _, table := range models.SyncedTables {
		rows, err := e.remote.SelectAll(ctx, table)
		if err != nil {
			return fmt.Errorf("pull all %s: %w", table, err)
		}
		for _, raw := range rows {
			if err := e.applier.Apply(table, raw, true); err != nil {
				if IsMalformedRow(err) {
					log.Printf("Skipping malformed %s row during full pull: %v", table, err)
					continue
				}
				return fmt.Errorf("pull all %s: %w", table, err)
			}
		}
	}

	return database.SetSyncState(database.WatermarkKey, time.Now().UTC().Format(time.RFC3339Nano))
}

// MarkAllUnsynced flags every local row for re-push on the next sync.
func (e *Engine) MarkAllUnsynced() error {
	return database.MarkAllUnsynced()
}

// ResetSyncState clears the watermark and marks everything unsynced,
// composing a full resync from scratch.
func (e *Engine) ResetSyncState() error {
	if err := database.DeleteSyncState(database.WatermarkKey); err != nil {
		return err
	}
	return database.MarkAllUnsynced()
}
