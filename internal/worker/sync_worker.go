// Package worker mirrors customers from the local ledger to the
// interchange spreadsheet, driven by queue messages with a pending-row
// sweep as the fallback.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"officina/internal/amqp"
	"officina/internal/sheets"
	"officina/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	sheets    sheets.CustomerWriter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, sheets sheets.CustomerWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single customer sync message. The
// message carries only the ID; the current row is read from storage so
// a stale message never exports stale data.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.CustomerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	customer, err := w.storage.CustomerByID(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get customer from storage: %w", err)
	}

	if err := w.syncCustomerToSheets(ctx, customer.ID); err != nil {
		return fmt.Errorf("sync customer to sheets: %w", err)
	}
	return nil
}

// ProcessPendingCustomers exports customers whose sync message was
// lost. It is the periodic backup behind the queue.
func (w *SyncWorker) ProcessPendingCustomers(ctx context.Context) error {
	pending, err := w.storage.PendingSyncCustomers(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending customers: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending customers", "count", len(pending))

	for _, customer := range pending {
		if err := w.syncCustomerToSheets(ctx, customer.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync customer", "id", customer.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupSyncCheck drains the pending backlog once at worker startup,
// recovering from missed messages or worker downtime. It uses a larger
// batch than the periodic sweep.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSyncCustomers(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending customers for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending customers found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending customers on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, customer := range pending {
		if err := w.syncCustomerToSheets(ctx, customer.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync customer during startup",
				"id", customer.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

func (w *SyncWorker) syncCustomerToSheets(ctx context.Context, id int64) error {
	customer, err := w.storage.CustomerByID(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("get customer: %w", err)
	}

	ref, err := w.sheets.Append(ctx, customer)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The export itself worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced customer",
		"id", id,
		"sheets_ref", ref,
		"name", customer.Name)
	return nil
}
