// Package worker mirrors locally captured writes to the remote Mongo store.
// The sqlite backend records every write and publishes a sync message; this
// worker consumes those messages and replays them remotely, which is what
// makes the offline-first deployment converge once connectivity returns.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/remote"
	"fintrack/internal/storage"
	"fintrack/internal/store"
)

type SyncWorker struct {
	local  *storage.SQLiteRepository
	remote *remote.MongoStores
}

func NewSyncWorker(local *storage.SQLiteRepository, remote *remote.MongoStores) *SyncWorker {
	return &SyncWorker{
		local:  local,
		remote: remote,
	}
}

// Run consumes sync messages until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeRecordSync(ctx, func(msg *amqp.RecordSyncMessage) error {
		return w.HandleSyncMessage(ctx, msg)
	})
}

// HandleSyncMessage processes a single record sync message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"collection", msg.Collection,
		"record_id", msg.RecordID,
		"op", msg.Op)

	switch msg.Collection {
	case storage.CollectionTransactions:
		return w.syncTransaction(ctx, msg)
	case storage.CollectionCategories:
		return w.syncCategory(ctx, msg)
	default:
		// Unknown collections are dropped, not requeued forever.
		slog.WarnContext(ctx, "Ignoring sync message for unknown collection",
			"collection", msg.Collection, "record_id", msg.RecordID)
		return nil
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	if msg.Op == storage.OpDelete {
		if err := w.remote.RemoveTransaction(ctx, msg.RecordID); err != nil {
			return fmt.Errorf("remove remote transaction: %w", err)
		}
		return nil
	}

	t, err := w.local.GetTransaction(ctx, msg.RecordID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted locally after the upsert message was queued; the delete
		// message will follow.
		slog.WarnContext(ctx, "Transaction gone before sync", "record_id", msg.RecordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load local transaction: %w", err)
	}

	if err := w.remote.UpsertTransaction(ctx, t); err != nil {
		return fmt.Errorf("upsert remote transaction: %w", err)
	}
	if err := w.local.MarkTransactionSynced(ctx, t.ID); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (w *SyncWorker) syncCategory(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	if msg.Op == storage.OpDelete {
		if err := w.remote.RemoveCategory(ctx, msg.RecordID); err != nil {
			return fmt.Errorf("remove remote category: %w", err)
		}
		return nil
	}

	c, err := w.local.GetCategory(ctx, msg.RecordID)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Category gone before sync", "record_id", msg.RecordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load local category: %w", err)
	}

	if err := w.remote.UpsertCategory(ctx, c); err != nil {
		return fmt.Errorf("upsert remote category: %w", err)
	}
	return nil
}
