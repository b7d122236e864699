package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agisfl/realtime-client/internal/realtime"
)

// DB is the subset of pgxpool.Pool the recorder writes through.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config controls batching behavior.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	Table         string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
		Table:         "events",
	}
}

// Metrics tracks recorder activity.
type Metrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
}

// eventRow is the database form of one received envelope.
type eventRow struct {
	ReceivedAt int64 // unix micros
	Channel    string
	ServerTS   string
	Payload    []byte
}

// Recorder archives every dispatched event into a TimescaleDB hypertable.
// It subscribes to the client's wildcard channel, accumulates rows, and
// flushes on a size or interval trigger.
type Recorder struct {
	cfg       Config
	logger    *slog.Logger
	client    *realtime.Client
	db        DB
	insertSQL string

	sub realtime.Subscription

	// Batching
	batch       []eventRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates a Recorder. The client and pool are borrowed, not owned.
func New(cfg Config, client *realtime.Client, db DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.Table == "" {
		cfg.Table = def.Table
	}
	return &Recorder{
		cfg:    cfg,
		logger: logger.With("component", "recorder"),
		client: client,
		db:     db,
		insertSQL: fmt.Sprintf(
			`INSERT INTO %s (received_at, channel, server_ts, payload) VALUES ($1, $2, $3, $4)`,
			pgx.Identifier{cfg.Table}.Sanitize(),
		),
		batch: make([]eventRow, 0, cfg.BatchSize),
	}
}

// Start subscribes to the client and begins the flush loop.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.sub = r.client.On("*", func(channel string, env realtime.Envelope) {
		r.handleEnvelope(channel, env)
	})

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"table", r.cfg.Table,
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop unsubscribes, drains the flush loop, and writes the final batch.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	r.client.Off(r.sub)

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// The internal context is already cancelled; the final batch goes out
	// under the caller's context so shutdown does not drop the tail.
	r.flush(ctx)
	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// flushLoop periodically flushes the batch.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush(r.ctx)
		}
	}
}

// handleEnvelope transforms and adds one event to the batch.
func (r *Recorder) handleEnvelope(channel string, env realtime.Envelope) {
	row := r.transform(channel, env)

	r.batchMu.Lock()
	r.batch = append(r.batch, row)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush(r.ctx)
	}
}

// transform converts an envelope to an eventRow.
func (r *Recorder) transform(channel string, env realtime.Envelope) eventRow {
	return eventRow{
		ReceivedAt: time.Now().UnixMicro(),
		Channel:    channel,
		ServerTS:   env.Timestamp,
		Payload:    env.Data,
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of the current batch
	batch := r.batch
	r.batch = make([]eventRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	if err := r.batchInsert(ctx, batch); err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed events",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert writes rows using pgx.Batch.
func (r *Recorder) batchInsert(ctx context.Context, rows []eventRow) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(r.insertSQL, row.ReceivedAt, row.Channel, row.ServerTS, row.Payload)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
