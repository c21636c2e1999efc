package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertEventSQL = `INSERT INTO alert_events (
        id,
        venue_id,
        venue_name,
        kind,
        severity,
        message,
        payload,
        emitted_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listRecentAlertEventsSQL = `SELECT
        id,
        venue_id,
        venue_name,
        kind,
        severity,
        message,
        payload,
        emitted_at,
        created_at
    FROM alert_events
    ORDER BY emitted_at DESC
    LIMIT $1;`

	deleteAlertEventsBeforeSQL = `DELETE FROM alert_events WHERE emitted_at < $1;`

	insertSnapshotSQL = `INSERT INTO activity_snapshots (
        venue_id,
        venue_name,
        total_bids,
        bids_last_minute,
        activity_score,
        highest_bid,
        lowest_bid,
        average_bid,
        last_bid_at,
        taken_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (venue_id, taken_at) DO UPDATE
    SET
        venue_name       = EXCLUDED.venue_name,
        total_bids       = EXCLUDED.total_bids,
        bids_last_minute = EXCLUDED.bids_last_minute,
        activity_score   = EXCLUDED.activity_score,
        highest_bid      = EXCLUDED.highest_bid,
        lowest_bid       = EXCLUDED.lowest_bid,
        average_bid      = EXCLUDED.average_bid,
        last_bid_at      = EXCLUDED.last_bid_at;`

	listSnapshotsBetweenSQL = `SELECT
        venue_id,
        venue_name,
        total_bids,
        bids_last_minute,
        activity_score,
        highest_bid,
        lowest_bid,
        average_bid,
        last_bid_at,
        taken_at,
        created_at
    FROM activity_snapshots
    WHERE taken_at >= $1
      AND taken_at < $2
    ORDER BY taken_at;`

	listVenueSnapshotsBetweenSQL = `SELECT
        venue_id,
        venue_name,
        total_bids,
        bids_last_minute,
        activity_score,
        highest_bid,
        lowest_bid,
        average_bid,
        last_bid_at,
        taken_at,
        created_at
    FROM activity_snapshots
    WHERE venue_id = $1
      AND taken_at >= $2
      AND taken_at < $3
    ORDER BY taken_at;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM activity_snapshots;`
)

// AlertEventStore defines operations for alert auditing.
type AlertEventStore interface {
	InsertAlertEvent(ctx context.Context, event AlertEvent) error
	ListRecentAlertEvents(ctx context.Context, limit int) ([]AlertEvent, error)
	DeleteAlertEventsBefore(ctx context.Context, olderThan time.Time) error
}

// SnapshotStore defines operations for activity snapshot persistence.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, snapshot ActivitySnapshot) error
	ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]ActivitySnapshot, error)
	ListVenueSnapshotsBetween(ctx context.Context, venueID string, from, to time.Time) ([]ActivitySnapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
}

// Store aggregates access to alert events and activity snapshots.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlertEvent persists an alert emission.
func (s *Store) InsertAlertEvent(ctx context.Context, event AlertEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	payload := event.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	if _, execErr := pool.Exec(ctx, insertAlertEventSQL,
		id,
		event.VenueID,
		event.VenueName,
		event.Kind,
		event.Severity,
		event.Message,
		[]byte(payload),
		event.EmittedAt,
	); execErr != nil {
		return fmt.Errorf("insert alert event: %w", execErr)
	}
	return nil
}

// ListRecentAlertEvents lists the most recent alerts, newest first.
func (s *Store) ListRecentAlertEvents(ctx context.Context, limit int) ([]AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alert events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]AlertEvent, 0, limit)
	for rows.Next() {
		var event AlertEvent
		var payload []byte
		if scanErr := rows.Scan(
			&event.ID,
			&event.VenueID,
			&event.VenueName,
			&event.Kind,
			&event.Severity,
			&event.Message,
			&payload,
			&event.EmittedAt,
			&event.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		event.Payload = json.RawMessage(payload)
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// DeleteAlertEventsBefore deletes historical alert events.
func (s *Store) DeleteAlertEventsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertEventsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alert events before: %w", execErr)
	}
	return nil
}

// UpsertSnapshot persists or updates an activity snapshot.
func (s *Store) UpsertSnapshot(ctx context.Context, snapshot ActivitySnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var lowest interface{}
	if snapshot.LowestBid != nil {
		lowest = snapshot.LowestBid.String()
	}

	var lastBid interface{}
	if snapshot.LastBidTime != nil {
		lastBid = *snapshot.LastBidTime
	}

	if _, execErr := pool.Exec(ctx, insertSnapshotSQL,
		snapshot.VenueID,
		snapshot.VenueName,
		snapshot.TotalBids,
		snapshot.BidCountLastMinute,
		snapshot.ActivityScore,
		snapshot.HighestBid.String(),
		lowest,
		snapshot.AverageBid.String(),
		lastBid,
		snapshot.TakenAt,
	); execErr != nil {
		return fmt.Errorf("upsert snapshot: %w", execErr)
	}
	return nil
}

// ListSnapshotsBetween lists snapshots across all venues in a window.
func (s *Store) ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]ActivitySnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// ListVenueSnapshotsBetween lists one venue's snapshots in a window.
func (s *Store) ListVenueSnapshotsBetween(ctx context.Context, venueID string, from, to time.Time) ([]ActivitySnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listVenueSnapshotsBetweenSQL, venueID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list venue snapshots between: %w", queryErr)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

func collectSnapshots(rows pgx.Rows) ([]ActivitySnapshot, error) {
	snapshots := make([]ActivitySnapshot, 0)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

func scanSnapshot(rows pgx.Rows) (ActivitySnapshot, error) {
	var (
		venueID    string
		venueName  string
		totalBids  int64
		lastMinute int
		score      int
		highestStr string
		lowestStr  sql.NullString
		averageStr string
		lastBid    sql.NullTime
		takenAt    time.Time
		createdAt  time.Time
	)

	if err := rows.Scan(
		&venueID,
		&venueName,
		&totalBids,
		&lastMinute,
		&score,
		&highestStr,
		&lowestStr,
		&averageStr,
		&lastBid,
		&takenAt,
		&createdAt,
	); err != nil {
		return ActivitySnapshot{}, err
	}

	highest, err := decimal.NewFromString(highestStr)
	if err != nil {
		return ActivitySnapshot{}, fmt.Errorf("parse highest bid: %w", err)
	}
	average, err := decimal.NewFromString(averageStr)
	if err != nil {
		return ActivitySnapshot{}, fmt.Errorf("parse average bid: %w", err)
	}

	snapshot := ActivitySnapshot{
		VenueID:            venueID,
		VenueName:          venueName,
		TotalBids:          totalBids,
		BidCountLastMinute: lastMinute,
		ActivityScore:      score,
		HighestBid:         highest,
		AverageBid:         average,
		TakenAt:            takenAt,
		CreatedAt:          createdAt,
	}

	if lowestStr.Valid {
		lowest, convErr := decimal.NewFromString(lowestStr.String)
		if convErr != nil {
			return ActivitySnapshot{}, fmt.Errorf("parse lowest bid: %w", convErr)
		}
		snapshot.LowestBid = &lowest
	}
	if lastBid.Valid {
		t := lastBid.Time
		snapshot.LastBidTime = &t
	}

	return snapshot, nil
}
