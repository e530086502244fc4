package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"telecrm/pkg/utils"
)

var ErrInvalidCallID = errors.New("calls: call id required")

// Repository is the persistence contract for call events.
//
// Upsert is the only write path. It must be atomic per call id: mutate sees
// the current row (or a fresh one) and its result is stored without any
// interleaving write to the same call id.
type Repository interface {
	Upsert(ctx context.Context, callID string, mutate func(*CallEvent)) (CallEvent, error)
	Get(ctx context.Context, callID string) (CallEvent, bool, error)

	// Stats aggregates a device's events. A nil since covers all time,
	// including events with no timestamp yet; otherwise only events with
	// timestamp >= since are counted.
	Stats(ctx context.Context, deviceID string, since *time.Time) (Stats, error)

	// Recent returns up to limit events, newest timestamp first. Events with
	// no timestamp sort last.
	Recent(ctx context.Context, deviceID string, limit int) ([]CallEvent, error)
}

// PostgresRepo stores call events in call_events (see internal/migrate).
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

const eventColumns = `call_id, device_id, phone_number, call_status, duration, timestamp, recording_url,
customer_name, outcome, remarks, follow_up_date, product_quantities, need_branding,
reason_for_loss, distributor, created_at, updated_at`

func (r *PostgresRepo) Upsert(ctx context.Context, callID string, mutate func(*CallEvent)) (CallEvent, error) {
	if callID == "" {
		return CallEvent{}, ErrInvalidCallID
	}

	var out CallEvent
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		now := r.clock().UTC()

		// Make sure a row exists, then lock it to serialize concurrent phases.
		const ins = `
INSERT INTO call_events (call_id, product_quantities, created_at, updated_at)
VALUES ($1, '{}'::jsonb, $2, $2)
ON CONFLICT (call_id) DO NOTHING
`
		if _, err := tx.ExecContext(ctx, ins, callID, now); err != nil {
			return err
		}

		e, err := lockEvent(ctx, tx, callID)
		if err != nil {
			return err
		}
		mutate(&e)
		e.CallID = callID
		e.UpdatedAt = now

		if err := updateEvent(ctx, tx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return CallEvent{}, err
	}
	return out, nil
}

func lockEvent(ctx context.Context, tx *sql.Tx, callID string) (CallEvent, error) {
	q := `SELECT ` + eventColumns + `
FROM call_events
WHERE call_id = $1
FOR UPDATE
`
	return scanEvent(tx.QueryRowContext(ctx, q, callID))
}

func updateEvent(ctx context.Context, tx *sql.Tx, e CallEvent) error {
	const q = `
UPDATE call_events SET
  device_id = $2,
  phone_number = $3,
  call_status = $4,
  duration = $5,
  timestamp = $6,
  recording_url = $7,
  customer_name = $8,
  outcome = $9,
  remarks = $10,
  follow_up_date = $11,
  product_quantities = $12,
  need_branding = $13,
  reason_for_loss = $14,
  distributor = $15,
  updated_at = $16
WHERE call_id = $1
`
	pq, err := encodeQuantities(e.ProductQuantities)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, q,
		e.CallID,
		e.DeviceID,
		e.PhoneNumber,
		string(e.CallStatus),
		e.Duration,
		nullTime(e.Timestamp),
		nullString(e.RecordingURL),
		e.CustomerName,
		nullOutcome(e.Outcome),
		e.Remarks,
		nullTime(e.FollowUpDate),
		string(pq),
		e.NeedBranding,
		e.ReasonForLoss,
		e.Distributor,
		e.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, callID string) (CallEvent, bool, error) {
	q := `SELECT ` + eventColumns + `
FROM call_events
WHERE call_id = $1
`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, callID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallEvent{}, false, nil
		}
		return CallEvent{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepo) Stats(ctx context.Context, deviceID string, since *time.Time) (Stats, error) {
	const q = `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE call_status IN ('answered', 'outgoing')),
  COUNT(*) FILTER (WHERE call_status IN ('missed', 'rejected', 'incoming', 'blocked')),
  COALESCE(SUM(duration), 0),
  COUNT(*) FILTER (WHERE call_status IN ('answered', 'outgoing') AND duration > 0),
  COALESCE(SUM(duration) FILTER (WHERE call_status IN ('answered', 'outgoing') AND duration > 0), 0)
FROM call_events
WHERE device_id = $1
  AND ($2::timestamptz IS NULL OR timestamp >= $2)
`
	var s Stats
	err := r.db.QueryRowContext(ctx, q, deviceID, nullTime(since)).Scan(
		&s.Total,
		&s.Answered,
		&s.Missed,
		&s.TotalDurationSeconds,
		&s.TimedAnswered,
		&s.TimedAnsweredSeconds,
	)
	return s, err
}

func (r *PostgresRepo) Recent(ctx context.Context, deviceID string, limit int) ([]CallEvent, error) {
	if limit <= 0 {
		return []CallEvent{}, nil
	}
	q := `SELECT ` + eventColumns + `
FROM call_events
WHERE device_id = $1
ORDER BY timestamp DESC NULLS LAST, created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallEvent, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (CallEvent, error) {
	var (
		e         CallEvent
		status    string
		ts        sql.NullTime
		recording sql.NullString
		outcome   sql.NullString
		followUp  sql.NullTime
		pq        []byte
	)
	err := s.Scan(
		&e.CallID,
		&e.DeviceID,
		&e.PhoneNumber,
		&status,
		&e.Duration,
		&ts,
		&recording,
		&e.CustomerName,
		&outcome,
		&e.Remarks,
		&followUp,
		&pq,
		&e.NeedBranding,
		&e.ReasonForLoss,
		&e.Distributor,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return CallEvent{}, err
	}

	e.CallStatus = CallStatus(status)
	if ts.Valid {
		t := ts.Time.UTC()
		e.Timestamp = &t
	}
	if recording.Valid {
		e.RecordingURL = recording.String
	}
	if outcome.Valid {
		o := Outcome(outcome.String)
		e.Outcome = &o
	}
	if followUp.Valid {
		t := followUp.Time.UTC()
		e.FollowUpDate = &t
	}
	e.ProductQuantities = map[string]int{}
	if len(pq) > 0 {
		if err := json.Unmarshal(pq, &e.ProductQuantities); err != nil {
			return CallEvent{}, err
		}
	}
	return e, nil
}

func encodeQuantities(m map[string]int) ([]byte, error) {
	if m == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(m)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullOutcome(o *Outcome) sql.NullString {
	if o == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*o), Valid: true}
}
