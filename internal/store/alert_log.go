package store

import (
	"database/sql"
	"fmt"
	"time"

	"nazar/internal/models"
)

// AlertLogRepository handles persistence of fired alerts.
type AlertLogRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAlertLogRepository(db *sql.DB) *AlertLogRepository {
	return &AlertLogRepository{db: db, now: time.Now}
}

// Create stores an alert. Storing the same ID twice keeps the first copy.
func (r *AlertLogRepository) Create(a models.Alert) error {
	query := `
		INSERT OR IGNORE INTO alert_log (id, source, severity, message, suggested_fix, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var fix *string
	if a.SuggestedFix != "" {
		fix = &a.SuggestedFix
	}

	_, err := r.db.Exec(query,
		a.ID,
		a.Source,
		string(a.Severity),
		a.Message,
		fix,
		a.Acknowledged,
		a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", a.ID, err)
	}
	return nil
}

// Acknowledge marks a stored alert as seen. Unknown IDs are not an error;
// the alert may predate the log.
func (r *AlertLogRepository) Acknowledge(id string) error {
	if _, err := r.db.Exec(`UPDATE alert_log SET acknowledged = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("acknowledge alert %s: %w", id, err)
	}
	return nil
}

// Recent retrieves up to limit alerts, newest first.
func (r *AlertLogRepository) Recent(limit int) ([]models.Alert, error) {
	query := `
		SELECT id, source, severity, message, suggested_fix, acknowledged, created_at
		FROM alert_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var (
			a         models.Alert
			severity  string
			fix       sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.Source, &severity, &a.Message, &fix, &a.Acknowledged, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Severity = models.Severity(severity)
		if fix.Valid {
			a.SuggestedFix = fix.String
		}
		a.CreatedAt = time.UnixMilli(createdAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DeleteOlderThan removes alerts created more than days ago.
func (r *AlertLogRepository) DeleteOlderThan(days int) (int64, error) {
	cutoff := r.now().AddDate(0, 0, -days).UnixMilli()
	result, err := r.db.Exec(`DELETE FROM alert_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	return result.RowsAffected()
}
