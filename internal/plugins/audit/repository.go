package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Repository defines the data access contract for the activity log.
// All SQL lives in the concrete implementation.
type Repository interface {
	// Log inserts a new entry and sets its ID.
	Log(ctx context.Context, entry *Entry) error

	// List returns entries matching f, most recent first, plus the total
	// count for pagination.
	List(ctx context.Context, f Filter, limit, offset int) ([]Entry, int, error)

	// Stats returns aggregate counts for the page header.
	Stats(ctx context.Context) (*Stats, error)
}

// repository implements Repository with MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Log inserts a new entry. Nil details are stored as SQL NULL.
func (r *repository) Log(ctx context.Context, entry *Entry) error {
	query := `INSERT INTO activity_log (user_id, username, role, action, kind, subject, details, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling activity details: %w", err)
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.UserID, entry.Username, entry.Role, entry.Action,
		entry.Kind, entry.Subject, detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting activity entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// whereClause builds the WHERE clause and args for f.
func whereClause(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	if f.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns a page of entries ordered by most recent first.
func (r *repository) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, int, error) {
	where, args := whereClause(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting activity entries: %w", err)
	}

	query := `SELECT id, user_id, username, role, action, kind, subject, details, created_at
	          FROM activity_log` + where + `
	          ORDER BY created_at DESC, id DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing activity entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Stats computes the header counts in one pass over activity_log.
func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var last sql.NullTime

	query := `SELECT COUNT(*),
	                 COALESCE(SUM(action = ?), 0),
	                 MAX(created_at),
	                 COUNT(DISTINCT CASE WHEN created_at >= DATE_SUB(NOW(), INTERVAL 30 DAY) THEN user_id END)
	          FROM activity_log`
	if err := r.db.QueryRowContext(ctx, query, ActionUploadOrphaned).Scan(
		&stats.TotalEntries, &stats.Orphans, &last, &stats.ActiveUsers,
	); err != nil {
		return nil, fmt.Errorf("querying activity stats: %w", err)
	}
	if last.Valid {
		stats.LastActivityAt = &last.Time
	}
	return stats, nil
}

// scanRows scans activity_log rows. Expects columns: id, user_id, username,
// role, action, kind, subject, details, created_at.
func scanRows(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Username, &e.Role, &e.Action,
			&e.Kind, &e.Subject, &detailsJSON, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}

		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				// Non-fatal: keep the feed readable.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return entries, nil
}
