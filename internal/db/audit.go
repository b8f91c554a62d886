package db

import (
	"context"
	"strings"
	"time"
)

// AuditLog is one recorded API request.
type AuditLog struct {
	ID            int64     `json:"id"`
	TraceID       string    `json:"trace_id"`
	Method        string    `json:"method"`
	Path          string    `json:"path"`
	Query         string    `json:"query"`
	Status        int       `json:"status"`
	DurationMS    float64   `json:"duration_ms"`
	ClientAddr    string    `json:"client_addr"`
	Authenticated bool      `json:"authenticated"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	Path   string // prefix match
	Status int    // exact, 0 = any
	Limit  int
	Offset int
}

// AuditStatistics summarizes the audit log.
type AuditStatistics struct {
	TotalRequests int            `json:"total_requests"`
	ByStatusClass map[string]int `json:"by_status_class"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	TopPaths      []PathCount    `json:"top_paths"`
}

// PathCount is one path's request count.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// InsertAuditLog records one request. created_at defaults in the schema.
func (db *DB) InsertAuditLog(ctx context.Context, a AuditLog) error {
	_, err := db.ExecContext(ctx, `INSERT INTO audit_logs
		(trace_id, method, path, query, status, duration_ms, client_addr, authenticated, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.TraceID, a.Method, a.Path, a.Query, a.Status, a.DurationMS,
		a.ClientAddr, a.Authenticated, a.Error)
	return err
}

// ListAuditLogs returns the filtered page plus the total count matching the
// filter, newest first.
func (db *DB) ListAuditLogs(f AuditFilter) ([]AuditLog, int, error) {
	var conds []string
	var args []interface{}
	if f.Path != "" {
		conds = append(conds, "path LIKE ?")
		args = append(args, f.Path+"%")
	}
	if f.Status != 0 {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(`SELECT id, trace_id, method, path, COALESCE(query, ''),
		status, duration_ms, COALESCE(client_addr, ''), authenticated,
		COALESCE(error, ''), created_at
		FROM audit_logs`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.TraceID, &a.Method, &a.Path, &a.Query,
			&a.Status, &a.DurationMS, &a.ClientAddr, &a.Authenticated,
			&a.Error, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, a)
	}
	return logs, total, rows.Err()
}

// GetAuditStatistics summarizes request volume, status classes, latency,
// and the ten most requested paths.
func (db *DB) GetAuditStatistics() (*AuditStatistics, error) {
	stats := &AuditStatistics{ByStatusClass: map[string]int{}}

	err := db.QueryRow(`SELECT COUNT(*), COALESCE(AVG(duration_ms), 0) FROM audit_logs`).
		Scan(&stats.TotalRequests, &stats.AvgDurationMS)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT (status / 100) || 'xx', COUNT(*)
		FROM audit_logs GROUP BY status / 100`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, err
		}
		stats.ByStatusClass[class] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pathRows, err := db.Query(`SELECT path, COUNT(*) AS cnt FROM audit_logs
		GROUP BY path ORDER BY cnt DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer pathRows.Close()
	for pathRows.Next() {
		var pc PathCount
		if err := pathRows.Scan(&pc.Path, &pc.Count); err != nil {
			return nil, err
		}
		stats.TopPaths = append(stats.TopPaths, pc)
	}
	return stats, pathRows.Err()
}
