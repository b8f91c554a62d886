package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tollgate-data/gantryflow/internal/db"
)

// schemaPrompt is the English schema summary given to the model. It names
// only the queryable tables and the columns an analyst would ask about.
const schemaPrompt = `You translate natural-language questions about a toll
road network into a single SQLite SELECT statement.

Tables:
- sections(section_id, section_name)
- toll_stations(toll_station_id, station_name, section_id, station_type, operation_status)
- gantries(gantry_id, gantry_name, section_id, gantry_type, direction, lane_count)
- entrance_transactions(entrance_transaction_id, pass_id, section_id, vehicle_class, entrance_time)
- exit_transactions(exit_transaction_id, pass_id, section_id, vehicle_class, axle_count,
  total_limit, total_weight, toll_money, real_money, exit_time)
- gantry_transactions(gantry_transaction_id, gantry_id, section_id, pass_id,
  transaction_time, pay_fee, discount_fee, vehicle_type, axle_count, total_weight)
- hourly_flow_rollups(section_id, hour_start, vehicle_kind, txn_count, toll_total)

Vehicle classes: coaches are '1'..'4', trucks are '11'..'16'.
Timestamps are ISO-8601 text; use strftime for bucketing. Fees in
gantry_transactions are integer fen; toll_money in exit_transactions is yuan.

Respond with JSON only, no prose:
{"sql": "...", "explanation": "...", "query_type": "...", "estimated_rows": N}`

// SQLPlan is the model's proposed query.
type SQLPlan struct {
	SQL           string `json:"sql"`
	Explanation   string `json:"explanation"`
	QueryType     string `json:"query_type"`
	EstimatedRows int    `json:"estimated_rows"`
}

// SQLResult carries an executed query's column names and row maps.
type SQLResult struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// SQLAgent turns questions into guarded SELECT statements and executes
// them read-only against the application database.
type SQLAgent struct {
	Client       *Client
	DB           *db.DB
	DefaultLimit int // injected when the statement has no LIMIT
	MaxLimit     int // hard cap on any LIMIT
}

// NewSQLAgent returns an agent with the given limits (0 means the 100/500
// defaults).
func NewSQLAgent(client *Client, database *db.DB, defaultLimit, maxLimit int) *SQLAgent {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &SQLAgent{Client: client, DB: database, DefaultLimit: defaultLimit, MaxLimit: maxLimit}
}

// Generate asks the model for a query plan and validates it through the
// guard rails. The returned plan's SQL is safe to execute.
func (a *SQLAgent) Generate(ctx context.Context, question string) (*SQLPlan, error) {
	if !a.Client.Enabled() {
		return nil, fmt.Errorf("no agent API key configured")
	}

	reply, err := a.Client.Complete(ctx, []Message{
		{Role: "system", Content: schemaPrompt},
		{Role: "user", Content: question},
	})
	if err != nil {
		return nil, err
	}

	var plan SQLPlan
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse model plan: %w", err)
	}
	if plan.SQL == "" {
		return nil, fmt.Errorf("model plan contains no sql")
	}

	guarded, err := a.GuardSQL(plan.SQL)
	if err != nil {
		return nil, err
	}
	plan.SQL = guarded
	return &plan, nil
}

var (
	denyWords = []string{
		"drop", "delete", "insert", "update", "alter", "create",
		"truncate", "replace", "pragma", "attach", "detach", "vacuum",
	}
	limitPattern = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
	wordPattern  = regexp.MustCompile(`[a-zA-Z_]+`)
)

// GuardSQL validates that the statement is a single SELECT free of DML/DDL
// keywords, and bounds its result size with a LIMIT.
func (a *SQLAgent) GuardSQL(query string) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	if strings.Contains(q, ";") {
		return "", fmt.Errorf("only a single statement is allowed")
	}

	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", fmt.Errorf("only SELECT statements are allowed")
	}

	for _, word := range wordPattern.FindAllString(strings.ToLower(q), -1) {
		for _, deny := range denyWords {
			if word == deny {
				return "", fmt.Errorf("statement contains forbidden keyword %q", deny)
			}
		}
	}

	if m := limitPattern.FindStringSubmatch(q); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return "", fmt.Errorf("invalid LIMIT value %q", m[1])
		}
		if n > a.MaxLimit {
			q = limitPattern.ReplaceAllString(q, fmt.Sprintf("LIMIT %d", a.MaxLimit))
		}
	} else {
		q = fmt.Sprintf("%s LIMIT %d", q, a.DefaultLimit)
	}

	return q, nil
}

// Execute runs an already-guarded SELECT and returns its columns and rows
// as generic maps.
func (a *SQLAgent) Execute(ctx context.Context, query string) (*SQLResult, error) {
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &SQLResult{Columns: columns, Rows: []map[string]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}
