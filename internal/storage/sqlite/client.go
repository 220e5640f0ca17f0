package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/storage/models"
	"github.com/bebo-assistant/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS request_log (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		session_id TEXT,
		question TEXT NOT NULL,
		answer TEXT,
		service_name TEXT NOT NULL,
		context_label TEXT,
		confidence REAL,
		strategy TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_request_log_user ON request_log(user_id);
	CREATE INDEX IF NOT EXISTS idx_request_log_service ON request_log(service_name);
	CREATE INDEX IF NOT EXISTS idx_request_log_created ON request_log(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertRequestLog(record *models.RequestLog) error {
	query := `
		INSERT INTO request_log (id, user_id, session_id, question, answer, service_name,
			context_label, confidence, strategy, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.SessionID,
		record.Question,
		record.Answer,
		record.ServiceName,
		record.ContextLabel,
		record.Confidence,
		record.Strategy,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}

	logger.Debug("Request logged",
		zap.String("request_id", record.ID),
		zap.String("service", record.ServiceName),
	)

	return nil
}

func (c *Client) GetRecentRequests(userID string, limit int) ([]models.RequestLog, error) {
	query := `
		SELECT id, user_id, session_id, question, answer, service_name,
			context_label, confidence, strategy, latency_ms, created_at
		FROM request_log
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get request log: %w", err)
	}
	defer rows.Close()

	var records []models.RequestLog
	for rows.Next() {
		var r models.RequestLog
		var createdAt int64

		err := rows.Scan(
			&r.ID, &r.UserID, &r.SessionID, &r.Question, &r.Answer, &r.ServiceName,
			&r.ContextLabel, &r.Confidence, &r.Strategy, &r.LatencyMS, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
