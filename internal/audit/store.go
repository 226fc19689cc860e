package audit

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/purgerelay/pkg/event"
	"github.com/nao1215/purgerelay/pkg/logger"
	"github.com/nao1215/purgerelay/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout は作成日時の保存形式。文字列比較で時系列順になるよう桁を固定する。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	// DefaultListLimit は一覧取得の既定件数。
	DefaultListLimit = 50
	// MaxListLimit は一覧取得の上限件数。
	MaxListLimit = 500
)

// Store はパージ監査イベントの永続化を担う。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// Open はSQLiteデータベースを開き、マイグレーションを適用したStoreを返す。
// dsnには "/data/purge-relay.db?_pragma=journal_mode(WAL)" や ":memory:" を指定する。
func Open(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteは単一ライターのため接続を1本に絞る。:memory: でも同じDBを参照させる
	sqlDB.SetMaxOpenConns(1)

	if _, err := migration.Run(ctx, sqlDB, migrationsFS, "migrations", log); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &Store{db: sqlDB}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Append はイベントを追記する。
func (s *Store) Append(ctx context.Context, e *event.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purge_events (id, event_type, trigger_source, request_id, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.EventType), string(e.Trigger), e.RequestID, string(e.Data),
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("イベントの追記に失敗: %w", err)
	}
	return nil
}

// ListParams は一覧取得の条件。
type ListParams struct {
	// EventType で絞り込む。空の場合は全種類。
	EventType event.Type
	// Limit は最大件数。0以下の場合はDefaultListLimit、MaxListLimitを超える場合はMaxListLimit。
	Limit int
}

// List は新しい順にイベントを返す。
func (s *Store) List(ctx context.Context, p ListParams) ([]event.Event, error) {
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	query := `SELECT id, event_type, trigger_source, request_id, data, created_at FROM purge_events`
	args := []any{}
	if p.EventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(p.EventType))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []event.Event{}
	for rows.Next() {
		var (
			e         event.Event
			eventType string
			trigger   string
			data      string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &eventType, &trigger, &e.RequestID, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗: %w", err)
		}
		e.EventType = event.Type(eventType)
		e.Trigger = event.Trigger(trigger)
		e.Data = json.RawMessage(data)
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("作成日時の解析に失敗: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
