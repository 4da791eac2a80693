// Package cache 客户端本地消息缓存，sqlite 单文件，按频道保存最近的消息。
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/cydxin/birdchat/wire"
	_ "modernc.org/sqlite"
)

// Store 消息缓存
type Store struct {
	db *sql.DB
}

// Open 打开（或创建）缓存文件。path 为 ":memory:" 时只在内存中。
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("cache: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS messages(
		channel_url TEXT NOT NULL,
		message_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY(channel_url, message_id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(channel_url, created_at);`)
	return err
}

// Upsert 写入或覆盖一条消息。message_id 为 0 的（未发送成功）不缓存。
func (s *Store) Upsert(ctx context.Context, m wire.Message) error {
	if m.MessageID == 0 || m.ChannelURL == "" {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO messages(channel_url, message_id, created_at, payload) VALUES(?, ?, ?, ?)
		ON CONFLICT(channel_url, message_id) DO UPDATE SET created_at=excluded.created_at, payload=excluded.payload;`,
		m.ChannelURL, int64(m.MessageID), m.CreatedAt, string(b))
	return err
}

// Delete 删除一条消息
func (s *Store) Delete(ctx context.Context, channelURL string, messageID uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE channel_url=? AND message_id=?;`, channelURL, int64(messageID))
	return err
}

// DeleteChannel 删除频道的全部缓存
func (s *Store) DeleteChannel(ctx context.Context, channelURL string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE channel_url=?;`, channelURL)
	return err
}

// ListBefore 取 ts（毫秒）之前最近的 limit 条，按时间升序返回。ts<=0 表示从最新开始。
func (s *Store) ListBefore(ctx context.Context, channelURL string, ts int64, limit int) ([]wire.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT payload FROM messages WHERE channel_url=? ORDER BY created_at DESC, message_id DESC LIMIT ?;`
	args := []any{channelURL, limit}
	if ts > 0 {
		q = `SELECT payload FROM messages WHERE channel_url=? AND created_at<? ORDER BY created_at DESC, message_id DESC LIMIT ?;`
		args = []any{channelURL, ts, limit}
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wire.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var m wire.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close 关闭缓存
func (s *Store) Close() error {
	return s.db.Close()
}
