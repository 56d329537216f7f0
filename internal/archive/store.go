package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

var (
	ErrNotFound = errors.New("archive: record not found")
	ErrClosed   = errors.New("archive: store closed")
)

// Store persists parsed messages in a SQLite database.
type Store struct {
	db        *sql.DB
	path      string
	now       func() time.Time
	closeOnce sync.Once
	closed    chan struct{}

	saveStmt *sql.Stmt
	getStmt  *sql.Stmt
	listStmt *sql.Stmt
}

type StoreConfig struct {
	// Path is the SQLite database file.
	Path string

	// BusyTimeout is how long a writer waits for the database lock.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

func Open(path string) (*Store, error) {
	return OpenWithConfig(StoreConfig{Path: path})
}

func OpenWithConfig(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("archive: db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		path:   cfg.Path,
		now:    time.Now,
		closed: make(chan struct{}),
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: prepare statements: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	received_at INTEGER NOT NULL,
	imsi TEXT,
	imei TEXT,
	method TEXT,
	record BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_received_at ON messages(received_at);
CREATE INDEX IF NOT EXISTS idx_messages_imsi ON messages(imsi);
`

func (s *Store) prepareStatements() error {
	var err error
	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO messages (id, received_at, imsi, imei, method, record)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.getStmt, err = s.db.Prepare(`SELECT record FROM messages WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	s.listStmt, err = s.db.Prepare(`
		SELECT record FROM messages
		ORDER BY received_at DESC, id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	return nil
}

func (s *Store) Path() string {
	return s.path
}

// Save archives msg, parsed from raw, under a fresh UUID.
func (s *Store) Save(ctx context.Context, raw string, msg aml.Message) (Record, error) {
	if s.isClosed() {
		return Record{}, ErrClosed
	}
	rec := Record{
		ID:         uuid.NewString(),
		ReceivedAt: s.now().UTC(),
		Raw:        raw,
		Message:    msg,
	}
	blob, err := EncodeRecord(rec)
	if err != nil {
		return Record{}, fmt.Errorf("archive: encode %s: %w", rec.ID, err)
	}
	var method *string
	if msg.PositionMethod != nil {
		code := msg.PositionMethod.Code()
		method = &code
	}
	_, err = s.saveStmt.ExecContext(ctx,
		rec.ID,
		rec.ReceivedAt.UnixNano(),
		nullable(msg.IMSI),
		nullable(msg.IMEI),
		nullable(method),
		blob,
	)
	if err != nil {
		return Record{}, fmt.Errorf("archive: save %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if s.isClosed() {
		return Record{}, ErrClosed
	}
	var blob []byte
	err := s.getStmt.QueryRowContext(ctx, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("archive: get %s: %w", id, err)
	}
	return DecodeRecord(blob)
}

// List returns up to limit records, newest first. A non-positive limit
// selects DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	rows, err := s.listStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("archive: list scan: %w", err)
		}
		rec, err := DecodeRecord(blob)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		for _, stmt := range []*sql.Stmt{s.saveStmt, s.getStmt, s.listStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

func (s *Store) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
