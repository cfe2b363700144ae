package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	dbconfig "chatrelay/pkg/database"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// Manager implements interfaces.MessageStore on SQLite. All writes funnel
// through a single goroutine; reads run concurrently against the pool.
type Manager struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

// writeOperation represents a queued database write.
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the database and starts the writer goroutine.
func NewManager(config *dbconfig.Config) (*Manager, error) {
	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := dbconfig.ApplySQLiteOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	manager := &Manager{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine. Single
// writer keeps SQLite free of write contention under WAL.
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			op.result <- op.operation(m.db)
		case <-m.shutdown:
			log.Println("Database write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion or context
// expiry. A context deadline bounds how long a relay signal can hang on the
// store.
func (m *Manager) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("database manager is closed")
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{operation: operation, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.shutdown:
		return fmt.Errorf("database manager is shutting down")
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InsertMessage durably records a message and returns it with the assigned ID.
func (m *Manager) InsertMessage(ctx context.Context, senderID, receiverID, body string, ts time.Time) (*types.Message, error) {
	message := &types.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  ts,
	}

	err := m.executeWrite(ctx, func(db *sql.DB) error {
		query := `
			INSERT INTO messages (id, sender_id, receiver_id, body, created_at, read)
			VALUES (?, ?, ?, ?, ?, 0)
		`
		_, err := db.ExecContext(ctx, query,
			message.ID,
			message.SenderID,
			message.ReceiverID,
			message.Body,
			message.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return message, nil
}

// MarkMessageRead flips the read flag, guarded so only the addressed receiver
// can mark a message and only once. Returns (nil, nil) when no row matched.
func (m *Manager) MarkMessageRead(ctx context.Context, messageID, readerID string) (*types.Message, error) {
	readAt := time.Now()
	var affected int64

	err := m.executeWrite(ctx, func(db *sql.DB) error {
		query := `
			UPDATE messages
			SET read = 1, read_at = ?
			WHERE id = ? AND receiver_id = ? AND read = 0
		`
		res, err := db.ExecContext(ctx, query, readAt, messageID, readerID)
		if err != nil {
			return fmt.Errorf("failed to mark message read: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Unknown id, foreign message, or already read: benign no-op. Not
	// surfacing an error avoids leaking the existence of other users'
	// messages.
	if affected == 0 {
		return nil, nil
	}

	return m.getMessage(ctx, messageID)
}

// getMessage reads one message row.
func (m *Manager) getMessage(ctx context.Context, messageID string) (*types.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, body, created_at, read, read_at
		FROM messages
		WHERE id = ?
	`

	var message types.Message
	var readAt sql.NullTime

	err := m.db.QueryRowContext(ctx, query, messageID).Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Body,
		&message.CreatedAt,
		&message.Read,
		&readAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}

	if readAt.Valid {
		message.ReadAt = &readAt.Time
	}

	return &message, nil
}

// FindUserByID resolves a user ID to a user record.
func (m *Manager) FindUserByID(ctx context.Context, userID string) (*types.User, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), created_at
		FROM users
		WHERE id = ?
	`

	var user types.User
	err := m.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// CreateUser inserts a user row. The CRUD layer owns user lifecycle in
// production; this exists for seeding and tests.
func (m *Manager) CreateUser(ctx context.Context, user *types.User) error {
	return m.executeWrite(ctx, func(db *sql.DB) error {
		query := `
			INSERT INTO users (id, name, email, created_at)
			VALUES (?, ?, NULLIF(?, ''), ?)
		`
		_, err := db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
}

// HealthCheck validates database connectivity.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// GetDB returns the underlying database connection for migrations.
func (m *Manager) GetDB() *sql.DB {
	return m.db
}

// Close shuts down the writer goroutine and the connection pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
