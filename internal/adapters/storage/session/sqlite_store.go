package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventportal/internal/adapters/storage"
	domain "eventportal/internal/domain/session"
)

// dateLayout is fixed width so stored timestamps compare correctly as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps sessions in the portal database.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a session store on db.
// PRE: storage.InitDB has run on db
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get returns a live session by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Session, error) {
	var sess domain.Session
	var createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, subject, email, name, created_at, expires_at FROM session WHERE id = ? AND expires_at > ?`,
		id, s.now().UTC().Format(dateLayout),
	).Scan(&sess.ID, &sess.Token, &sess.Subject, &sess.Email, &sess.Name, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	sess.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	sess.ExpiresAt, _ = time.Parse(dateLayout, expiresAt)
	sess.LoggedIn = sess.Token != ""
	return sess, nil
}

// Save upserts a session.
func (s *SQLiteStore) Save(ctx context.Context, sess domain.Session) error {
	if err := validate(sess, s.now()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, token, subject, email, name, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   token=excluded.token, subject=excluded.subject, email=excluded.email,
		   name=excluded.name, expires_at=excluded.expires_at`,
		sess.ID, sess.Token, sess.Subject, sess.Email, sess.Name,
		sess.CreatedAt.UTC().Format(dateLayout), sess.ExpiresAt.UTC().Format(dateLayout))
	return err
}

// Delete removes a session by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, id)
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Sweep deletes expired rows and returns how many were removed.
func (s *SQLiteStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE expires_at <= ?`, s.now().UTC().Format(dateLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
