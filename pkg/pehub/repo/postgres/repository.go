package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/pehub/pkg/pehub"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// beginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements pehub.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var (
	_ pehub.Repository = (*Repository)(nil)
	_ pehub.Transactor = (*Repository)(nil)
)

// WithinTx runs fn inside a transaction. fn's error rolls it back.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx pehub.Repository) error) error {
	b, ok := r.db.(beginner)
	if !ok {
		return fmt.Errorf("database handle does not support transactions")
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("commit transaction", err)
	}
	return nil
}

// handlePostgresError translates constraint violations into
// *pehub.ConstraintError.
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return &pehub.ConstraintError{Kind: pehub.ConstraintDuplicate, Detail: pgErr.ConstraintName, Err: err}
		case "23503": // foreign_key_violation
			return &pehub.ConstraintError{Kind: pehub.ConstraintForeignKey, Detail: pgErr.ConstraintName, Err: err}
		case "23502": // not_null_violation
			return &pehub.ConstraintError{Kind: pehub.ConstraintNotNull, Detail: pgErr.ColumnName, Err: err}
		case "42501": // insufficient_privilege
			return &pehub.ConstraintError{Kind: pehub.ConstraintPermissionDenied, Detail: pgErr.TableName, Err: err}
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required: %w", err)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// notFound maps a missing row to the given sentinel.
func (r *Repository) notFound(operation string, err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return r.handlePostgresError(operation, err)
}

func (r *Repository) exec(ctx context.Context, operation, query string, args ...interface{}) (int64, error) {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, r.handlePostgresError(operation, err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) count(ctx context.Context, operation, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, r.handlePostgresError(operation, err)
	}
	return n, nil
}

// Content operations

const contentColumns = `id, title, description, url, type, stage_id, category_id, created_by, created_at`

func scanContent(row pgx.Row) (*pehub.ContentItem, error) {
	var c pehub.ContentItem
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.URL, &c.Type,
		&c.StageID, &c.CategoryID, &c.CreatedBy, &c.CreatedAt)
	return &c, err
}

func (r *Repository) CreateContent(ctx context.Context, item *pehub.ContentItem) error {
	_, err := r.exec(ctx, "create content", `
		INSERT INTO content (`+contentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.Title, item.Description, item.URL, item.Type,
		item.StageID, item.CategoryID, item.CreatedBy, item.CreatedAt)
	return err
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*pehub.ContentItem, error) {
	item, err := scanContent(r.db.QueryRow(ctx, `SELECT `+contentColumns+` FROM content WHERE id = $1`, id))
	if err != nil {
		return nil, r.notFound("get content", err, pehub.ErrContentNotFound)
	}
	return item, nil
}

func (r *Repository) ListContent(ctx context.Context, filter pehub.ContentFilter) ([]*pehub.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE 1=1`
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("type", filter.Type)
	add("stage_id", filter.StageID)
	add("category_id", filter.CategoryID)
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list content", err)
	}
	defer rows.Close()

	result := make([]*pehub.ContentItem, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan content", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list content", err)
	}
	return result, nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, "delete content", `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return pehub.ErrContentNotFound
	}
	return nil
}

func (r *Repository) DeleteContentByCreator(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.exec(ctx, "delete content by creator", `DELETE FROM content WHERE created_by = $1`, userID)
}

func (r *Repository) CountContent(ctx context.Context) (int64, error) {
	return r.count(ctx, "count content", `SELECT COUNT(*) FROM content`)
}

// Content request operations

const requestColumns = `id, title, description, url, type, stage_id, category_id, status, user_id, admin_id, content_id, created_at`

func scanRequest(row pgx.Row) (*pehub.ContentRequest, error) {
	var c pehub.ContentRequest
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.URL, &c.Type,
		&c.StageID, &c.CategoryID, &c.Status, &c.UserID, &c.AdminID, &c.ContentID, &c.CreatedAt)
	return &c, err
}

func (r *Repository) CreateContentRequest(ctx context.Context, req *pehub.ContentRequest) error {
	_, err := r.exec(ctx, "create content request", `
		INSERT INTO content_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, req.Title, req.Description, req.URL, req.Type,
		req.StageID, req.CategoryID, req.Status, req.UserID, req.AdminID, req.ContentID, req.CreatedAt)
	return err
}

func (r *Repository) GetContentRequest(ctx context.Context, id uuid.UUID) (*pehub.ContentRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM content_requests WHERE id = $1`, id))
	if err != nil {
		return nil, r.notFound("get content request", err, pehub.ErrRequestNotFound)
	}
	return req, nil
}

func (r *Repository) ListContentRequests(ctx context.Context, filter pehub.RequestFilter) ([]*pehub.ContentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM content_requests WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.UserID != uuid.Nil {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list content requests", err)
	}
	defer rows.Close()

	result := make([]*pehub.ContentRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan content request", err)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list content requests", err)
	}
	return result, nil
}

// TransitionContentRequest is a compare-and-set on status.
func (r *Repository) TransitionContentRequest(ctx context.Context, id uuid.UUID, from, to pehub.RequestStatus, adminID uuid.UUID) error {
	n, err := r.exec(ctx, "transition content request", `
		UPDATE content_requests SET status = $3, admin_id = $4
		WHERE id = $1 AND status = $2`,
		id, from, to, adminID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetContentRequest(ctx, id); err != nil {
		return err
	}
	return pehub.ErrRequestNotPending
}

func (r *Repository) SetRequestContent(ctx context.Context, id, contentID uuid.UUID) error {
	n, err := r.exec(ctx, "set request content",
		`UPDATE content_requests SET content_id = $2 WHERE id = $1`, id, contentID)
	if err != nil {
		return err
	}
	if n == 0 {
		return pehub.ErrRequestNotFound
	}
	return nil
}

func (r *Repository) DeleteContentRequestsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.exec(ctx, "delete content requests by user", `DELETE FROM content_requests WHERE user_id = $1`, userID)
}

func (r *Repository) CountContentRequests(ctx context.Context) (int64, error) {
	return r.count(ctx, "count content requests", `SELECT COUNT(*) FROM content_requests`)
}

// Profile operations

const profileColumns = `id, email, full_name, username, avatar_url, role, created_at`

func scanProfile(row pgx.Row) (*pehub.Profile, error) {
	var p pehub.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Username, &p.AvatarURL, &p.Role, &p.CreatedAt)
	return &p, err
}

func (r *Repository) CreateProfile(ctx context.Context, p *pehub.Profile) error {
	_, err := r.exec(ctx, "create profile", `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Email, p.FullName, p.Username, p.AvatarURL, p.Role, p.CreatedAt)
	return err
}

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*pehub.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, r.notFound("get profile", err, pehub.ErrProfileNotFound)
	}
	return p, nil
}

func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (*pehub.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, r.notFound("get profile by email", err, pehub.ErrProfileNotFound)
	}
	return p, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, p *pehub.Profile) error {
	n, err := r.exec(ctx, "update profile", `
		UPDATE profiles SET email = $2, full_name = $3, username = $4, avatar_url = $5, role = $6
		WHERE id = $1`,
		p.ID, p.Email, p.FullName, p.Username, p.AvatarURL, p.Role)
	if err != nil {
		return err
	}
	if n == 0 {
		return pehub.ErrProfileNotFound
	}
	return nil
}

func (r *Repository) ListProfiles(ctx context.Context, role pehub.Role) ([]*pehub.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []interface{}
	if role != "" {
		args = append(args, role)
		query += ` WHERE role = $1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list profiles", err)
	}
	defer rows.Close()

	result := make([]*pehub.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan profile", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list profiles", err)
	}
	return result, nil
}

func (r *Repository) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, "delete profile", `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return pehub.ErrProfileNotFound
	}
	return nil
}

func (r *Repository) CountProfiles(ctx context.Context) (int64, error) {
	return r.count(ctx, "count profiles", `SELECT COUNT(*) FROM profiles`)
}

// Contact message operations

func (r *Repository) CreateMessage(ctx context.Context, m *pehub.Message) error {
	_, err := r.exec(ctx, "create message", `
		INSERT INTO messages (id, sender_name, sender_email, subject, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SenderName, m.SenderEmail, m.Subject, m.Message, m.IsRead, m.CreatedAt)
	return err
}

func (r *Repository) ListMessages(ctx context.Context) ([]*pehub.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sender_name, sender_email, subject, message, is_read, created_at
		FROM messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.handlePostgresError("list messages", err)
	}
	defer rows.Close()

	result := make([]*pehub.Message, 0)
	for rows.Next() {
		var m pehub.Message
		if err := rows.Scan(&m.ID, &m.SenderName, &m.SenderEmail, &m.Subject, &m.Message, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan message", err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list messages", err)
	}
	return result, nil
}

func (r *Repository) MarkMessageRead(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, "mark message read", `UPDATE messages SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return pehub.ErrMessageNotFound
	}
	return nil
}

// Notification operations

func (r *Repository) CreateNotification(ctx context.Context, n *pehub.Notification) error {
	_, err := r.exec(ctx, "create notification", `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.CreatedAt)
	return err
}

func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*pehub.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, r.handlePostgresError("list notifications", err)
	}
	defer rows.Close()

	result := make([]*pehub.Notification, 0)
	for rows.Next() {
		var n pehub.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan notification", err)
		}
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list notifications", err)
	}
	return result, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	n, err := r.exec(ctx, "mark notification read",
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return pehub.ErrNotificationNotFound
	}
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.exec(ctx, "mark all notifications read",
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.count(ctx, "count unread notifications",
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
}

// Chat operations

func (r *Repository) CreateChat(ctx context.Context, c *pehub.Chat) error {
	_, err := r.exec(ctx, "create chat",
		`INSERT INTO chats (id, user_id, status, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.Status, c.CreatedAt)
	return err
}

func scanChat(row pgx.Row) (*pehub.Chat, error) {
	var c pehub.Chat
	err := row.Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt)
	return &c, err
}

func (r *Repository) GetChat(ctx context.Context, id uuid.UUID) (*pehub.Chat, error) {
	c, err := scanChat(r.db.QueryRow(ctx, `SELECT id, user_id, status, created_at FROM chats WHERE id = $1`, id))
	if err != nil {
		return nil, r.notFound("get chat", err, pehub.ErrChatNotFound)
	}
	return c, nil
}

func (r *Repository) GetOpenChat(ctx context.Context, userID uuid.UUID) (*pehub.Chat, error) {
	c, err := scanChat(r.db.QueryRow(ctx, `
		SELECT id, user_id, status, created_at FROM chats
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1`, userID, pehub.ChatStatusOpen))
	if err != nil {
		return nil, r.notFound("get open chat", err, pehub.ErrChatNotFound)
	}
	return c, nil
}

func (r *Repository) ListChats(ctx context.Context) ([]*pehub.Chat, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, status, created_at FROM chats ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.handlePostgresError("list chats", err)
	}
	defer rows.Close()

	result := make([]*pehub.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan chat", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list chats", err)
	}
	return result, nil
}

func (r *Repository) CreateChatMessage(ctx context.Context, m *pehub.ChatMessage) error {
	_, err := r.exec(ctx, "create chat message", `
		INSERT INTO chat_messages (id, chat_id, sender_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ChatID, m.SenderID, m.Message, m.CreatedAt)
	return err
}

func (r *Repository) ListChatMessages(ctx context.Context, chatID uuid.UUID) ([]*pehub.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, chat_id, sender_id, message, created_at
		FROM chat_messages WHERE chat_id = $1 ORDER BY created_at ASC`, chatID)
	if err != nil {
		return nil, r.handlePostgresError("list chat messages", err)
	}
	defer rows.Close()

	result := make([]*pehub.ChatMessage, 0)
	for rows.Next() {
		var m pehub.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Message, &m.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan chat message", err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list chat messages", err)
	}
	return result, nil
}

// Calendar operations

func (r *Repository) CreateEvent(ctx context.Context, e *pehub.Event) error {
	_, err := r.exec(ctx, "create event",
		`INSERT INTO events (id, title, type, "date", created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Title, e.Type, e.Date, e.CreatedAt)
	return err
}

func (r *Repository) ListEvents(ctx context.Context) ([]*pehub.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title, type, "date", created_at FROM events ORDER BY "date" ASC`)
	if err != nil {
		return nil, r.handlePostgresError("list events", err)
	}
	defer rows.Close()

	result := make([]*pehub.Event, 0)
	for rows.Next() {
		var e pehub.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Type, &e.Date, &e.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan event", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list events", err)
	}
	return result, nil
}
