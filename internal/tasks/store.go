package tasks

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pratik7mo/AI-TaskManagement/internal/db"
)

const taskColumns = `id, title, COALESCE(description,''), status, priority, due_date, created_at, updated_at`

// Store persists tasks. It is shared by the REST surface and every chat
// session; the database serializes concurrent mutations, so each call is
// atomic and the last write wins.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// rebind rewrites $N placeholders to ?N for the sqlite driver.
func (s *Store) rebind(query string) string {
	if s.db.Driver == db.DriverSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func (s *Store) Create(ctx context.Context, req CreateRequest) (Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Task{}, validationf("title is required")
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Task{}, validationf("invalid priority %q", priority)
	}

	now := time.Now().UTC()
	t := Task{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      StatusPending,
		Priority:    priority,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	const insert = `INSERT INTO tasks (title, description, status, priority, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if s.db.Driver == db.DriverPostgres {
		err := s.db.QueryRowContext(ctx, insert+" RETURNING id",
			t.Title, nullIfEmpty(t.Description), t.Status, t.Priority, t.DueDate, t.CreatedAt, t.UpdatedAt,
		).Scan(&t.ID)
		if err != nil {
			return Task{}, err
		}
		return t, nil
	}

	res, err := s.db.ExecContext(ctx, s.rebind(insert),
		t.Title, nullIfEmpty(t.Description), t.Status, t.Priority, t.DueDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	t.ID = int(id)
	return t, nil
}

func (s *Store) Get(ctx context.Context, id int) (Task, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = $1`), id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, &NotFoundError{ID: id}
	}
	return t, err
}

func (s *Store) List(ctx context.Context) ([]Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

func (s *Store) FilterByStatus(ctx context.Context, status Status) ([]Task, error) {
	if !status.Valid() {
		return nil, validationf("invalid status %q", status)
	}
	return s.query(ctx,
		s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY id`), status)
}

func (s *Store) FilterByPriority(ctx context.Context, priority Priority) ([]Task, error) {
	if !priority.Valid() {
		return nil, validationf("invalid priority %q", priority)
	}
	return s.query(ctx,
		s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE priority = $1 ORDER BY id`), priority)
}

// FindByTitle resolves a chat mutation that names a task instead of giving
// an id ("delete the groceries task"). First match by id order wins.
func (s *Store) FindByTitle(ctx context.Context, match string) (Task, error) {
	match = strings.TrimSpace(match)
	if match == "" {
		return Task{}, validationf("title match is required")
	}
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE LOWER(title) LIKE '%' || LOWER($1) || '%' ORDER BY id LIMIT 1`),
		match)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, &NotFoundError{Title: match}
	}
	return t, err
}

// Update merges the non-nil fields into the task and refreshes updated_at.
// One UPDATE statement keeps the merge atomic under concurrent callers;
// id and created_at are never touched.
func (s *Store) Update(ctx context.Context, id int, req UpdateRequest) (Task, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return Task{}, validationf("title must not be empty")
	}
	if req.Status != nil && !req.Status.Valid() {
		return Task{}, validationf("invalid status %q", *req.Status)
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return Task{}, validationf("invalid priority %q", *req.Priority)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE tasks SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			status      = COALESCE($4, status),
			priority    = COALESCE($5, priority),
			due_date    = COALESCE($6, due_date),
			updated_at  = $7
		WHERE id = $1`),
		id, req.Title, req.Description, req.Status, req.Priority, req.DueDate, time.Now().UTC())
	if err != nil {
		return Task{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Task{}, err
	}
	if n == 0 {
		return Task{}, &NotFoundError{ID: id}
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tasks WHERE id = $1`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (Task, error) {
	var t Task
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &due, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
