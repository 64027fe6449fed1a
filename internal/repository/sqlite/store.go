// Package sqlite provides a SQLite-backed implementation of repository.Store.
//
// The database handle is limited to one connection and every transaction is
// opened IMMEDIATE, so SQLite's write lock is the per-event serialization
// point: a WithEventLock body runs with no other writer active.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// Store persists event state in SQLite.
type Store struct {
	db *sql.DB
}

// New wraps an already migrated database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const eventColumns = `id, name, type, venue, description, equipment, start_time,
	registration_deadline, max_participants, current_participants, waitlist_enabled,
	quotas, status, club_id, creator_id, reviewed_by, reviewed_at, review_notes,
	override, created_at, updated_at`

const registrationColumns = `id, seq, event_id, user_id, category, supplementary,
	status, registered_at, cancelled_at, updated_at`

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent inserts a new event.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	quotas, err := repository.EncodeQuotas(e.Quotas)
	if err != nil {
		return err
	}
	equipment, err := encodeEquipment(e.Equipment)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, name, type, venue, description, equipment, start_time,
		   registration_deadline, max_participants, current_participants, waitlist_enabled,
		   quotas, status, club_id, creator_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Type, e.Venue, e.Description, equipment, toMillis(e.StartTime),
		nullMillis(e.RegistrationDeadline), nullInt(e.MaxParticipants), e.WaitlistEnabled,
		quotas, string(e.Status), e.ClubID, e.CreatorID, toMillis(e.CreatedAt), toMillis(e.UpdatedAt),
	)
	if err != nil {
		return classify(err, "insert event")
	}
	return nil
}

// GetEvent returns a single event or repository.ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return getEvent(ctx, s.db, id)
}

func getEvent(ctx context.Context, q querier, id string) (*model.Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents returns events ordered by start time ascending.
func (s *Store) ListEvents(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE (?1 = '' OR status = ?1) AND (?2 = '' OR club_id = ?2)
		 ORDER BY start_time ASC, id ASC`,
		string(f.Status), f.ClubID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

// UpdateEventDraft rewrites the editable fields of a draft event.
func (s *Store) UpdateEventDraft(ctx context.Context, e *model.Event) error {
	quotas, err := repository.EncodeQuotas(e.Quotas)
	if err != nil {
		return err
	}
	equipment, err := encodeEquipment(e.Equipment)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET name = ?, type = ?, venue = ?, description = ?, equipment = ?,
		   start_time = ?, registration_deadline = ?, max_participants = ?,
		   waitlist_enabled = ?, quotas = ?, updated_at = ?
		 WHERE id = ? AND status = 'draft'`,
		e.Name, e.Type, e.Venue, e.Description, equipment,
		toMillis(e.StartTime), nullMillis(e.RegistrationDeadline), nullInt(e.MaxParticipants),
		e.WaitlistEnabled, quotas, toMillis(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return classify(err, "update event")
	}
	return missingOrConflict(ctx, s.db, res, e.ID)
}

// UpdateEventStatus performs a compare-and-set on the event status and
// records the transition in the same transaction.
func (s *Store) UpdateEventStatus(ctx context.Context, e *model.Event, expected model.EventStatus, tr model.Transition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE events SET status = ?, reviewed_by = ?, reviewed_at = ?, review_notes = ?,
		   override = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(e.Status), nullString(e.ReviewedBy), nullMillis(e.ReviewedAt), e.ReviewNotes,
		e.Override, toMillis(e.UpdatedAt), e.ID, string(expected),
	)
	if err != nil {
		return classify(err, "update event status")
	}
	if err := missingOrConflict(ctx, tx, res, e.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO event_transitions (id, event_id, from_status, to_status, action, actor_id, notes, override, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.EventID, string(tr.From), string(tr.To), tr.Action, tr.ActorID, tr.Notes, tr.Override, toMillis(tr.At),
	); err != nil {
		return classify(err, "insert transition")
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

// ListTransitions returns an event's lifecycle history, oldest first.
func (s *Store) ListTransitions(ctx context.Context, eventID string) ([]model.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, from_status, to_status, action, actor_id, notes, override, at
		 FROM event_transitions WHERE event_id = ? ORDER BY at ASC, rowid ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []model.Transition
	for rows.Next() {
		var tr model.Transition
		var from, to string
		var at int64
		if err := rows.Scan(&tr.ID, &tr.EventID, &from, &to, &tr.Action, &tr.ActorID, &tr.Notes, &tr.Override, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From, tr.To = model.EventStatus(from), model.EventStatus(to)
		tr.At = fromMillis(at)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// ListDueForCompletion returns approved events that have started.
func (s *Store) ListDueForCompletion(ctx context.Context, now time.Time) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status = 'approved' AND start_time <= ?
		 ORDER BY start_time ASC`,
		toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("list due events: %w", err)
	}
	return collectEvents(rows)
}

func missingOrConflict(ctx context.Context, q querier, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var found int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	return repository.ErrConflict
}

// ─── Registrations ────────────────────────────────────────────────────────────

// FindRegistration returns the user's current row for an event.
func (s *Store) FindRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	reg, err := latestForUser(ctx, s.db, eventID, userID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, repository.ErrNotFound
	}
	return reg, nil
}

func latestForUser(ctx context.Context, q querier, eventID, userID string) (*model.Registration, error) {
	reg, err := scanRegistration(q.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ? AND user_id = ?
		 ORDER BY (status <> 'cancelled') DESC, seq DESC
		 LIMIT 1`,
		eventID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

// ListRegistrations returns all registrations for an event in FCFS order.
func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ?
		 ORDER BY registered_at ASC, seq ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// WithEventLock runs fn inside an immediate transaction.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(repository.EventTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	ev, err := getEvent(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if err := fn(&eventTx{tx: tx, event: *ev}); err != nil {
		return classify(err, "event transaction")
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

type eventTx struct {
	tx    *sql.Tx
	event model.Event
}

func (t *eventTx) Event() model.Event { return t.event }

func (t *eventTx) FindActive(ctx context.Context, userID string) (*model.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ? AND user_id = ? AND status <> 'cancelled'`,
		t.event.ID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active registration: %w", err)
	}
	return reg, nil
}

func (t *eventTx) LatestForUser(ctx context.Context, userID string) (*model.Registration, error) {
	return latestForUser(ctx, t.tx, t.event.ID, userID)
}

func (t *eventTx) CountRegistered(ctx context.Context, category string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = ? AND category = ? AND status = 'registered'`,
		t.event.ID, category,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (t *eventTx) ConditionalIncrementCount(ctx context.Context) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE events SET current_participants = current_participants + 1
		 WHERE id = ? AND (max_participants IS NULL OR current_participants < max_participants)`,
		t.event.ID,
	)
	if err != nil {
		return false, fmt.Errorf("increment participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	t.event.CurrentParticipants++
	return true, nil
}

func (t *eventTx) DecrementCount(ctx context.Context) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE events SET current_participants = current_participants - 1
		 WHERE id = ? AND current_participants > 0`,
		t.event.ID,
	)
	if err != nil {
		return fmt.Errorf("decrement participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.InvalidState("participant count already zero for event %s", t.event.ID)
	}
	t.event.CurrentParticipants--
	return nil
}

func (t *eventTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	supp, err := json.Marshal(reg.Supplementary)
	if err != nil {
		return fmt.Errorf("marshal supplementary: %w", err)
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO registrations (id, event_id, user_id, category, supplementary, status, registered_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.EventID, reg.UserID, reg.Category, string(supp), string(reg.Status),
		toMillis(reg.RegisteredAt), toMillis(reg.UpdatedAt),
	)
	if err != nil {
		return classify(err, "insert registration")
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("registration seq: %w", err)
	}
	reg.Seq = seq
	return nil
}

func (t *eventTx) SetRegistrationStatus(ctx context.Context, reg *model.Registration, status model.RegistrationStatus, at time.Time) error {
	var cancelledAt *time.Time
	if status == model.RegistrationCancelled {
		cancelledAt = &at
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE registrations SET status = ?, cancelled_at = ?, updated_at = ? WHERE id = ?`,
		string(status), nullMillis(cancelledAt), toMillis(at), reg.ID,
	); err != nil {
		return classify(err, "update registration status")
	}
	reg.Status = status
	reg.CancelledAt = cancelledAt
	reg.UpdatedAt = at.UTC()
	return nil
}

func (t *eventTx) Waitlisted(ctx context.Context) ([]model.Registration, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ? AND status = 'waitlisted'
		 ORDER BY registered_at ASC, seq ASC`,
		t.event.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return collectRegistrations(rows)
}

// ─── Clubs ────────────────────────────────────────────────────────────────────

const clubColumns = `id, name, description, status, president_id, vice_president_id,
	faculty_coordinator_id, created_at`

// CreateClub inserts a club.
func (s *Store) CreateClub(ctx context.Context, c *model.Club) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clubs (`+clubColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, string(c.Status), c.PresidentID, c.VicePresidentID,
		c.FacultyCoordinatorID, toMillis(c.CreatedAt),
	)
	if err != nil {
		return classify(err, "insert club")
	}
	return nil
}

// GetClub returns a club or repository.ErrNotFound.
func (s *Store) GetClub(ctx context.Context, id string) (*model.Club, error) {
	c, err := scanClub(s.db.QueryRowContext(ctx, `SELECT `+clubColumns+` FROM clubs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get club: %w", err)
	}
	return c, nil
}

// ListClubs returns all clubs ordered by name.
func (s *Store) ListClubs(ctx context.Context) ([]model.Club, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clubColumns+` FROM clubs ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	defer rows.Close()

	var clubs []model.Club
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		clubs = append(clubs, *c)
	}
	return clubs, rows.Err()
}

// SetClubStatus activates or deactivates a club.
func (s *Store) SetClubStatus(ctx context.Context, id string, status model.ClubStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE clubs SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return classify(err, "update club status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateClub rewrites a club's details and officers.
func (s *Store) UpdateClub(ctx context.Context, c *model.Club) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clubs SET name = ?, description = ?, president_id = ?,
		   vice_president_id = ?, faculty_coordinator_id = ?
		 WHERE id = ?`,
		c.Name, c.Description, c.PresidentID, c.VicePresidentID, c.FacultyCoordinatorID, c.ID,
	)
	if err != nil {
		return classify(err, "update club")
	}
	return requireRow(res)
}

// ─── Users ────────────────────────────────────────────────────────────────────

// CreateUser inserts an account.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, toMillis(u.CreatedAt),
	)
	if err != nil {
		return classify(err, "insert user")
	}
	return nil
}

// GetUser returns an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

// GetUserByEmail returns an account by its (lower-cased) email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `email = ?`, email)
}

// ListUsers returns every account ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users ORDER BY email ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var role string
		var created int64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = model.Role(role)
		u.CreatedAt = fromMillis(created)
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserRole changes an account's role.
func (s *Store) SetUserRole(ctx context.Context, id string, role model.Role) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return classify(err, "update user role")
	}
	return requireRow(res)
}

// requireRow maps an update that touched nothing to repository.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, where, arg string) (*model.User, error) {
	var u model.User
	var role string
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// ─── Scanning helpers ─────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*model.Event, error) {
	var (
		e                            model.Event
		equipment, quotas, status    string
		start, created, updated      int64
		deadline, reviewedAt, maxPax sql.NullInt64
		reviewedBy                   sql.NullString
	)
	if err := row.Scan(
		&e.ID, &e.Name, &e.Type, &e.Venue, &e.Description, &equipment, &start,
		&deadline, &maxPax, &e.CurrentParticipants, &e.WaitlistEnabled,
		&quotas, &status, &e.ClubID, &e.CreatorID, &reviewedBy, &reviewedAt, &e.ReviewNotes,
		&e.Override, &created, &updated,
	); err != nil {
		return nil, err
	}
	e.Status = model.EventStatus(status)
	e.StartTime = fromMillis(start)
	e.RegistrationDeadline = timeFromNull(deadline)
	if maxPax.Valid {
		v := int(maxPax.Int64)
		e.MaxParticipants = &v
	}
	if reviewedBy.Valid {
		v := reviewedBy.String
		e.ReviewedBy = &v
	}
	e.ReviewedAt = timeFromNull(reviewedAt)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)

	q, err := repository.DecodeQuotas(quotas)
	if err != nil {
		return nil, err
	}
	e.Quotas = q
	if equipment != "" && equipment != "[]" {
		if err := json.Unmarshal([]byte(equipment), &e.Equipment); err != nil {
			return nil, fmt.Errorf("decode equipment: %w", err)
		}
	}
	return &e, nil
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanRegistration(row scanner) (*model.Registration, error) {
	var (
		r                   model.Registration
		supp, status        string
		registered, updated int64
		cancelled           sql.NullInt64
	)
	if err := row.Scan(
		&r.ID, &r.Seq, &r.EventID, &r.UserID, &r.Category, &supp,
		&status, &registered, &cancelled, &updated,
	); err != nil {
		return nil, err
	}
	r.Status = model.RegistrationStatus(status)
	r.RegisteredAt = fromMillis(registered)
	r.CancelledAt = timeFromNull(cancelled)
	r.UpdatedAt = fromMillis(updated)
	if supp != "" {
		if err := json.Unmarshal([]byte(supp), &r.Supplementary); err != nil {
			return nil, fmt.Errorf("decode supplementary: %w", err)
		}
	}
	return &r, nil
}

func collectRegistrations(rows *sql.Rows) ([]model.Registration, error) {
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *r)
	}
	return regs, rows.Err()
}

func scanClub(row scanner) (*model.Club, error) {
	var c model.Club
	var status string
	var created int64
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &status, &c.PresidentID,
		&c.VicePresidentID, &c.FacultyCoordinatorID, &created); err != nil {
		return nil, err
	}
	c.Status = model.ClubStatus(status)
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

func encodeEquipment(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal equipment: %w", err)
	}
	return string(b), nil
}

// classify maps SQLite result codes onto the application taxonomy.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != "" {
		return err
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch {
		case code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return apperr.Wrap(apperr.KindDuplicate, err, "%s", op)
		case code == sqlite3lib.SQLITE_CONSTRAINT_CHECK,
			code&0xff == sqlite3lib.SQLITE_BUSY, code&0xff == sqlite3lib.SQLITE_LOCKED:
			return apperr.Wrap(apperr.KindConflict, err, "%s", op)
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
		return apperr.Wrap(apperr.KindDuplicate, err, "%s", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ repository.Store = (*Store)(nil)
