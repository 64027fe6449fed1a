package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	db  *pgxpool.Pool
	log *zerolog.Logger
}

// NewPostgres constructs a Postgres store.
func NewPostgres(db *pgxpool.Pool, log *zerolog.Logger) *Postgres {
	return &Postgres{db: db, log: log}
}

// Close releases the pool.
func (s *Postgres) Close() error {
	s.db.Close()
	return nil
}

const pgEventColumns = `id, name, type, venue, description, equipment, start_time,
	registration_deadline, max_participants, current_participants, waitlist_enabled,
	quotas::text, status, club_id, creator_id, reviewed_by, reviewed_at, review_notes,
	override, created_at, updated_at`

const pgRegistrationColumns = `id, seq, event_id, user_id, category, supplementary::text,
	status, registered_at, cancelled_at, updated_at`

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent inserts a new event.
func (s *Postgres) CreateEvent(ctx context.Context, e *model.Event) error {
	quotas, err := marshalQuotas(e.Quotas)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO events (id, name, type, venue, description, equipment, start_time,
		   registration_deadline, max_participants, current_participants, waitlist_enabled,
		   quotas, status, club_id, creator_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11::jsonb, $12, $13, $14, $15, $16)`,
		e.ID, e.Name, e.Type, e.Venue, e.Description, nonNilStrings(e.Equipment), e.StartTime,
		e.RegistrationDeadline, e.MaxParticipants, e.WaitlistEnabled,
		quotas, string(e.Status), e.ClubID, e.CreatorID, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return classifyPg(err, "insert event")
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *Postgres) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanPgEvent(s.db.QueryRow(ctx,
		`SELECT `+pgEventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents returns events ordered by start time ascending.
func (s *Postgres) ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgEventColumns+` FROM events
		 WHERE ($1 = '' OR status = $1) AND ($2 = '' OR club_id = $2)
		 ORDER BY start_time ASC, id ASC`,
		string(f.Status), f.ClubID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectPgEvents(rows)
}

// UpdateEventDraft rewrites the editable fields of a draft event.
func (s *Postgres) UpdateEventDraft(ctx context.Context, e *model.Event) error {
	quotas, err := marshalQuotas(e.Quotas)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE events SET name = $1, type = $2, venue = $3, description = $4, equipment = $5,
		   start_time = $6, registration_deadline = $7, max_participants = $8,
		   waitlist_enabled = $9, quotas = $10::jsonb, updated_at = $11
		 WHERE id = $12 AND status = 'draft'`,
		e.Name, e.Type, e.Venue, e.Description, nonNilStrings(e.Equipment),
		e.StartTime, e.RegistrationDeadline, e.MaxParticipants,
		e.WaitlistEnabled, quotas, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return classifyPg(err, "update event")
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrConflict(ctx, e.ID)
	}
	return nil
}

// UpdateEventStatus performs a compare-and-set on the event status and
// records the transition in the same transaction.
func (s *Postgres) UpdateEventStatus(ctx context.Context, e *model.Event, expected model.EventStatus, tr model.Transition) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE events SET status = $1, reviewed_by = $2, reviewed_at = $3, review_notes = $4,
		   override = $5, updated_at = $6
		 WHERE id = $7 AND status = $8`,
		string(e.Status), e.ReviewedBy, e.ReviewedAt, e.ReviewNotes, e.Override, e.UpdatedAt,
		e.ID, string(expected),
	)
	if err != nil {
		return classifyPg(err, "update event status")
	}
	if tag.RowsAffected() == 0 {
		err = s.missingOrConflict(ctx, e.ID)
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO event_transitions (id, event_id, from_status, to_status, action, actor_id, notes, override, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tr.ID, tr.EventID, string(tr.From), string(tr.To), tr.Action, tr.ActorID, tr.Notes, tr.Override, tr.At,
	)
	if err != nil {
		return classifyPg(err, "insert transition")
	}

	if err = tx.Commit(ctx); err != nil {
		return classifyPg(err, "commit transaction")
	}
	return nil
}

// ListTransitions returns an event's lifecycle history, oldest first.
func (s *Postgres) ListTransitions(ctx context.Context, eventID string) ([]model.Transition, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, event_id, from_status, to_status, action, actor_id, notes, override, at
		 FROM event_transitions WHERE event_id = $1 ORDER BY at ASC, id ASC`,
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
		if err := rows.Scan(&tr.ID, &tr.EventID, &from, &to, &tr.Action, &tr.ActorID, &tr.Notes, &tr.Override, &tr.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From, tr.To = model.EventStatus(from), model.EventStatus(to)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// ListDueForCompletion returns approved events that have started.
func (s *Postgres) ListDueForCompletion(ctx context.Context, now time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgEventColumns+` FROM events
		 WHERE status = 'approved' AND start_time <= $1
		 ORDER BY start_time ASC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list due events: %w", err)
	}
	return collectPgEvents(rows)
}

func (s *Postgres) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// ─── Registrations ────────────────────────────────────────────────────────────

// FindRegistration returns the user's current row for an event.
func (s *Postgres) FindRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	reg, err := scanPgRegistration(s.db.QueryRow(ctx,
		`SELECT `+pgRegistrationColumns+` FROM registrations
		 WHERE event_id = $1 AND user_id = $2
		 ORDER BY (status <> 'cancelled') DESC, seq DESC
		 LIMIT 1`,
		eventID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

// ListRegistrations returns all registrations for an event in FCFS order.
func (s *Postgres) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgRegistrationColumns+` FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC, seq ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return collectPgRegistrations(rows)
}

// WithEventLock runs fn inside a transaction holding the event row lock.
//
// SELECT … FOR UPDATE takes a row-level exclusive lock on the event the
// moment it runs. Any other transaction asking for the same lock blocks until
// this one commits or rolls back, so every registration decision for an
// event is made against the counter and ledger as the previous writer left
// them. Two requests for the last seat therefore cannot both see it free.
func (s *Postgres) WithEventLock(ctx context.Context, eventID string, fn func(EventTx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ev, err := scanPgEvent(tx.QueryRow(ctx,
		`SELECT `+pgEventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return classifyPg(err, "lock event row")
	}

	if err = fn(&pgEventTx{tx: tx, event: *ev}); err != nil {
		return classifyPg(err, "event transaction")
	}

	if err = tx.Commit(ctx); err != nil {
		return classifyPg(err, "commit transaction")
	}
	return nil
}

type pgEventTx struct {
	tx    pgx.Tx
	event model.Event
}

func (t *pgEventTx) Event() model.Event { return t.event }

func (t *pgEventTx) FindActive(ctx context.Context, userID string) (*model.Registration, error) {
	reg, err := scanPgRegistration(t.tx.QueryRow(ctx,
		`SELECT `+pgRegistrationColumns+` FROM registrations
		 WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'`,
		t.event.ID, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active registration: %w", err)
	}
	return reg, nil
}

func (t *pgEventTx) LatestForUser(ctx context.Context, userID string) (*model.Registration, error) {
	reg, err := scanPgRegistration(t.tx.QueryRow(ctx,
		`SELECT `+pgRegistrationColumns+` FROM registrations
		 WHERE event_id = $1 AND user_id = $2
		 ORDER BY (status <> 'cancelled') DESC, seq DESC
		 LIMIT 1`,
		t.event.ID, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (t *pgEventTx) CountRegistered(ctx context.Context, category string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = $1 AND category = $2 AND status = 'registered'`,
		t.event.ID, category,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (t *pgEventTx) ConditionalIncrementCount(ctx context.Context) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events SET current_participants = current_participants + 1
		 WHERE id = $1 AND (max_participants IS NULL OR current_participants < max_participants)`,
		t.event.ID,
	)
	if err != nil {
		return false, fmt.Errorf("increment participants: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	t.event.CurrentParticipants++
	return true, nil
}

func (t *pgEventTx) DecrementCount(ctx context.Context) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events SET current_participants = current_participants - 1
		 WHERE id = $1 AND current_participants > 0`,
		t.event.ID,
	)
	if err != nil {
		return fmt.Errorf("decrement participants: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("participant count already zero for event %s", t.event.ID)
	}
	t.event.CurrentParticipants--
	return nil
}

func (t *pgEventTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	supp, err := json.Marshal(reg.Supplementary)
	if err != nil {
		return fmt.Errorf("marshal supplementary: %w", err)
	}
	err = t.tx.QueryRow(ctx,
		`INSERT INTO registrations (id, event_id, user_id, category, supplementary, status, registered_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
		 RETURNING seq`,
		reg.ID, reg.EventID, reg.UserID, reg.Category, string(supp), string(reg.Status),
		reg.RegisteredAt, reg.UpdatedAt,
	).Scan(&reg.Seq)
	if err != nil {
		return classifyPg(err, "insert registration")
	}
	return nil
}

func (t *pgEventTx) SetRegistrationStatus(ctx context.Context, reg *model.Registration, status model.RegistrationStatus, at time.Time) error {
	var cancelledAt *time.Time
	if status == model.RegistrationCancelled {
		cancelledAt = &at
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE registrations SET status = $1, cancelled_at = $2, updated_at = $3 WHERE id = $4`,
		string(status), cancelledAt, at, reg.ID,
	)
	if err != nil {
		return classifyPg(err, "update registration status")
	}
	reg.Status = status
	reg.CancelledAt = cancelledAt
	reg.UpdatedAt = at
	return nil
}

func (t *pgEventTx) Waitlisted(ctx context.Context) ([]model.Registration, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+pgRegistrationColumns+` FROM registrations
		 WHERE event_id = $1 AND status = 'waitlisted'
		 ORDER BY registered_at ASC, seq ASC`,
		t.event.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return collectPgRegistrations(rows)
}

// ─── Clubs ────────────────────────────────────────────────────────────────────

// CreateClub inserts a club.
func (s *Postgres) CreateClub(ctx context.Context, c *model.Club) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO clubs (id, name, description, status, president_id, vice_president_id,
		   faculty_coordinator_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, c.Description, string(c.Status), c.PresidentID, c.VicePresidentID,
		c.FacultyCoordinatorID, c.CreatedAt,
	)
	if err != nil {
		return classifyPg(err, "insert club")
	}
	return nil
}

// GetClub returns a club or ErrNotFound.
func (s *Postgres) GetClub(ctx context.Context, id string) (*model.Club, error) {
	var c model.Club
	var status string
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, status, president_id, vice_president_id,
		   faculty_coordinator_id, created_at
		 FROM clubs WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &status, &c.PresidentID, &c.VicePresidentID,
		&c.FacultyCoordinatorID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get club: %w", err)
	}
	c.Status = model.ClubStatus(status)
	return &c, nil
}

// ListClubs returns all clubs ordered by name.
func (s *Postgres) ListClubs(ctx context.Context) ([]model.Club, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, status, president_id, vice_president_id,
		   faculty_coordinator_id, created_at
		 FROM clubs ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	defer rows.Close()

	var clubs []model.Club
	for rows.Next() {
		var c model.Club
		var status string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &status, &c.PresidentID,
			&c.VicePresidentID, &c.FacultyCoordinatorID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		c.Status = model.ClubStatus(status)
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

// SetClubStatus activates or deactivates a club.
func (s *Postgres) SetClubStatus(ctx context.Context, id string, status model.ClubStatus) error {
	tag, err := s.db.Exec(ctx, `UPDATE clubs SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return classifyPg(err, "update club status")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateClub rewrites a club's details and officers.
func (s *Postgres) UpdateClub(ctx context.Context, c *model.Club) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE clubs SET name = $1, description = $2, president_id = $3,
		   vice_president_id = $4, faculty_coordinator_id = $5
		 WHERE id = $6`,
		c.Name, c.Description, c.PresidentID, c.VicePresidentID, c.FacultyCoordinatorID, c.ID,
	)
	if err != nil {
		return classifyPg(err, "update club")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

// CreateUser inserts an account.
func (s *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return classifyPg(err, "insert user")
	}
	return nil
}

// GetUser returns an account by id.
func (s *Postgres) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

// GetUserByEmail returns an account by its (lower-cased) email.
func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `email = $1`, email)
}

// ListUsers returns every account ordered by email.
func (s *Postgres) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users ORDER BY email ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = model.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserRole changes an account's role.
func (s *Postgres) SetUserRole(ctx context.Context, id string, role model.Role) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, string(role), id)
	if err != nil {
		return classifyPg(err, "update user role")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) getUser(ctx context.Context, where string, arg string) (*model.User, error) {
	var u model.User
	var role string
	err := s.db.QueryRow(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

// ─── Scanning helpers ─────────────────────────────────────────────────────────

func scanPgEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var quotas, status string
	if err := row.Scan(
		&e.ID, &e.Name, &e.Type, &e.Venue, &e.Description, &e.Equipment, &e.StartTime,
		&e.RegistrationDeadline, &e.MaxParticipants, &e.CurrentParticipants, &e.WaitlistEnabled,
		&quotas, &status, &e.ClubID, &e.CreatorID, &e.ReviewedBy, &e.ReviewedAt, &e.ReviewNotes,
		&e.Override, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Status = model.EventStatus(status)
	if err := unmarshalQuotas(quotas, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func collectPgEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		e, err := scanPgEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanPgRegistration(row pgx.Row) (*model.Registration, error) {
	var r model.Registration
	var supp, status string
	if err := row.Scan(
		&r.ID, &r.Seq, &r.EventID, &r.UserID, &r.Category, &supp,
		&status, &r.RegisteredAt, &r.CancelledAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Status = model.RegistrationStatus(status)
	if supp != "" {
		if err := json.Unmarshal([]byte(supp), &r.Supplementary); err != nil {
			return nil, fmt.Errorf("decode supplementary: %w", err)
		}
	}
	return &r, nil
}

func collectPgRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		r, err := scanPgRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *r)
	}
	return regs, rows.Err()
}

// classifyPg maps PostgreSQL error codes onto the application taxonomy.
// Errors that already carry a kind pass through untouched.
func classifyPg(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != "" {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Wrap(apperr.KindDuplicate, err, "%s", op)
		case "40001", "40P01", "23514":
			return apperr.Wrap(apperr.KindConflict, err, "%s", op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ Store = (*Postgres)(nil)
