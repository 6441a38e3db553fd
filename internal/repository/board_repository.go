package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roomboard/internal/models"
)

const boardSchema = `
CREATE TABLE IF NOT EXISTS board_events (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	total_days INTEGER NOT NULL,
	room_count INTEGER NOT NULL,
	first_day DATE,
	last_day DATE,
	location TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS board_courses (
	seq SERIAL PRIMARY KEY,
	id TEXT NOT NULL,
	instructor TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	duration_days NUMERIC NOT NULL,
	topic TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS board_unavailability (
	seq SERIAL PRIMARY KEY,
	instructor TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL
);
CREATE TABLE IF NOT EXISTS board_placements (
	event_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	duration_days NUMERIC NOT NULL,
	first_day DATE,
	last_day DATE,
	room_number INTEGER,
	start_day INTEGER NOT NULL DEFAULT 0,
	draft BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (event_id, course_id)
);`

// BoardRepository persists whole-board snapshots in PostgreSQL.
type BoardRepository struct {
	db *sqlx.DB
}

// NewBoardRepository constructs the repository.
func NewBoardRepository(db *sqlx.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// EnsureSchema creates the board tables when missing.
func (r *BoardRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, boardSchema); err != nil {
		return fmt.Errorf("ensure board schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces every stored row with the snapshot in one transaction.
func (r *BoardRepository) SaveSnapshot(ctx context.Context, snapshot models.Snapshot) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin board snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"board_placements", "board_unavailability", "board_courses", "board_events"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	const insertEvent = `INSERT INTO board_events (id, name, total_days, room_count, first_day, last_day, location, notes)
VALUES (:id, :name, :total_days, :room_count, :first_day, :last_day, :location, :notes)`
	for _, event := range snapshot.Events {
		if _, err = sqlx.NamedExecContext(ctx, tx, insertEvent, event); err != nil {
			return fmt.Errorf("insert event %s: %w", event.ID, err)
		}
	}

	const insertCourse = `INSERT INTO board_courses (id, instructor, name, duration_days, topic)
VALUES (:id, :instructor, :name, :duration_days, :topic)`
	for _, course := range snapshot.Courses {
		if _, err = sqlx.NamedExecContext(ctx, tx, insertCourse, course); err != nil {
			return fmt.Errorf("insert course %s: %w", course.ID, err)
		}
	}

	const insertEntry = `INSERT INTO board_unavailability (instructor, start_date, end_date)
VALUES (:instructor, :start_date, :end_date)`
	for _, entry := range snapshot.Unavailability {
		if _, err = sqlx.NamedExecContext(ctx, tx, insertEntry, entry); err != nil {
			return fmt.Errorf("insert unavailability for %s: %w", entry.Instructor, err)
		}
	}

	const insertPlacement = `INSERT INTO board_placements (event_id, course_id, duration_days, first_day, last_day, room_number, start_day, draft)
VALUES (:event_id, :course_id, :duration_days, :first_day, :last_day, :room_number, :start_day, :draft)`
	for _, row := range snapshot.Placements {
		if _, err = sqlx.NamedExecContext(ctx, tx, insertPlacement, row); err != nil {
			return fmt.Errorf("insert placement %s@%s: %w", row.CourseID, row.EventID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit board snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored board. Courses and unavailability keep insertion order.
func (r *BoardRepository) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	var snapshot models.Snapshot

	const eventsQuery = `SELECT id, name, total_days, room_count, first_day, last_day, location, notes FROM board_events ORDER BY id`
	if err := r.db.SelectContext(ctx, &snapshot.Events, eventsQuery); err != nil {
		return models.Snapshot{}, fmt.Errorf("load events: %w", err)
	}

	const coursesQuery = `SELECT id, instructor, name, duration_days, topic FROM board_courses ORDER BY seq`
	if err := r.db.SelectContext(ctx, &snapshot.Courses, coursesQuery); err != nil {
		return models.Snapshot{}, fmt.Errorf("load courses: %w", err)
	}

	const entriesQuery = `SELECT instructor, start_date, end_date FROM board_unavailability ORDER BY seq`
	if err := r.db.SelectContext(ctx, &snapshot.Unavailability, entriesQuery); err != nil {
		return models.Snapshot{}, fmt.Errorf("load unavailability: %w", err)
	}

	const placementsQuery = `SELECT event_id, course_id, duration_days, first_day, last_day, room_number, start_day, draft FROM board_placements ORDER BY event_id, start_day, course_id`
	if err := r.db.SelectContext(ctx, &snapshot.Placements, placementsQuery); err != nil {
		return models.Snapshot{}, fmt.Errorf("load placements: %w", err)
	}

	return snapshot, nil
}
