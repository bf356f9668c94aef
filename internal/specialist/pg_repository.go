package specialist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db dbtx
}

func NewPgRepository(db dbtx) *PgRepository {
	return &PgRepository{db: db}
}

const specialistColumns = `id, name, specialty, work_days, work_start_min, work_end_min, created_at, updated_at`

func scanSpecialist(row pgx.Row) (*Specialist, error) {
	var (
		sp         Specialist
		days       []string
		start, end int
	)
	if err := row.Scan(&sp.ID, &sp.Name, &sp.Specialty, &days, &start, &end, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpecialistNotFound
		}
		return nil, err
	}

	wd, err := schedule.ParseWorkDays(days)
	if err != nil {
		return nil, fmt.Errorf("specialist %s: %w", sp.ID, err)
	}
	sp.Schedule = schedule.Schedule{
		Days:  wd,
		Hours: schedule.WorkHours{Start: schedule.Clock(start), End: schedule.Clock(end)},
	}
	return &sp, nil
}

func (r *PgRepository) GetSpecialist(ctx context.Context, id uuid.UUID) (*Specialist, error) {
	row := r.db.QueryRow(ctx, `SELECT `+specialistColumns+` FROM specialists WHERE id = $1`, id)
	return scanSpecialist(row)
}

func (r *PgRepository) ListBySpecialty(ctx context.Context, specialty string) ([]Specialist, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+specialistColumns+`
		FROM specialists
		WHERE $1 = '' OR specialty = $1
		ORDER BY name
	`, specialty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Specialist
	for rows.Next() {
		sp, err := scanSpecialist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sp)
	}
	return out, rows.Err()
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, sched schedule.Schedule) (*Specialist, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE specialists
		SET work_days = $2,
		    work_start_min = $3,
		    work_end_min = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+specialistColumns,
		id, sched.Days.Names(), int(sched.Hours.Start), int(sched.Hours.End))
	return scanSpecialist(row)
}

// Create inserts a specialist. Used by the seeder.
func (r *PgRepository) Create(ctx context.Context, name, specialty string, sched schedule.Schedule) (*Specialist, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO specialists (id, name, specialty, work_days, work_start_min, work_end_min, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+specialistColumns,
		uuid.New(), name, specialty, sched.Days.Names(), int(sched.Hours.Start), int(sched.Hours.End))
	return scanSpecialist(row)
}
