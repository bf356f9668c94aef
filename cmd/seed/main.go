package main

import (
	"context"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/config"
	"github.com/hackgods/clinic-appointment-platform/internal/db"
	"github.com/hackgods/clinic-appointment-platform/internal/logging"
	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
	"github.com/hackgods/clinic-appointment-platform/internal/specialist"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	specialists := flag.Int("specialists", 100, "number of specialists to create")
	patients := flag.Int("patients", 9000, "number of patients to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("prod", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "seed").Logger()
	logger.Info().Int("specialists", *specialists).Int("patients", *patients).Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	if err := seedSpecialists(context.Background(), logger, specialist.NewPgRepository(pool), faker, *specialists); err != nil {
		logger.Fatal().Err(err).Msg("seed specialists")
	}
	if err := seedPatients(context.Background(), logger, pool, faker, *patients); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

// randomSchedule picks two to five days between Monday and Saturday and a
// window of at least two slots inside the operating hours.
func randomSchedule(f *gofakeit.Faker) schedule.Schedule {
	var days schedule.WorkDays
	for days.Empty() || len(days.Days()) < 2 {
		for d := time.Monday; d <= time.Saturday; d++ {
			if f.Number(0, 2) == 0 {
				days = days.With(d)
			}
		}
		if len(days.Days()) > 5 {
			days = 0
		}
	}

	minStart := int(schedule.OpeningTime)
	maxStart := int(schedule.ClosingTime) - 2*int(schedule.SlotLength/time.Minute)
	start := schedule.Clock(minStart + 15*f.Number(0, (maxStart-minStart)/15))
	end := schedule.Clock(min(int(start)+60*f.Number(2, 8), int(schedule.ClosingTime)))

	return schedule.Schedule{Days: days, Hours: schedule.WorkHours{Start: start, End: end}}
}

func seedSpecialists(ctx context.Context, logger zerolog.Logger, repo *specialist.PgRepository, f *gofakeit.Faker, count int) error {
	for i := 0; i < count; i++ {
		sched := randomSchedule(f)
		spec := specialties[f.Number(0, len(specialties)-1)]
		if _, err := repo.Create(ctx, "Dr. "+f.Name(), spec, sched); err != nil {
			return err
		}
	}
	logger.Info().Int("count", count).Msg("specialists seeded")
	return nil
}

func seedPatients(ctx context.Context, logger zerolog.Logger, pool *pgxpool.Pool, f *gofakeit.Faker, count int) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (email) DO NOTHING
			`, uuid.New(), f.Name(), f.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Debug().Int("done", end).Int("total", count).Msg("patients batch committed")
	}

	logger.Info().Int("count", count).Msg("patients seeded")
	return nil
}
