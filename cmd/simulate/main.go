package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/api"
	"github.com/hackgods/clinic-appointment-platform/internal/config"
	"github.com/hackgods/clinic-appointment-platform/internal/db"
	"github.com/hackgods/clinic-appointment-platform/internal/logging"
)

// simulate drives concurrent patients at the API so that many of them race
// for the same free slots, then checks the store never double booked.

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	TransitionRatio float64
	ReadRatio       float64
	PatientLimit    int
	SpecialistLimit int
	PostgresDSN     string
	Location        *time.Location
}

type target struct {
	SpecialistID   uuid.UUID
	SpecialistName string
	Specialty      string
	At             time.Time
}

type patient struct {
	ID   uuid.UUID
	Name string
}

type booked struct {
	ID           uuid.UUID
	SpecialistID uuid.UUID
	PatientID    uuid.UUID
}

type DataPool struct {
	Patients []patient
	Targets  []target

	mu           sync.RWMutex
	appointments []booked
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Percentiles() (p50, p95, worst time.Duration) {
	om.mu.Lock()
	sorted := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()

	if len(sorted) == 0 {
		return 0, 0, 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	at := func(pct int) time.Duration {
		return sorted[min(len(sorted)*pct/100, len(sorted)-1)]
	}
	return at(50), at(95), sorted[len(sorted)-1]
}

type Metrics struct {
	Booking      OperationMetrics
	Transition   OperationMetrics
	Availability OperationMetrics
	List         OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  zerolog.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("prod", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(baseCfg.Env, baseCfg.LogLevel).With().Str("service", "simulate").Logger()

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.pool, err = sim.loadDataPool(ctx, pgPool)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("patients", len(sim.pool.Patients)).Int("targets", len(sim.pool.Targets)).Msg("data pool loaded")

	sim.Run()
	sim.PrintReport()

	dupes, err := countDoubleBookings(context.Background(), pgPool)
	if err != nil {
		logger.Fatal().Err(err).Msg("double booking check")
	}
	fmt.Printf("Double bookings found: %d\n", dupes)
	if dupes > 0 {
		os.Exit(1)
	}
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:      getEnv("SIM_API_BASE_URL", "http://localhost:"+base.HTTPPort),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 20),
		BookingRatio:    getFloat("SIM_BOOKING_RATIO", 0.6),
		TransitionRatio: getFloat("SIM_TRANSITION_RATIO", 0.2),
		ReadRatio:       getFloat("SIM_READ_RATIO", 0.2),
		PatientLimit:    getInt("SIM_PATIENT_LIMIT", 2000),
		SpecialistLimit: getInt("SIM_SPECIALIST_LIMIT", 10),
		PostgresDSN:     base.PostgresDSN,
		Location:        base.ClinicLocation,
	}

	total := cfg.BookingRatio + cfg.TransitionRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.TransitionRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

// loadDataPool reads patients and a few specialists from Postgres and asks
// the API for their free slots. Keeping the specialist set small makes
// workers collide on the same slots.
func (s *Simulator) loadDataPool(ctx context.Context, pool *pgxpool.Pool) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id, name FROM patients LIMIT $1`, s.config.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for rows.Next() {
		var p patient
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			rows.Close()
			return nil, err
		}
		dp.Patients = append(dp.Patients, p)
	}
	rows.Close()

	rows, err = pool.Query(ctx, `SELECT id, name, specialty FROM specialists ORDER BY random() LIMIT $1`, s.config.SpecialistLimit)
	if err != nil {
		return nil, fmt.Errorf("load specialists: %w", err)
	}
	var specialists []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.SpecialistID, &t.SpecialistName, &t.Specialty); err != nil {
			rows.Close()
			return nil, err
		}
		specialists = append(specialists, t)
	}
	rows.Close()

	for _, sp := range specialists {
		slots, err := s.fetchAvailability(ctx, sp.SpecialistID)
		if err != nil {
			return nil, err
		}
		for _, at := range slots {
			t := sp
			t.At = at
			dp.Targets = append(dp.Targets, t)
		}
	}

	if len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dp.Targets) == 0 {
		return nil, fmt.Errorf("no free slots found")
	}
	return dp, nil
}

func (s *Simulator) fetchAvailability(ctx context.Context, specialistID uuid.UUID) ([]time.Time, error) {
	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/specialists/%s/availability", s.config.APIBaseURL, specialistID), nil)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability %s: %w", specialistID, err)
	}
	defer resp.Body.Close()
	s.metrics.Availability.Record(time.Since(start), resp.StatusCode)

	var body api.AvailabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}

	var out []time.Time
	for _, day := range body.Days {
		date, err := time.ParseInLocation(time.DateOnly, day.Date, s.config.Location)
		if err != nil {
			return nil, err
		}
		for _, c := range day.Slots {
			out = append(out, time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, s.config.Location))
		}
	}
	return out, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.TransitionRatio:
			s.doTransition(ctx, rng)
		default:
			s.doList(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	t := s.pool.Targets[rng.Intn(len(s.pool.Targets))]
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	actor := actorHeaders{id: p.ID, role: "patient"}

	status, body := s.send(ctx, http.MethodPost, "/appointments", actor, api.CreateAppointmentRequest{
		PatientID:      p.ID,
		PatientName:    p.Name,
		SpecialistID:   &t.SpecialistID,
		SpecialistName: t.SpecialistName,
		Specialty:      t.Specialty,
		ScheduledAt:    t.At,
	}, &s.metrics.Booking)

	if status == http.StatusCreated {
		var appt api.AppointmentResponse
		if err := json.Unmarshal(body, &appt); err == nil && appt.ID != uuid.Nil {
			s.pool.AddAppointment(booked{ID: appt.ID, SpecialistID: t.SpecialistID, PatientID: p.ID})
		}
	}
}

// doTransition has the specialist accept or the patient cancel, so both
// sides race on the same appointment.
func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	if rng.Intn(2) == 0 {
		s.send(ctx, http.MethodPost, "/appointments/"+b.ID.String()+"/accept",
			actorHeaders{id: b.SpecialistID, role: "specialist"}, nil, &s.metrics.Transition)
		return
	}
	s.send(ctx, http.MethodPost, "/appointments/"+b.ID.String()+"/cancel",
		actorHeaders{id: b.PatientID, role: "patient"}, api.ReasonRequest{Reason: "simulated cancellation"}, &s.metrics.Transition)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	s.send(ctx, http.MethodGet, "/appointments?patient_id="+p.ID.String()+"&limit=20",
		actorHeaders{id: p.ID, role: "patient"}, nil, &s.metrics.List)
}

type actorHeaders struct {
	id   uuid.UUID
	role string
}

func (s *Simulator) send(ctx context.Context, method, path string, actor actorHeaders, payload any, om *OperationMetrics) (int, []byte) {
	var buf bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&buf).Encode(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return 0, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderActorID, actor.id.String())
	req.Header.Set(api.HeaderActorRole, actor.role)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			om.Record(latency, 0)
		}
		return 0, nil
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	om.Record(latency, resp.StatusCode)
	return resp.StatusCode, body.Bytes()
}

func countDoubleBookings(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT specialist_id, scheduled_at
			FROM appointments
			WHERE specialist_id IS NOT NULL
			  AND status NOT IN ('rejected', 'cancelled')
			GROUP BY specialist_id, scheduled_at
			HAVING count(*) > 1
		) d
	`).Scan(&n)
	return n, err
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Candidate slots: %d\n\n", len(s.pool.Targets))

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Accept / cancel", &s.metrics.Transition)
	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("List by patient", &s.metrics.List)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	p50, p95, worst := om.Percentiles()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: p50=%s p95=%s max=%s\n\n",
		p50.Round(time.Millisecond), p95.Round(time.Millisecond), worst.Round(time.Millisecond))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
