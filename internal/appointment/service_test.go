package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/clinic-appointment-platform/internal/redis"
)

var (
	patient    = Actor{ID: uuid.New(), Role: RolePatient}
	specialist = Actor{ID: uuid.New(), Role: RoleSpecialist}
	admin      = Actor{ID: uuid.New(), Role: RoleAdmin}

	slotTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo, redisclient.NoopLocker{}, zerolog.Nop(), nil), repo
}

func booking(specialistID uuid.UUID, at time.Time) NewAppointment {
	return NewAppointment{
		PatientID:      patient.ID,
		PatientName:    "Ana Torres",
		SpecialistID:   &specialistID,
		SpecialistName: "Dr. Ruiz",
		Specialty:      "Cardiology",
		ScheduledAt:    at,
	}
}

func mustCreate(t *testing.T, svc *Service, in NewAppointment) *Appointment {
	t.Helper()
	appt, err := svc.Create(context.Background(), patient, in)
	require.NoError(t, err)
	return appt
}

func assertCancelability(t *testing.T, a *Appointment) {
	t.Helper()
	assert.Equal(t, a.Status.Cancelable(), a.IsCancelable, "is_cancelable out of sync with status %s", a.Status)
	assert.Equal(t, a.Status == StatusUnassigned || a.Status == StatusAccepted, a.IsCancelable)
}

func TestCreate_Unassigned(t *testing.T) {
	svc, repo := newTestService(t)
	specialistID := uuid.New()

	appt := mustCreate(t, svc, booking(specialistID, slotTime.Add(17*time.Second)))

	assert.Equal(t, StatusUnassigned, appt.Status)
	assert.True(t, appt.IsCancelable)
	assert.Equal(t, slotTime, *appt.ScheduledAt, "scheduled_at is truncated to the minute")
	assert.False(t, appt.RequestedAt.IsZero())
	assertCancelability(t, appt)

	events := repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventAppointmentCreated, events[0].EventType)
}

func TestCreate_WithoutSpecialist(t *testing.T) {
	svc, _ := newTestService(t)
	in := booking(specialist.ID, slotTime)
	in.SpecialistID = nil
	in.SpecialistName = ""

	appt, err := svc.Create(context.Background(), admin, in)
	require.NoError(t, err)
	assert.Nil(t, appt.SpecialistID)
}

func TestCreate_RequiredFields(t *testing.T) {
	svc, _ := newTestService(t)

	tests := map[string]func(*NewAppointment){
		"patient":         func(in *NewAppointment) { in.PatientID = uuid.Nil },
		"patient name":    func(in *NewAppointment) { in.PatientName = "  " },
		"specialty":       func(in *NewAppointment) { in.Specialty = "" },
		"scheduled at":    func(in *NewAppointment) { in.ScheduledAt = time.Time{} },
		"specialist name": func(in *NewAppointment) { in.SpecialistName = "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := booking(specialist.ID, slotTime)
			mutate(&in)
			_, err := svc.Create(context.Background(), patient, in)
			assert.ErrorIs(t, err, ErrMissingRequiredField)
		})
	}
}

func TestCreate_SpecialistMayNotBook(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), specialist, booking(specialist.ID, slotTime))
	assert.ErrorIs(t, err, ErrActionNotPermitted)
}

func TestCreate_SlotConflictAndRelease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	specialistID := specialist.ID

	first := mustCreate(t, svc, booking(specialistID, slotTime))
	_, err := svc.Accept(ctx, specialist, first.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, patient, booking(specialistID, slotTime))
	require.ErrorIs(t, err, ErrSlotConflict)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, string(OpCreate), te.Op)

	// Another specialist at the same time is fine.
	mustCreate(t, svc, booking(uuid.New(), slotTime))

	_, err = svc.Cancel(ctx, patient, first.ID, "cannot make it")
	require.NoError(t, err)

	again, err := svc.Create(ctx, patient, booking(specialistID, slotTime))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestCreate_ConcurrentBookingsSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)
	specialistID := uuid.New()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), patient, booking(specialistID, slotTime))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestCreate_LockContentionIsRetryable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewMemoryRepository()
	svc := NewService(repo, redisclient.NewRedisLocker(client, time.Second), zerolog.Nop(), nil)
	specialistID := uuid.New()

	require.NoError(t, mr.Set("lock:"+bookingLockKey(specialistID, slotTime), "other-replica"))

	_, err := svc.Create(context.Background(), patient, booking(specialistID, slotTime))
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	assert.NotErrorIs(t, err, ErrSlotConflict)

	mr.Del("lock:" + bookingLockKey(specialistID, slotTime))
	_, err = svc.Create(context.Background(), patient, booking(specialistID, slotTime))
	assert.NoError(t, err)
}

func TestAccept(t *testing.T) {
	svc, _ := newTestService(t)
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	accepted, err := svc.Accept(context.Background(), specialist, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)
	assert.True(t, accepted.IsCancelable)
	assert.Equal(t, AcceptedReminder, accepted.ReasonMessage)
	assertCancelability(t, accepted)
}

func TestReject_RequiresReason(t *testing.T) {
	svc, repo := newTestService(t)
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	_, err := svc.Reject(context.Background(), specialist, appt.ID, "   ")
	require.ErrorIs(t, err, ErrMissingRequiredField)

	stored, _ := repo.GetAppointment(context.Background(), appt.ID)
	assert.Equal(t, StatusUnassigned, stored.Status, "failed transition must not mutate")

	rejected, err := svc.Reject(context.Background(), specialist, appt.ID, "Not my specialty")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.False(t, rejected.IsCancelable)
	assert.Equal(t, "Not my specialty", rejected.ReasonMessage)
	assertCancelability(t, rejected)
}

func TestCancel_FromUnassignedAndAccepted(t *testing.T) {
	for _, actor := range []Actor{patient, specialist, admin} {
		t.Run(actor.Role.String(), func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()

			unassigned := mustCreate(t, svc, booking(specialist.ID, slotTime))
			cancelled, err := svc.Cancel(ctx, actor, unassigned.ID, "changed plans")
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, cancelled.Status)
			assertCancelability(t, cancelled)

			accepted := mustCreate(t, svc, booking(specialist.ID, slotTime))
			_, err = svc.Accept(ctx, specialist, accepted.ID)
			require.NoError(t, err)
			cancelled, err = svc.Cancel(ctx, actor, accepted.ID, "emergency")
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, cancelled.Status)
			assert.Equal(t, "emergency", cancelled.ReasonMessage)
			assertCancelability(t, cancelled)
		})
	}
}

func TestComplete_AttachesRecordsOnce(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))
	_, err := svc.Accept(ctx, specialist, appt.ID)
	require.NoError(t, err)

	recs := CompletionRecords{MedicalRecordID: uuid.New(), PatientReviewID: uuid.New()}

	completed, err := svc.Complete(ctx, specialist, appt.ID, recs)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.False(t, completed.IsCancelable)
	assert.Equal(t, recs.MedicalRecordID, *completed.MedicalRecordID)
	assert.Equal(t, recs.PatientReviewID, *completed.PatientReviewID)
	assertCancelability(t, completed)

	_, err = svc.Complete(ctx, specialist, appt.ID, recs)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := repo.GetAppointment(ctx, appt.ID)
	assert.Equal(t, *completed, *stored, "second completion must not touch the record")

	completions := 0
	for _, ev := range repo.Events() {
		if ev.EventType == EventAppointmentCompleted {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}

func TestComplete_RequiresBothIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))
	_, err := svc.Accept(ctx, specialist, appt.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, specialist, appt.ID, CompletionRecords{MedicalRecordID: uuid.New()})
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	_, err = svc.Complete(ctx, specialist, appt.ID, CompletionRecords{PatientReviewID: uuid.New()})
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestComplete_FromUnassignedIsInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	_, err := svc.Complete(context.Background(), specialist, appt.ID, CompletionRecords{MedicalRecordID: uuid.New(), PatientReviewID: uuid.New()})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	ctx := context.Background()
	recs := CompletionRecords{MedicalRecordID: uuid.New(), PatientReviewID: uuid.New()}

	drive := map[Status]func(*Service, uuid.UUID) error{
		StatusRejected: func(svc *Service, id uuid.UUID) error {
			_, err := svc.Reject(ctx, specialist, id, "no")
			return err
		},
		StatusCancelled: func(svc *Service, id uuid.UUID) error {
			_, err := svc.Cancel(ctx, patient, id, "no")
			return err
		},
		StatusCompleted: func(svc *Service, id uuid.UUID) error {
			if _, err := svc.Accept(ctx, specialist, id); err != nil {
				return err
			}
			_, err := svc.Complete(ctx, specialist, id, recs)
			return err
		},
	}

	for status, reach := range drive {
		t.Run(string(status), func(t *testing.T) {
			svc, repo := newTestService(t)
			appt := mustCreate(t, svc, booking(specialist.ID, slotTime))
			require.NoError(t, reach(svc, appt.ID))

			before, _ := repo.GetAppointment(ctx, appt.ID)
			require.Equal(t, status, before.Status)
			assertCancelability(t, before)

			_, err := svc.Accept(ctx, specialist, appt.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = svc.Reject(ctx, specialist, appt.ID, "late")
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = svc.Cancel(ctx, admin, appt.ID, "late")
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = svc.Complete(ctx, specialist, appt.ID, recs)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, status, te.From)

			after, _ := repo.GetAppointment(ctx, appt.ID)
			assert.Equal(t, *before, *after)
		})
	}
}

func TestTransitions_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := svc.Accept(ctx, specialist, missing)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NotErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Cancel(ctx, patient, missing, "x")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestTransitions_RolePermissions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	_, err := svc.Accept(ctx, patient, appt.ID)
	assert.ErrorIs(t, err, ErrActionNotPermitted)
	_, err = svc.Accept(ctx, admin, appt.ID)
	assert.ErrorIs(t, err, ErrActionNotPermitted)
	_, err = svc.Reject(ctx, patient, appt.ID, "x")
	assert.ErrorIs(t, err, ErrActionNotPermitted)
	_, err = svc.AttachSpecialistReview(ctx, specialist, appt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrActionNotPermitted)
	_, err = svc.Accept(ctx, Actor{ID: uuid.New()}, appt.ID)
	assert.ErrorIs(t, err, ErrActionNotPermitted)
}

func TestAttachSpecialistReview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	_, err := svc.AttachSpecialistReview(ctx, patient, appt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidTransition, "only completed appointments can be reviewed")

	_, err = svc.Accept(ctx, specialist, appt.ID)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, specialist, appt.ID, CompletionRecords{MedicalRecordID: uuid.New(), PatientReviewID: uuid.New()})
	require.NoError(t, err)

	reviewID := uuid.New()
	reviewed, err := svc.AttachSpecialistReview(ctx, patient, appt.ID, reviewID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, reviewed.Status)
	assert.Equal(t, reviewID, *reviewed.SpecialistReviewID)
	assertCancelability(t, reviewed)

	again, err := svc.AttachSpecialistReview(ctx, patient, appt.ID, reviewID)
	require.NoError(t, err)
	assert.Equal(t, reviewID, *again.SpecialistReviewID)

	_, err = svc.AttachSpecialistReview(ctx, patient, appt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.AttachSpecialistReview(ctx, patient, appt.ID, uuid.Nil)
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	surveyID := uuid.New()
	surveyed, err := svc.AttachSurvey(ctx, patient, appt.ID, surveyID)
	require.NoError(t, err)
	assert.Equal(t, surveyID, *surveyed.SurveyID)
	assert.Equal(t, reviewID, *surveyed.SpecialistReviewID)
}

// racingRepo lets another writer move the appointment between read and write.
type racingRepo struct {
	*MemoryRepository
	once  sync.Once
	rival func()
}

func (r *racingRepo) UpdateAppointment(ctx context.Context, id uuid.UUID, expected Status, patch Patch) (*Appointment, error) {
	r.once.Do(r.rival)
	return r.MemoryRepository.UpdateAppointment(ctx, id, expected, patch)
}

func TestTransition_LosesRaceCleanly(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryRepository()
	seed := NewService(base, nil, zerolog.Nop(), nil)
	appt := mustCreate(t, seed, booking(specialist.ID, slotTime))

	repo := &racingRepo{MemoryRepository: base}
	repo.rival = func() {
		_, err := base.UpdateAppointment(ctx, appt.ID, StatusUnassigned, statusPatch(StatusCancelled))
		require.NoError(t, err)
	}
	svc := NewService(repo, nil, zerolog.Nop(), nil)

	_, err := svc.Accept(ctx, specialist, appt.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusCancelled, te.From)

	stored, _ := base.GetAppointment(ctx, appt.ID)
	assert.Equal(t, StatusCancelled, stored.Status)
	assertCancelability(t, stored)
}

func TestConcurrentAcceptAndCancel(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	var wg sync.WaitGroup
	var acceptErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = svc.Accept(ctx, specialist, appt.ID)
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = svc.Cancel(ctx, patient, appt.ID, "found another doctor")
	}()
	wg.Wait()

	stored, _ := repo.GetAppointment(ctx, appt.ID)
	assertCancelability(t, stored)

	// Whichever precondition went stale fails cleanly; nothing is left half applied.
	switch {
	case cancelErr == nil:
		assert.Equal(t, StatusCancelled, stored.Status)
		if acceptErr != nil {
			assert.ErrorIs(t, acceptErr, ErrInvalidTransition)
		}
	default:
		assert.ErrorIs(t, cancelErr, ErrInvalidTransition)
		require.NoError(t, acceptErr)
		assert.Equal(t, StatusAccepted, stored.Status)
	}
}

func TestCancelStaleRequests(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale := mustCreate(t, svc, booking(specialist.ID, now.Add(-time.Hour)))
	future := mustCreate(t, svc, booking(specialist.ID, now.Add(time.Hour)))
	acceptedPast := mustCreate(t, svc, booking(specialist.ID, now.Add(-2*time.Hour)))
	_, err := svc.Accept(ctx, specialist, acceptedPast.ID)
	require.NoError(t, err)

	n, err := svc.CancelStaleRequests(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := repo.GetAppointment(ctx, stale.ID)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, StaleRequestReason, got.ReasonMessage)

	got, _ = repo.GetAppointment(ctx, future.ID)
	assert.Equal(t, StatusUnassigned, got.Status)
	got, _ = repo.GetAppointment(ctx, acceptedPast.ID)
	assert.Equal(t, StatusAccepted, got.Status)
}

func TestEventPayloadRecordsActor(t *testing.T) {
	svc, repo := newTestService(t)
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))
	_, err := svc.Accept(context.Background(), specialist, appt.ID)
	require.NoError(t, err)

	events := repo.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventAppointmentAccepted, events[1].EventType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	assert.Equal(t, "unassigned", payload["from"])
	assert.Equal(t, "accepted", payload["to"])
	assert.Equal(t, "specialist", payload["actor_role"])
	assert.Equal(t, specialist.ID.String(), payload["actor_id"])
}

func TestListForPatientClampsPaging(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		mustCreate(t, svc, booking(specialist.ID, slotTime.Add(time.Duration(i)*time.Hour)))
	}

	got, err := svc.ListForPatient(context.Background(), patient.ID, 0, -5)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = svc.ListForPatient(context.Background(), patient.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPrecheck_DoesNotWrite(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	_, err := svc.Precheck(ctx, specialist, appt.ID, OpComplete)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Precheck(ctx, patient, appt.ID, OpAccept)
	assert.ErrorIs(t, err, ErrActionNotPermitted)

	_, err = svc.Precheck(ctx, specialist, uuid.New(), OpAccept)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	got, err := svc.Precheck(ctx, specialist, appt.ID, OpAccept)
	require.NoError(t, err)
	assert.Equal(t, StatusUnassigned, got.Status)

	stored, err := repo.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnassigned, stored.Status)
	assert.Len(t, repo.Events(), 1)
}

func TestAccept_AssignsUnassignedRequestToAcceptingSpecialist(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	in := booking(specialist.ID, slotTime)
	in.SpecialistID = nil
	in.SpecialistName = ""
	appt := mustCreate(t, svc, in)

	named := specialist
	named.Name = "Dr. Ruiz"
	accepted, err := svc.Accept(ctx, named, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, accepted.SpecialistID)
	assert.Equal(t, specialist.ID, *accepted.SpecialistID)
	assert.Equal(t, "Dr. Ruiz", accepted.SpecialistName)

	mine, err := svc.ListForSpecialist(ctx, specialist.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, appt.ID, mine[0].ID)

	// The assignment now holds the slot.
	_, err = svc.Create(ctx, patient, booking(specialist.ID, slotTime))
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestAccept_AssignmentCollidesWithExistingBooking(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, booking(specialist.ID, slotTime))

	in := booking(specialist.ID, slotTime)
	in.SpecialistID = nil
	in.SpecialistName = ""
	open := mustCreate(t, svc, in)

	_, err := svc.Accept(ctx, specialist, open.ID)
	require.ErrorIs(t, err, ErrSlotConflict)

	stored, _ := repo.GetAppointment(ctx, open.ID)
	assert.Equal(t, StatusUnassigned, stored.Status)
	assert.Nil(t, stored.SpecialistID)
}

func TestSpecialistMayOnlyActOnOwnAppointments(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	other := Actor{ID: uuid.New(), Role: RoleSpecialist}
	appt := mustCreate(t, svc, booking(specialist.ID, slotTime))

	_, err := svc.Accept(ctx, other, appt.ID)
	assert.ErrorIs(t, err, ErrActionNotPermitted)
	_, err = svc.Reject(ctx, other, appt.ID, "not mine")
	assert.ErrorIs(t, err, ErrActionNotPermitted)
	_, err = svc.Cancel(ctx, other, appt.ID, "not mine")
	assert.ErrorIs(t, err, ErrActionNotPermitted)

	stored, _ := repo.GetAppointment(ctx, appt.ID)
	assert.Equal(t, StatusUnassigned, stored.Status)

	_, err = svc.Accept(ctx, specialist, appt.ID)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, other, appt.ID, CompletionRecords{MedicalRecordID: uuid.New(), PatientReviewID: uuid.New()})
	assert.ErrorIs(t, err, ErrActionNotPermitted)
}

func TestLogEvent_UnencodablePayloadStoresEmptyObject(t *testing.T) {
	svc, repo := newTestService(t)

	svc.logEvent(context.Background(), uuid.New(), EventAppointmentCreated, map[string]any{"bad": make(chan int)})

	events := repo.Events()
	require.Len(t, events, 1)
	assert.JSONEq(t, `{}`, string(events[0].Payload))
}
