package records

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/observability/metrics"
)

// Related holds the records referenced by a page of appointments, keyed by id.
type Related struct {
	MedicalRecords map[uuid.UUID]*MedicalRecord
	Reviews        map[uuid.UUID]*Review
	Surveys        map[uuid.UUID]*Survey
}

type Loader struct {
	store   Store
	limit   int
	metrics *metrics.ClinicMetrics
}

func NewLoader(store Store, limit int, m *metrics.ClinicMetrics) *Loader {
	return &Loader{store: store, limit: limit, metrics: m}
}

// Load resolves every record id referenced by appts with one batched fetch
// per record kind. Ids whose record no longer exists are left out of the maps.
func (l *Loader) Load(ctx context.Context, appts []appointment.Appointment) (Related, error) {
	var medicalIDs, reviewIDs, surveyIDs []uuid.UUID
	for _, a := range appts {
		medicalIDs = appendID(medicalIDs, a.MedicalRecordID)
		reviewIDs = appendID(reviewIDs, a.PatientReviewID)
		reviewIDs = appendID(reviewIDs, a.SpecialistReviewID)
		surveyIDs = appendID(surveyIDs, a.SurveyID)
	}

	medical := NewCache("medical_record", l.store.GetMedicalRecord, l.limit, l.metrics)
	reviews := NewCache("review", l.store.GetReview, l.limit, l.metrics)
	surveys := NewCache("survey", l.store.GetSurvey, l.limit, l.metrics)

	var out Related
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.MedicalRecords, err = medical.Populate(gctx, medicalIDs)
		return err
	})
	g.Go(func() (err error) {
		out.Reviews, err = reviews.Populate(gctx, reviewIDs)
		return err
	})
	g.Go(func() (err error) {
		out.Surveys, err = surveys.Populate(gctx, surveyIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return Related{}, err
	}
	return out, nil
}

func appendID(ids []uuid.UUID, id *uuid.UUID) []uuid.UUID {
	if id == nil {
		return ids
	}
	return append(ids, *id)
}
