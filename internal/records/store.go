package records

import (
	"context"

	"github.com/google/uuid"
)

// Store creates and dereferences the records an appointment points at.
// Create methods validate input and assign id and timestamp.
type Store interface {
	CreateMedicalRecord(ctx context.Context, in MedicalRecord) (*MedicalRecord, error)
	CreateReview(ctx context.Context, in Review) (*Review, error)
	CreateSurvey(ctx context.Context, in Survey) (*Survey, error)
	GetMedicalRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	GetReview(ctx context.Context, id uuid.UUID) (*Review, error)
	GetSurvey(ctx context.Context, id uuid.UUID) (*Survey, error)
}
