package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"fitpoints/workout-app/internal/attachment"
	"fitpoints/workout-app/internal/domain"
	"fitpoints/workout-app/internal/repository"
	"fitpoints/workout-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound = errors.New("no such workout")
	ErrNoCertificate   = errors.New("no certificate found for this workout")
)

// MissingFieldsError reports every absent required field of a create request,
// not just the first, so clients can highlight all of them at once.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("please fill in all the fields (missing: %s)", strings.Join(e.Fields, ", "))
}

// CertificateUpload is the raw upload handed in by the transport layer.
type CertificateUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// CertificateStream is a resolved certificate ready to send. The caller must
// close Reader on every exit path.
type CertificateStream struct {
	ContentType string
	Filename    string
	Size        int64 // 0 when unknown (legacy file streams)
	Reader      io.ReadCloser
}

// WorkoutUpdate carries the optional fields of a partial update.
type WorkoutUpdate struct {
	Title       *string
	Points      *int
	Certificate *CertificateUpload
}

// WorkoutService is the certificate-attached record subsystem: validated
// creation, owner-scoped reads and mutations, certificate retrieval with the
// legacy path fallback, and the administrative per-owner aggregation.
//
// All methods taking a workout id accept it as the raw string from the
// caller; a malformed id resolves to ErrWorkoutNotFound, never a distinct
// error.
type WorkoutService interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, title string, points *int, upload *CertificateUpload) (*domain.Workout, error)
	Get(ctx context.Context, id string, ownerID primitive.ObjectID) (*domain.Workout, error)
	List(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Workout, error)
	Update(ctx context.Context, id string, ownerID primitive.ObjectID, update WorkoutUpdate) (*domain.Workout, error)
	Delete(ctx context.Context, id string, ownerID primitive.ObjectID) (*domain.Workout, error)
	FetchCertificate(ctx context.Context, id string, ownerID primitive.ObjectID) (*CertificateStream, error)

	// AggregateAll is intentionally owner-unscoped. Administrator gating is
	// the route layer's responsibility; this method trusts its caller.
	AggregateAll(ctx context.Context) ([]domain.AggregationEntry, error)
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	workoutRepo repository.WorkoutRepository
	userRepo    repository.UserRepository
	validator   *attachment.Validator
	certStore   storage.CertificateStore
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(
	workoutRepo repository.WorkoutRepository,
	userRepo repository.UserRepository,
	validator *attachment.Validator,
	certStore storage.CertificateStore,
) WorkoutService {
	return &workoutService{
		workoutRepo: workoutRepo,
		userRepo:    userRepo,
		validator:   validator,
		certStore:   certStore,
	}
}

// parseID validates identifier syntax. Anything that is not a well-formed
// ObjectID behaves exactly like an id with no record behind it.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrWorkoutNotFound
	}
	return oid, nil
}

// Create validates and persists a new workout with its certificate. All
// validation happens before any persistence attempt, so a rejected request
// leaves no partial state.
func (s *workoutService) Create(ctx context.Context, ownerID primitive.ObjectID, title string, points *int, upload *CertificateUpload) (*domain.Workout, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if points == nil {
		missing = append(missing, "points")
	}
	if upload == nil {
		missing = append(missing, "certificate")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	cert, err := s.validator.New(upload.Data, upload.Filename, upload.ContentType)
	if err != nil {
		return nil, err
	}

	workout := &domain.Workout{
		Title:       title,
		Points:      *points,
		OwnerID:     ownerID,
		Certificate: cert,
	}

	id, err := s.workoutRepo.Create(ctx, workout)
	if err != nil {
		return nil, err
	}
	// Fetch again so the response carries the stored state without bytes.
	return s.workoutRepo.GetByID(ctx, id, repository.OwnedBy(ownerID))
}

// Get retrieves a single workout (metadata only) owned by ownerID.
func (s *workoutService) Get(ctx context.Context, id string, ownerID primitive.ObjectID) (*domain.Workout, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	workout, err := s.workoutRepo.GetByID(ctx, oid, repository.OwnedBy(ownerID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

// List retrieves the owner's workouts newest first, with the owner's email
// populated and certificate bytes stripped.
func (s *workoutService) List(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Workout, error) {
	workouts, err := s.workoutRepo.List(ctx, repository.OwnedBy(ownerID))
	if err != nil {
		return nil, err
	}
	if len(workouts) == 0 {
		return workouts, nil
	}
	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if owner != nil {
		for i := range workouts {
			workouts[i].OwnerEmail = owner.Email
		}
	}
	return workouts, nil
}

// Update applies a partial update. A supplied certificate goes through the
// same validation as on create and replaces the previous one wholesale.
func (s *workoutService) Update(ctx context.Context, id string, ownerID primitive.ObjectID, update WorkoutUpdate) (*domain.Workout, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	patch := repository.WorkoutPatch{
		Title:  update.Title,
		Points: update.Points,
	}
	if update.Certificate != nil {
		cert, err := s.validator.New(update.Certificate.Data, update.Certificate.Filename, update.Certificate.ContentType)
		if err != nil {
			return nil, err
		}
		patch.Certificate = cert
	}

	workout, err := s.workoutRepo.Update(ctx, oid, repository.OwnedBy(ownerID), patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

// Delete removes a workout and its certificate together, returning the
// record's prior state.
func (s *workoutService) Delete(ctx context.Context, id string, ownerID primitive.ObjectID) (*domain.Workout, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	workout, err := s.workoutRepo.Delete(ctx, oid, repository.OwnedBy(ownerID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

// FetchCertificate resolves a workout's certificate bytes. Embedded bytes are
// served from the record itself; legacy records fall back to the certificate
// store using their stored relative path. A legacy path whose file no longer
// exists resolves to ErrWorkoutNotFound.
func (s *workoutService) FetchCertificate(ctx context.Context, id string, ownerID primitive.ObjectID) (*CertificateStream, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	workout, err := s.workoutRepo.GetWithCertificate(ctx, oid, repository.OwnedBy(ownerID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}

	cert := workout.Certificate
	if cert.Variant() == domain.CertificateNone {
		return nil, ErrNoCertificate
	}

	contentType := cert.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if len(cert.Data) > 0 {
		return &CertificateStream{
			ContentType: contentType,
			Filename:    cert.Filename,
			Size:        int64(len(cert.Data)),
			Reader:      io.NopCloser(bytes.NewReader(cert.Data)),
		}, nil
	}

	if cert.Path != "" {
		reader, err := s.certStore.Open(ctx, cert.Path)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return nil, ErrWorkoutNotFound
			}
			return nil, err
		}
		return &CertificateStream{
			ContentType: contentType,
			Filename:    path.Base(cert.Path),
			Reader:      reader,
		}, nil
	}

	return nil, ErrWorkoutNotFound
}

// AggregateAll computes per-owner point totals with nested metadata-only
// summaries. Read-only, recomputed on every call.
func (s *workoutService) AggregateAll(ctx context.Context) ([]domain.AggregationEntry, error) {
	return s.workoutRepo.AggregateByOwner(ctx)
}
