package repository

import (
	"context"

	"fitpoints/workout-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Scope is the access policy applied to a single query. Callers state intent
// explicitly per call: OwnedBy restricts results to one owner, Unscoped does
// not filter (reserved for the administrative aggregation path, which is
// gated upstream).
type Scope struct {
	ownerID *primitive.ObjectID
}

// OwnedBy returns a scope restricting operations to records owned by ownerID.
func OwnedBy(ownerID primitive.ObjectID) Scope {
	return Scope{ownerID: &ownerID}
}

// Unscoped returns a scope that applies no owner filter.
func Unscoped() Scope {
	return Scope{}
}

// OwnerID returns the owner filter and whether one is set.
func (s Scope) OwnerID() (primitive.ObjectID, bool) {
	if s.ownerID == nil {
		return primitive.NilObjectID, false
	}
	return *s.ownerID, true
}

// WorkoutPatch carries the fields of a partial update. Nil fields are left
// untouched; a non-nil Certificate replaces the previous one wholesale.
type WorkoutPatch struct {
	Title       *string
	Points      *int
	Certificate *domain.Certificate
}

// Empty reports whether the patch changes nothing.
func (p WorkoutPatch) Empty() bool {
	return p.Title == nil && p.Points == nil && p.Certificate == nil
}

// WorkoutRepository defines the interface for interacting with workout data.
// GetByID and List return byte-stripped projections; only GetWithCertificate
// loads the embedded certificate bytes.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID, scope Scope) (*domain.Workout, error)
	GetWithCertificate(ctx context.Context, id primitive.ObjectID, scope Scope) (*domain.Workout, error)
	List(ctx context.Context, scope Scope) ([]domain.Workout, error)
	Update(ctx context.Context, id primitive.ObjectID, scope Scope, patch WorkoutPatch) (*domain.Workout, error)
	Delete(ctx context.Context, id primitive.ObjectID, scope Scope) (*domain.Workout, error)
	AggregateByOwner(ctx context.Context) ([]domain.AggregationEntry, error)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}
