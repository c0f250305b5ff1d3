package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CertificateVariant identifies how a certificate's bytes are stored.
type CertificateVariant int

const (
	// CertificateNone means the workout carries no certificate at all.
	CertificateNone CertificateVariant = iota
	// CertificateEmbedded means the bytes live inside the workout document.
	CertificateEmbedded
	// CertificateLegacyPath means only a relative file path is stored.
	// These exist on records created before embedded storage and are read-only.
	CertificateLegacyPath
)

// Certificate is the proof-of-completion document attached to a workout.
// Exactly one of the two storage variants is populated: either Data plus the
// full metadata set (current records), or Path alone with optional ContentType
// (legacy records). Data is stripped from list/detail projections and only
// loaded for the certificate fetch path.
type Certificate struct {
	Data        []byte `bson:"data,omitempty" json:"-"`
	Filename    string `bson:"filename,omitempty" json:"filename,omitempty"`
	Size        int64  `bson:"size,omitempty" json:"size,omitempty"`
	ContentType string `bson:"contentType,omitempty" json:"contentType,omitempty"`
	Path        string `bson:"path,omitempty" json:"-"`
}

// Variant reports which storage variant this certificate carries.
// A stripped embedded certificate (metadata present, bytes projected out)
// still reports CertificateEmbedded.
func (c *Certificate) Variant() CertificateVariant {
	switch {
	case c == nil:
		return CertificateNone
	case c.Filename != "" || len(c.Data) > 0:
		return CertificateEmbedded
	case c.Path != "":
		return CertificateLegacyPath
	default:
		return CertificateNone
	}
}

// Complete reports whether an embedded certificate carries all four required
// sub-fields. New records must never be persisted with a partial certificate.
func (c *Certificate) Complete() bool {
	return c != nil && len(c.Data) > 0 && c.Filename != "" && c.Size > 0 && c.ContentType != ""
}

// Workout represents a single points-earning activity with its certificate.
type Workout struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Points      int                `bson:"points" json:"points"`
	OwnerID     primitive.ObjectID `bson:"user_id" json:"userId"`
	OwnerEmail  string             `bson:"-" json:"userEmail,omitempty"` // Populated from the users collection for list responses
	Certificate *Certificate       `bson:"certificate,omitempty" json:"certificate,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WorkoutSummary is the byte-free projection of a workout nested inside an
// aggregation entry.
type WorkoutSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Points      int                `bson:"points" json:"points"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	Certificate *Certificate       `bson:"certificate,omitempty" json:"certificate,omitempty"`
}

// OwnerDetails carries the joined profile fields for an aggregation entry.
type OwnerDetails struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

// AggregationEntry is the per-owner rollup served to administrators. It is
// computed on demand and never persisted; owners with zero records produce
// no entry.
type AggregationEntry struct {
	OwnerID      primitive.ObjectID `bson:"userId" json:"userId"`
	TotalPoints  int                `bson:"totalPoints" json:"totalPoints"`
	Workouts     []WorkoutSummary   `bson:"workouts" json:"workouts"`
	OwnerDetails OwnerDetails       `bson:"userDetails" json:"userDetails"`
}
