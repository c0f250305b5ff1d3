package mongo

import (
	"context"
	"errors"
	"time"

	"fitpoints/workout-app/internal/domain"
	"fitpoints/workout-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutCollectionName = "workouts"

// metadataProjection excludes the embedded certificate bytes from query
// results. Every read path except GetWithCertificate applies it to keep
// list/detail payloads small.
var metadataProjection = bson.M{"certificate.data": 0}

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutRepository creates a new Workout repository.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// idFilter builds the filter for a single record under the given scope.
func idFilter(id primitive.ObjectID, scope repository.Scope) bson.M {
	filter := bson.M{"_id": id}
	if ownerID, ok := scope.OwnerID(); ok {
		filter["user_id"] = ownerID
	}
	return filter
}

// listFilter builds the filter for list queries under the given scope.
func listFilter(scope repository.Scope) bson.M {
	filter := bson.M{}
	if ownerID, ok := scope.OwnerID(); ok {
		filter["user_id"] = ownerID
	}
	return filter
}

// patchUpdate builds the $set document for a partial update. The certificate,
// when present, is replaced wholesale; updatedAt always advances.
func patchUpdate(patch repository.WorkoutPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Points != nil {
		set["points"] = *patch.Points
	}
	if patch.Certificate != nil {
		set["certificate"] = patch.Certificate
	}
	return bson.M{"$set": set}
}

// Create inserts a new workout with its embedded certificate in a single
// document write, so record and certificate persist atomically.
func (r *mongoWorkoutRepository) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	if workout.OwnerID == primitive.NilObjectID || workout.Title == "" {
		return primitive.NilObjectID, errors.New("workout requires user_id and title")
	}
	if workout.Certificate.Variant() == domain.CertificateEmbedded && !workout.Certificate.Complete() {
		return primitive.NilObjectID, errors.New("embedded certificate requires data, filename, size, and contentType")
	}
	workout.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	workout.CreatedAt = now
	workout.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, workout)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted workout ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single workout without certificate bytes.
func (r *mongoWorkoutRepository) GetByID(ctx context.Context, id primitive.ObjectID, scope repository.Scope) (*domain.Workout, error) {
	var workout domain.Workout
	opts := options.FindOne().SetProjection(metadataProjection)
	err := r.collection.FindOne(ctx, idFilter(id, scope), opts).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// GetWithCertificate retrieves the full document including certificate bytes.
// Only the certificate fetch path uses this.
func (r *mongoWorkoutRepository) GetWithCertificate(ctx context.Context, id primitive.ObjectID, scope repository.Scope) (*domain.Workout, error) {
	var workout domain.Workout
	err := r.collection.FindOne(ctx, idFilter(id, scope)).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// List retrieves workouts under the given scope, newest first, bytes stripped.
// The result is recomputed on every call; nothing is cached.
func (r *mongoWorkoutRepository) List(ctx context.Context, scope repository.Scope) ([]domain.Workout, error) {
	findOptions := options.Find().
		SetProjection(metadataProjection).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, listFilter(scope), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workouts []domain.Workout
	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}

// Update applies a partial update and returns the post-update state without
// certificate bytes. Concurrent updates are last-writer-wins.
func (r *mongoWorkoutRepository) Update(ctx context.Context, id primitive.ObjectID, scope repository.Scope, patch repository.WorkoutPatch) (*domain.Workout, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(metadataProjection)

	var workout domain.Workout
	err := r.collection.FindOneAndUpdate(ctx, idFilter(id, scope), patchUpdate(patch, time.Now().UTC()), opts).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// Delete removes a workout together with its embedded certificate and
// returns the record's prior state (bytes stripped).
func (r *mongoWorkoutRepository) Delete(ctx context.Context, id primitive.ObjectID, scope repository.Scope) (*domain.Workout, error) {
	opts := options.FindOneAndDelete().SetProjection(metadataProjection)

	var workout domain.Workout
	err := r.collection.FindOneAndDelete(ctx, idFilter(id, scope), opts).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// aggregationPipeline groups workouts by owner, sums points, collects
// metadata-only summaries, and joins the owner profile from the users
// collection. Group order follows document insertion; it is not sorted.
func aggregationPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$user_id",
			"totalPoints": bson.M{"$sum": "$points"},
			"workouts": bson.M{"$push": bson.M{
				"_id":       "$_id",
				"title":     "$title",
				"points":    "$points",
				"createdAt": "$createdAt",
				// Metadata only, never the raw bytes.
				"certificate": bson.M{
					"filename":    "$certificate.filename",
					"size":        "$certificate.size",
					"contentType": "$certificate.contentType",
				},
			}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         userCollectionName,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "userDetails",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"userDetails": bson.M{"$arrayElemAt": bson.A{"$userDetails", 0}},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":               0,
			"userId":            "$_id",
			"totalPoints":       1,
			"workouts":          1,
			"userDetails.name":  1,
			"userDetails.email": 1,
		}}},
	}
}

// AggregateByOwner computes per-owner point totals with nested summaries.
// It is intentionally unscoped; access control happens upstream.
func (r *mongoWorkoutRepository) AggregateByOwner(ctx context.Context) ([]domain.AggregationEntry, error) {
	cursor, err := r.collection.Aggregate(ctx, aggregationPipeline())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.AggregationEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// EnsureWorkoutIndexes creates necessary indexes. Call during startup.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Owner-scoped list queries sort newest first.
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
