package mongo

import (
	"testing"
	"time"

	"fitpoints/workout-app/internal/domain"
	"fitpoints/workout-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIDFilterScoped(t *testing.T) {
	id := primitive.NewObjectID()
	ownerID := primitive.NewObjectID()

	filter := idFilter(id, repository.OwnedBy(ownerID))

	assert.Equal(t, bson.M{"_id": id, "user_id": ownerID}, filter)
}

func TestIDFilterUnscoped(t *testing.T) {
	id := primitive.NewObjectID()

	filter := idFilter(id, repository.Unscoped())

	assert.Equal(t, bson.M{"_id": id}, filter)
}

func TestListFilter(t *testing.T) {
	ownerID := primitive.NewObjectID()

	assert.Equal(t, bson.M{"user_id": ownerID}, listFilter(repository.OwnedBy(ownerID)))
	assert.Equal(t, bson.M{}, listFilter(repository.Unscoped()))
}

func TestPatchUpdateSetsOnlySuppliedFields(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	title := "evening ride"

	update := patchUpdate(repository.WorkoutPatch{Title: &title}, now)

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "evening ride", set["title"])
	assert.Equal(t, now, set["updatedAt"])
	assert.NotContains(t, set, "points")
	assert.NotContains(t, set, "certificate")
}

func TestPatchUpdateReplacesCertificateWholesale(t *testing.T) {
	now := time.Now().UTC()
	cert := &domain.Certificate{
		Data:        []byte("bytes"),
		Filename:    "proof.png",
		Size:        5,
		ContentType: "image/png",
	}
	points := 12

	update := patchUpdate(repository.WorkoutPatch{Points: &points, Certificate: cert}, now)

	set := update["$set"].(bson.M)
	assert.Equal(t, 12, set["points"])
	// The whole certificate document is replaced, never merged field-wise.
	assert.Equal(t, cert, set["certificate"])
	assert.NotContains(t, set, "title")
}

func TestAggregationPipelineShape(t *testing.T) {
	pipeline := aggregationPipeline()
	require.Len(t, pipeline, 4)

	group := pipeline[0][0]
	require.Equal(t, "$group", group.Key)
	groupDoc := group.Value.(bson.M)
	assert.Equal(t, "$user_id", groupDoc["_id"])
	assert.Equal(t, bson.M{"$sum": "$points"}, groupDoc["totalPoints"])

	// Nested summaries must carry certificate metadata only.
	push := groupDoc["workouts"].(bson.M)["$push"].(bson.M)
	certDoc := push["certificate"].(bson.M)
	assert.Equal(t, "$certificate.filename", certDoc["filename"])
	assert.Equal(t, "$certificate.size", certDoc["size"])
	assert.Equal(t, "$certificate.contentType", certDoc["contentType"])
	assert.NotContains(t, certDoc, "data")

	lookup := pipeline[1][0]
	require.Equal(t, "$lookup", lookup.Key)
	lookupDoc := lookup.Value.(bson.M)
	assert.Equal(t, userCollectionName, lookupDoc["from"])
	assert.Equal(t, "_id", lookupDoc["localField"])
	assert.Equal(t, "_id", lookupDoc["foreignField"])

	project := pipeline[3][0]
	require.Equal(t, "$project", project.Key)
	projectDoc := project.Value.(bson.M)
	assert.Equal(t, "$_id", projectDoc["userId"])
	assert.Equal(t, 0, projectDoc["_id"])
}

func TestMetadataProjectionExcludesBytes(t *testing.T) {
	assert.Equal(t, bson.M{"certificate.data": 0}, metadataProjection)
}
