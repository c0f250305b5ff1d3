package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"fitpoints/workout-app/internal/attachment"
	"fitpoints/workout-app/internal/domain"
	"fitpoints/workout-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler holds the workout service dependency.
type WorkoutHandler struct {
	workoutService service.WorkoutService
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// --- DTOs ---

// CertificateResponse carries certificate metadata only, never raw bytes.
type CertificateResponse struct {
	Filename    string `json:"filename,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type WorkoutResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Points      int                  `json:"points"`
	UserID      string               `json:"userId"`
	UserEmail   string               `json:"userEmail,omitempty"`
	Certificate *CertificateResponse `json:"certificate,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type WorkoutSummaryResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Points      int                  `json:"points"`
	CreatedAt   time.Time            `json:"createdAt"`
	Certificate *CertificateResponse `json:"certificate,omitempty"`
}

type OwnerDetailsResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AggregationEntryResponse struct {
	UserID      string                   `json:"userId"`
	TotalPoints int                      `json:"totalPoints"`
	Workouts    []WorkoutSummaryResponse `json:"workouts"`
	UserDetails OwnerDetailsResponse     `json:"userDetails"`
}

func mapCertificateToResponse(cert *domain.Certificate) *CertificateResponse {
	if cert == nil || cert.Variant() == domain.CertificateNone {
		return nil
	}
	return &CertificateResponse{
		Filename:    cert.Filename,
		Size:        cert.Size,
		ContentType: cert.ContentType,
	}
}

// MapWorkoutToResponse converts a domain.Workout to its DTO.
func MapWorkoutToResponse(w *domain.Workout) WorkoutResponse {
	if w == nil {
		return WorkoutResponse{}
	}
	return WorkoutResponse{
		ID:          w.ID.Hex(),
		Title:       w.Title,
		Points:      w.Points,
		UserID:      w.OwnerID.Hex(),
		UserEmail:   w.OwnerEmail,
		Certificate: mapCertificateToResponse(w.Certificate),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// MapWorkoutsToResponse converts a slice of domain.Workout to DTOs.
func MapWorkoutsToResponse(workouts []domain.Workout) []WorkoutResponse {
	responses := make([]WorkoutResponse, len(workouts))
	for i := range workouts {
		responses[i] = MapWorkoutToResponse(&workouts[i])
	}
	return responses
}

func mapAggregationToResponse(entries []domain.AggregationEntry) []AggregationEntryResponse {
	responses := make([]AggregationEntryResponse, len(entries))
	for i, entry := range entries {
		summaries := make([]WorkoutSummaryResponse, len(entry.Workouts))
		for j, w := range entry.Workouts {
			summaries[j] = WorkoutSummaryResponse{
				ID:          w.ID.Hex(),
				Title:       w.Title,
				Points:      w.Points,
				CreatedAt:   w.CreatedAt,
				Certificate: mapCertificateToResponse(w.Certificate),
			}
		}
		responses[i] = AggregationEntryResponse{
			UserID:      entry.OwnerID.Hex(),
			TotalPoints: entry.TotalPoints,
			Workouts:    summaries,
			UserDetails: OwnerDetailsResponse{
				Name:  entry.OwnerDetails.Name,
				Email: entry.OwnerDetails.Email,
			},
		}
	}
	return responses
}

// --- Helpers ---

func ownerIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	ownerID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format in token.")
		return primitive.NilObjectID, false
	}
	return ownerID, true
}

// readCertificateUpload pulls the optional multipart certificate file into
// memory. A missing file yields (nil, nil); presence decisions belong to the
// service.
func readCertificateUpload(c *gin.Context) (*service.CertificateUpload, error) {
	fileHeader, err := c.FormFile("certificate")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &service.CertificateUpload{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}, nil
}

// respondWorkoutError maps service errors to HTTP responses. MissingFields
// responses carry the full list of absent field names.
func respondWorkoutError(c *gin.Context, err error) {
	var missing *service.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":       "Please fill in all the fields",
			"emptyFields": missing.Fields,
		})
	case errors.Is(err, attachment.ErrInvalidFormat):
		abortWithError(c, http.StatusBadRequest, "Invalid file format for certificate")
	case errors.Is(err, attachment.ErrTooLarge):
		abortWithError(c, http.StatusBadRequest, "Certificate file exceeds the maximum allowed size")
	case errors.Is(err, service.ErrWorkoutNotFound):
		abortWithError(c, http.StatusNotFound, "No such workout")
	case errors.Is(err, service.ErrNoCertificate):
		abortWithError(c, http.StatusNotFound, "No certificate found for this workout")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// --- Handler Methods ---

// CreateWorkout accepts a multipart form with title, points and a
// certificate file, and creates the workout for the authenticated user.
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		return
	}

	title := c.PostForm("title")

	var points *int
	if pointsStr := c.PostForm("points"); pointsStr != "" {
		value, err := strconv.Atoi(pointsStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Points must be a number")
			return
		}
		points = &value
	}

	upload, err := readCertificateUpload(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to read certificate upload")
		return
	}

	workout, err := h.workoutService.Create(c.Request.Context(), ownerID, title, points, upload)
	if err != nil {
		respondWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapWorkoutToResponse(workout))
}

// GetWorkouts lists the authenticated user's workouts, newest first.
func (h *WorkoutHandler) GetWorkouts(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		return
	}

	workouts, err := h.workoutService.List(c.Request.Context(), ownerID)
	if err != nil {
		respondWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapWorkoutsToResponse(workouts))
}

// GetWorkout returns a single workout owned by the authenticated user.
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		return
	}

	workout, err := h.workoutService.Get(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		respondWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// UpdateWorkout applies a partial update from a multipart form. Any supplied
// certificate file goes through the same validation as on create.
func (h *WorkoutHandler) UpdateWorkout(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		return
	}

	var update service.WorkoutUpdate
	if title, present := c.GetPostForm("title"); present {
		update.Title = &title
	}
	if pointsStr, present := c.GetPostForm("points"); present {
		value, err := strconv.Atoi(pointsStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Points must be a number")
			return
		}
		update.Points = &value
	}

	upload, err := readCertificateUpload(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to read certificate upload")
		return
	}
	update.Certificate = upload

	workout, err := h.workoutService.Update(c.Request.Context(), c.Param("id"), ownerID, update)
	if err != nil {
		respondWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// DeleteWorkout removes a workout and returns its prior state.
func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		return
	}

	workout, err := h.workoutService.Delete(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		respondWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// GetCertificate streams the certificate bytes for a workout. The download
// query parameter selects attachment disposition; the default is inline
// preview. Legacy file streams are closed on every exit path.
func (h *WorkoutHandler) GetCertificate(c *gin.Context) {
	ownerID, ok := ownerIDFromContext(c)
	if !ok {
		return
	}

	stream, err := h.workoutService.FetchCertificate(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		respondWorkoutError(c, err)
		return
	}
	defer stream.Reader.Close()

	disposition := "inline"
	if c.Query("download") == "1" {
		disposition = "attachment"
	}
	extraHeaders := map[string]string{
		"Content-Disposition": disposition + `; filename="` + stream.Filename + `"`,
	}

	contentLength := stream.Size
	if contentLength <= 0 {
		contentLength = -1 // unknown for legacy file streams
	}
	c.DataFromReader(http.StatusOK, contentLength, stream.ContentType, stream.Reader, extraHeaders)
}

// GetAllWorkoutsForAdmin returns the per-owner aggregation. Owner scoping is
// intentionally bypassed; the admin role requirement is enforced by the route
// middleware.
func (h *WorkoutHandler) GetAllWorkoutsForAdmin(c *gin.Context) {
	entries, err := h.workoutService.AggregateAll(c.Request.Context())
	if err != nil {
		respondWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapAggregationToResponse(entries))
}
