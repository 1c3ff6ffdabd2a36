package challenges

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecoquest/internal/config"
	"ecoquest/internal/contextutils"
	"ecoquest/internal/response"
	"ecoquest/internal/services"
	"ecoquest/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Controller handles challenge HTTP endpoints
type Controller struct {
	services  *services.ServiceCollection
	builder   *response.Builder
	validator *validation.Validator
	upload    config.UploadConfig
	logger    *zap.Logger
}

// NewController creates a new challenges controller
func NewController(
	collection *services.ServiceCollection,
	builder *response.Builder,
	validator *validation.Validator,
	upload config.UploadConfig,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		services:  collection,
		builder:   builder,
		validator: validator,
		upload:    upload,
		logger:    logger,
	}
}

// ===============================
// PUBLIC READS
// ===============================

// List returns active challenges, newest first
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	challenges, err := c.services.ChallengeService.ListChallenges(r.Context())
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, challenges)
}

// Get returns a single challenge with its participants
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	challengeID, err := c.challengeID(r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	challenge, err := c.services.ChallengeService.GetChallenge(r.Context(), challengeID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, challenge)
}

// Participants returns all participants of a challenge
func (c *Controller) Participants(w http.ResponseWriter, r *http.Request) {
	challengeID, err := c.challengeID(r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	challenge, err := c.services.ChallengeService.GetChallenge(r.Context(), challengeID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, challenge.Participants)
}

// ===============================
// ADMIN MANAGEMENT
// ===============================

// Create creates a new challenge from a JSON body or a multipart form with
// an optional image upload.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	req := &services.CreateChallengeRequest{}

	if isMultipart(r) {
		photo, err := c.readMultipart(w, r)
		if err != nil {
			c.builder.WriteError(w, r, err)
			return
		}

		req.Title = r.FormValue("title")
		req.Description = r.FormValue("description")
		req.Category = r.FormValue("category")
		req.BadgeReward = r.FormValue("badgeReward")
		req.ImageURL = r.FormValue("imageUrl")
		req.Photo = photo

		if goal := r.FormValue("goal"); goal != "" {
			parsed, err := strconv.Atoi(goal)
			if err != nil {
				c.builder.WriteError(w, r, services.NewValidationError("Goal must be a number", err))
				return
			}
			req.Goal = parsed
		}

		if endDate := r.FormValue("endDate"); endDate != "" {
			parsed, err := time.Parse(time.RFC3339, endDate)
			if err != nil {
				c.builder.WriteError(w, r, services.NewValidationError("End date must be RFC3339", err))
				return
			}
			req.EndDate = &parsed
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			c.builder.WriteError(w, r, services.NewValidationError("Invalid request body", err))
			return
		}
	}

	if err := c.validator.Validate(req); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	challenge, err := c.services.ChallengeService.CreateChallenge(r.Context(), req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteCreated(w, r, challenge)
}

// Update patches challenge fields
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	challengeID, err := c.challengeID(r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	req := &services.UpdateChallengeRequest{ChallengeID: challengeID}

	if isMultipart(r) {
		photo, err := c.readMultipart(w, r)
		if err != nil {
			c.builder.WriteError(w, r, err)
			return
		}
		req.Photo = photo

		if title := r.FormValue("title"); title != "" {
			req.Title = &title
		}
		if description := r.FormValue("description"); description != "" {
			req.Description = &description
		}
		if goal := r.FormValue("goal"); goal != "" {
			parsed, err := strconv.Atoi(goal)
			if err != nil {
				c.builder.WriteError(w, r, services.NewValidationError("Goal must be a number", err))
				return
			}
			req.Goal = &parsed
		}
		if progress := r.FormValue("currentProgress"); progress != "" {
			parsed, err := strconv.Atoi(progress)
			if err != nil {
				c.builder.WriteError(w, r, services.NewValidationError("Current progress must be a number", err))
				return
			}
			req.CurrentProgress = &parsed
		}
		if active := r.FormValue("isActive"); active != "" {
			parsed, err := strconv.ParseBool(active)
			if err != nil {
				c.builder.WriteError(w, r, services.NewValidationError("isActive must be a boolean", err))
				return
			}
			req.IsActive = &parsed
		}
		if endDate := r.FormValue("endDate"); endDate != "" {
			parsed, err := time.Parse(time.RFC3339, endDate)
			if err != nil {
				c.builder.WriteError(w, r, services.NewValidationError("End date must be RFC3339", err))
				return
			}
			req.EndDate = &parsed
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			c.builder.WriteError(w, r, services.NewValidationError("Invalid request body", err))
			return
		}
		req.ChallengeID = challengeID
	}

	if err := c.validator.Validate(req); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	challenge, err := c.services.ChallengeService.UpdateChallenge(r.Context(), req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, challenge)
}

// Delete removes a challenge and best-effort cleans up its image
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	challengeID, err := c.challengeID(r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	if err := c.services.ChallengeService.DeleteChallenge(r.Context(), challengeID); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, map[string]string{"message": "Challenge deleted"})
}

// ===============================
// PARTICIPATION
// ===============================

// Join submits a participation with required photo proof
func (c *Controller) Join(w http.ResponseWriter, r *http.Request) {
	challengeID, err := c.challengeID(r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.join(w, r, challengeID)
}

// Submit is the alternate submission route carrying the challenge ID in the
// form body alongside an optional reflection text.
func (c *Controller) Submit(w http.ResponseWriter, r *http.Request) {
	photo, err := c.readMultipart(w, r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	rawID := r.FormValue("challengeId")
	challengeID, parseErr := strconv.ParseInt(rawID, 10, 64)
	if parseErr != nil || challengeID <= 0 {
		c.builder.WriteError(w, r, services.NewValidationError("A valid challengeId is required", parseErr))
		return
	}

	if reflection := r.FormValue("reflection"); reflection != "" {
		c.logger.Info("Submission reflection received",
			zap.Int64("challenge_id", challengeID),
			zap.Int("length", len(reflection)),
		)
	}

	c.joinWithPhoto(w, r, challengeID, photo)
}

func (c *Controller) join(w http.ResponseWriter, r *http.Request, challengeID int64) {
	photo, err := c.readMultipart(w, r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.joinWithPhoto(w, r, challengeID, photo)
}

func (c *Controller) joinWithPhoto(w http.ResponseWriter, r *http.Request, challengeID int64, photo []byte) {
	req := &services.JoinChallengeRequest{
		ChallengeID: challengeID,
		UserID:      contextutils.GetUserID(r.Context()),
		UserRole:    contextutils.GetUserRole(r.Context()),
		Photo:       photo,
	}

	if contribution := r.FormValue("contribution"); contribution != "" {
		parsed, err := strconv.Atoi(contribution)
		if err != nil || parsed <= 0 {
			c.builder.WriteError(w, r, services.NewValidationError("Contribution must be a positive number", err))
			return
		}
		req.Contribution = parsed
	}

	participation, err := c.services.ChallengeService.JoinChallenge(r.Context(), req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteCreated(w, r, participation)
}

// ListPending returns pending submissions in submission order
func (c *Controller) ListPending(w http.ResponseWriter, r *http.Request) {
	challengeID, err := c.challengeID(r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	pending, err := c.services.ChallengeService.ListPendingParticipations(r.Context(), challengeID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, pending)
}

// Review approves or rejects a pending submission
func (c *Controller) Review(w http.ResponseWriter, r *http.Request) {
	challengeID, err := c.challengeID(r)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	participationID, convErr := strconv.ParseInt(chi.URLParam(r, "participantId"), 10, 64)
	if convErr != nil || participationID <= 0 {
		c.builder.WriteError(w, r, services.NewValidationError("Invalid participant id", convErr))
		return
	}

	var body struct {
		Decision string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("Invalid request body", err))
		return
	}

	req := &services.ReviewParticipationRequest{
		ChallengeID:     challengeID,
		ParticipationID: participationID,
		ReviewerID:      contextutils.GetUserID(r.Context()),
		Decision:        body.Decision,
	}

	if err := c.validator.Validate(req); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	if _, err := c.services.ChallengeService.ReviewParticipation(r.Context(), req); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	// Respond with the refreshed challenge so the reviewer sees the new
	// aggregate progress
	challenge, err := c.services.ChallengeService.GetChallenge(r.Context(), challengeID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, challenge)
}

// ===============================
// HELPERS
// ===============================

func (c *Controller) challengeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewValidationError("Invalid challenge id", err)
	}
	return id, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readMultipart parses the form under the authoritative upload limit and
// returns the photo bytes, or nil when no file part was sent.
func (c *Controller) readMultipart(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.upload.MaxFileSize)

	if err := r.ParseMultipartForm(c.upload.MaxFileSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, services.NewValidationError(
				fmt.Sprintf("File too large. Maximum size is %dMB.", c.upload.MaxFileSizeMB()), err)
		}
		return nil, services.NewValidationError("Invalid multipart form", err)
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, services.NewValidationError("Invalid photo upload", err)
	}
	defer file.Close()

	if header.Size > c.upload.MaxFileSize {
		return nil, services.NewValidationError(
			fmt.Sprintf("File too large. Maximum size is %dMB.", c.upload.MaxFileSizeMB()), nil)
	}

	photo, err := io.ReadAll(file)
	if err != nil {
		return nil, services.NewInternalError("Failed to read uploaded photo")
	}

	return photo, nil
}
