package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"ecoquest/internal/events"
	"ecoquest/internal/models"
	"ecoquest/internal/repositories"
	"ecoquest/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/image/bmp"
)

// ===============================
// FAKES
// ===============================

type fakeChallengeRepo struct {
	mu             sync.Mutex
	challenges     map[int64]*models.Challenge
	participations map[int64]*models.Participation
	nextChallenge  int64
	nextPart       int64
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{
		challenges:     make(map[int64]*models.Challenge),
		participations: make(map[int64]*models.Participation),
	}
}

func (f *fakeChallengeRepo) Create(_ context.Context, c *models.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextChallenge++
	c.ID = f.nextChallenge
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	copied := *c
	f.challenges[c.ID] = &copied
	return nil
}

func (f *fakeChallengeRepo) GetByID(_ context.Context, id int64) (*models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *c
	for _, p := range f.participations {
		if p.ChallengeID == id {
			copied.Participants = append(copied.Participants, *p)
		}
	}
	return &copied, nil
}

func (f *fakeChallengeRepo) ListActive(_ context.Context) ([]*models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Challenge
	for _, c := range f.challenges {
		if c.IsActive {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeChallengeRepo) Update(_ context.Context, c *models.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.challenges[c.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *c
	copied.Participants = nil
	f.challenges[c.ID] = &copied
	return nil
}

func (f *fakeChallengeRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.challenges[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.challenges, id)
	for pid, p := range f.participations {
		if p.ChallengeID == id {
			delete(f.participations, pid)
		}
	}
	return nil
}

func (f *fakeChallengeRepo) CreateParticipation(_ context.Context, p *models.Participation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.participations {
		if existing.ChallengeID == p.ChallengeID && existing.UserID == p.UserID {
			return repositories.ErrDuplicateParticipation
		}
	}
	f.nextPart++
	p.ID = f.nextPart
	p.CreatedAt = time.Now()
	copied := *p
	f.participations[p.ID] = &copied
	return nil
}

func (f *fakeChallengeRepo) GetParticipation(_ context.Context, challengeID, userID int64) (*models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participations {
		if p.ChallengeID == challengeID && p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeChallengeRepo) ListPendingParticipations(_ context.Context, challengeID int64) ([]*models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Participation
	for _, p := range f.participations {
		if p.ChallengeID == challengeID && p.Status == models.StatusPending {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeChallengeRepo) ReviewParticipation(_ context.Context, challengeID, participationID, reviewerID int64, status string, terminalStatuses []string) (*models.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.participations[participationID]
	if !ok || p.ChallengeID != challengeID {
		return nil, repositories.ErrNotFound
	}
	if slices.Contains(terminalStatuses, p.Status) {
		return nil, repositories.ErrAlreadyReviewed
	}

	now := time.Now()
	p.Status = status
	p.ReviewedBy = &reviewerID
	p.ReviewedAt = &now

	if status == models.StatusApproved {
		f.challenges[challengeID].CurrentProgress += p.Contribution
	}

	copied := *p
	return &copied, nil
}

type fakeStorage struct {
	mu        sync.Mutex
	uploads   int
	deleted   []string
	failStore bool
}

func (f *fakeStorage) Store(_ context.Context, payload []byte, folder string) (*storage.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStore {
		return nil, fmt.Errorf("upstream unavailable")
	}
	f.uploads++
	return &storage.StoredObject{
		PublicID:  fmt.Sprintf("%s/photo-%d", folder, f.uploads),
		SecureURL: fmt.Sprintf("https://res.cloudinary.com/demo/image/upload/%s/photo-%d.webp", folder, f.uploads),
		Format:    "webp",
		Size:      len(payload),
	}, nil
}

func (f *fakeStorage) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

// fakeBadgeRepo mirrors the user_badges unique constraint: a (user, badge)
// pair is recorded at most once, later awards report awarded=false.
type fakeBadgeRepo struct {
	mu        sync.Mutex
	badges    map[string]*models.Badge
	granted   map[string]bool
	attempts  map[string]int
	failAward bool
}

func newFakeBadgeRepo(names ...string) *fakeBadgeRepo {
	f := &fakeBadgeRepo{
		badges:   make(map[string]*models.Badge),
		granted:  make(map[string]bool),
		attempts: make(map[string]int),
	}
	for i, name := range names {
		f.badges[name] = &models.Badge{ID: int64(i + 1), Name: name, IsActive: true}
	}
	return f
}

func (f *fakeBadgeRepo) GetByName(_ context.Context, name string) (*models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.badges[name]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return b, nil
}

func (f *fakeBadgeRepo) AwardToUser(_ context.Context, userID, badgeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAward {
		return false, fmt.Errorf("badge store unavailable")
	}
	key := fmt.Sprintf("%d:%d", userID, badgeID)
	f.attempts[key]++
	if f.granted[key] {
		return false, nil
	}
	f.granted[key] = true
	return true, nil
}

func (f *fakeBadgeRepo) grantCount(userID, badgeID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.granted[fmt.Sprintf("%d:%d", userID, badgeID)] {
		return 1
	}
	return 0
}

func (f *fakeBadgeRepo) awardAttempts(userID, badgeID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[fmt.Sprintf("%d:%d", userID, badgeID)]
}

// ===============================
// FIXTURES
// ===============================

type serviceFixture struct {
	repo      *fakeChallengeRepo
	badgeRepo *fakeBadgeRepo
	store     *fakeStorage
	svc       ChallengeService
	badges    BadgeService
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repo := newFakeChallengeRepo()
	badgeRepo := newFakeBadgeRepo("Tree Master")
	store := &fakeStorage{}
	logger := zap.NewNop()

	bus := events.NewInMemoryBus(logger)
	badges := NewBadgeService(badgeRepo, logger)
	SubscribeBadgeAwards(bus, badges, logger)

	svc := NewChallengeService(repo, store, bus, nil, nil, logger)

	return &serviceFixture{
		repo:      repo,
		badgeRepo: badgeRepo,
		store:     store,
		svc:       svc,
		badges:    badges,
	}
}

func testPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testBitmapPhoto encodes a payload the pipeline can decode but the format
// allow-list does not permit.
func testBitmapPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func (fx *serviceFixture) createChallenge(t *testing.T) *models.Challenge {
	t.Helper()
	challenge, err := fx.svc.CreateChallenge(context.Background(), &CreateChallengeRequest{
		Title:       "Plant 1000 Trees",
		Description: "Campus reforestation drive",
	})
	require.NoError(t, err)
	return challenge
}

// ===============================
// CHALLENGE MANAGEMENT
// ===============================

func TestCreateChallengeDefaults(t *testing.T) {
	fx := newFixture(t)

	challenge := fx.createChallenge(t)

	assert.Equal(t, 1000, challenge.Goal)
	assert.Equal(t, "Environmental", challenge.Category)
	assert.Equal(t, "Tree Master", challenge.BadgeReward)
	assert.Equal(t, 0, challenge.CurrentProgress)
	assert.True(t, challenge.IsActive)
}

func TestCreateChallengeWithImageURLFallback(t *testing.T) {
	fx := newFixture(t)

	challenge, err := fx.svc.CreateChallenge(context.Background(), &CreateChallengeRequest{
		Title:       "Recycle Week",
		Description: "Bring your recyclables",
		ImageURL:    "https://example.com/banner.png",
	})
	require.NoError(t, err)

	require.NotNil(t, challenge.ImageURL)
	assert.Equal(t, "https://example.com/banner.png", *challenge.ImageURL)
	assert.Equal(t, 0, fx.store.uploads, "no upload should happen for a URL-only challenge")
}

func TestDeleteChallengeCleansUpImage(t *testing.T) {
	fx := newFixture(t)

	challenge, err := fx.svc.CreateChallenge(context.Background(), &CreateChallengeRequest{
		Title:       "Beach Cleanup",
		Description: "Saturday cleanup",
		Photo:       testPhoto(t),
	})
	require.NoError(t, err)
	require.NotNil(t, challenge.ImageURL)

	require.NoError(t, fx.svc.DeleteChallenge(context.Background(), challenge.ID))

	require.Len(t, fx.store.deleted, 1)
	assert.Equal(t, "eco-quest/photo-1", fx.store.deleted[0])

	_, err = fx.svc.GetChallenge(context.Background(), challenge.ID)
	assert.True(t, IsNotFoundError(err))
}

func TestUpdateChallengePatchesFields(t *testing.T) {
	fx := newFixture(t)
	challenge := fx.createChallenge(t)

	newGoal := 500
	inactive := false
	updated, err := fx.svc.UpdateChallenge(context.Background(), &UpdateChallengeRequest{
		ChallengeID: challenge.ID,
		Goal:        &newGoal,
		IsActive:    &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, 500, updated.Goal)
	assert.False(t, updated.IsActive)
	assert.Equal(t, challenge.Title, updated.Title, "unset fields stay untouched")
}

// ===============================
// JOIN
// ===============================

func TestJoinChallenge(t *testing.T) {
	t.Run("restricted roles cannot join", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		for _, role := range []string{"admin", "partner"} {
			_, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
				ChallengeID: challenge.ID,
				UserID:      7,
				UserRole:    role,
				Photo:       testPhoto(t),
			})
			require.Error(t, err)
			assert.Equal(t, 403, GetServiceError(err).GetStatusCode())
		}
	})

	t.Run("photo is required", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		_, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: challenge.ID,
			UserID:      7,
			UserRole:    "student",
		})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, 0, fx.store.uploads, "nothing persisted when validation fails")
	})

	t.Run("unknown challenge", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: 9999,
			UserID:      7,
			UserRole:    "student",
			Photo:       testPhoto(t),
		})
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("successful join creates a pending participation", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		participation, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: challenge.ID,
			UserID:      7,
			UserRole:    "student",
			Photo:       testPhoto(t),
		})
		require.NoError(t, err)

		assert.Equal(t, models.StatusPending, participation.Status)
		assert.Equal(t, 1, participation.Contribution, "contribution defaults to 1")
		assert.Contains(t, participation.PhotoURL, "res.cloudinary.com")
		assert.Nil(t, participation.ReviewedBy)

		loaded, err := fx.svc.GetChallenge(context.Background(), challenge.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.CurrentProgress, "pending submissions do not advance progress")
	})

	t.Run("duplicate join is rejected", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		req := &JoinChallengeRequest{
			ChallengeID: challenge.ID,
			UserID:      7,
			UserRole:    "student",
			Photo:       testPhoto(t),
		}

		_, err := fx.svc.JoinChallenge(context.Background(), req)
		require.NoError(t, err)

		_, err = fx.svc.JoinChallenge(context.Background(), req)
		require.Error(t, err)
		svcErr := GetServiceError(err)
		assert.Equal(t, 400, svcErr.GetStatusCode())
		assert.Equal(t, "ALREADY_JOINED", svcErr.Code)
	})

	t.Run("disallowed source format is rejected before processing", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		_, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: challenge.ID,
			UserID:      7,
			UserRole:    "student",
			Photo:       testBitmapPhoto(t),
		})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, GetServiceError(err).Message, "Unsupported image format")
		assert.Equal(t, 0, fx.store.uploads, "decodable but disallowed formats never reach storage")
		assert.Empty(t, fx.repo.participations)
	})

	t.Run("undecodable photo aborts before storage", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		_, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: challenge.ID,
			UserID:      7,
			UserRole:    "student",
			Photo:       []byte("not an image"),
		})
		require.Error(t, err)
		assert.Equal(t, 500, GetServiceError(err).GetStatusCode())
		assert.Equal(t, 0, fx.store.uploads)
		assert.Empty(t, fx.repo.participations)
	})

	t.Run("storage failure leaves nothing persisted", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)
		fx.store.failStore = true

		_, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: challenge.ID,
			UserID:      7,
			UserRole:    "student",
			Photo:       testPhoto(t),
		})
		require.Error(t, err)
		assert.Equal(t, "STORAGE_FAILED", GetServiceError(err).Code)
		assert.Empty(t, fx.repo.participations)
	})
}

// ===============================
// REVIEW
// ===============================

func TestReviewParticipation(t *testing.T) {
	join := func(t *testing.T, fx *serviceFixture, challengeID, userID int64) *models.Participation {
		t.Helper()
		p, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: challengeID,
			UserID:      userID,
			UserRole:    "student",
			Photo:       testPhoto(t),
		})
		require.NoError(t, err)
		return p
	}

	t.Run("invalid decision", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)
		p := join(t, fx, challenge.ID, 7)

		_, err := fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
			ChallengeID:     challenge.ID,
			ParticipationID: p.ID,
			ReviewerID:      1,
			Decision:        "maybe",
		})
		require.Error(t, err)
		svcErr := GetServiceError(err)
		assert.Equal(t, 400, svcErr.GetStatusCode())
		assert.Equal(t, "INVALID_DECISION", svcErr.Code)
	})

	t.Run("unknown participation", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		_, err := fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
			ChallengeID:     challenge.ID,
			ParticipationID: 424242,
			ReviewerID:      1,
			Decision:        models.StatusApproved,
		})
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("approval advances progress and grants the badge once", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)
		p := join(t, fx, challenge.ID, 7)

		reviewed, err := fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
			ChallengeID:     challenge.ID,
			ParticipationID: p.ID,
			ReviewerID:      1,
			Decision:        models.StatusApproved,
		})
		require.NoError(t, err)

		assert.Equal(t, models.StatusApproved, reviewed.Status)
		require.NotNil(t, reviewed.ReviewedBy)
		assert.Equal(t, int64(1), *reviewed.ReviewedBy)
		assert.NotNil(t, reviewed.ReviewedAt)

		loaded, err := fx.svc.GetChallenge(context.Background(), challenge.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.CurrentProgress)

		assert.Equal(t, 1, fx.badgeRepo.grantCount(7, 1))
	})

	t.Run("approving twice is rejected and progress counted once", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)
		p := join(t, fx, challenge.ID, 7)

		req := &ReviewParticipationRequest{
			ChallengeID:     challenge.ID,
			ParticipationID: p.ID,
			ReviewerID:      1,
			Decision:        models.StatusApproved,
		}

		_, err := fx.svc.ReviewParticipation(context.Background(), req)
		require.NoError(t, err)

		_, err = fx.svc.ReviewParticipation(context.Background(), req)
		require.Error(t, err)
		svcErr := GetServiceError(err)
		assert.Equal(t, 400, svcErr.GetStatusCode())
		assert.Equal(t, "ALREADY_APPROVED", svcErr.Code)

		loaded, err := fx.svc.GetChallenge(context.Background(), challenge.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.CurrentProgress)
	})

	t.Run("rejected participation can be re-reviewed", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)
		p := join(t, fx, challenge.ID, 7)

		_, err := fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
			ChallengeID:     challenge.ID,
			ParticipationID: p.ID,
			ReviewerID:      1,
			Decision:        models.StatusRejected,
		})
		require.NoError(t, err)

		reviewed, err := fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
			ChallengeID:     challenge.ID,
			ParticipationID: p.ID,
			ReviewerID:      2,
			Decision:        models.StatusApproved,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, reviewed.Status)

		loaded, err := fx.svc.GetChallenge(context.Background(), challenge.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.CurrentProgress)
	})

	t.Run("badge held once across challenges sharing a reward", func(t *testing.T) {
		fx := newFixture(t)
		first := fx.createChallenge(t)
		second, err := fx.svc.CreateChallenge(context.Background(), &CreateChallengeRequest{
			Title:       "Compost Drive",
			Description: "Divert cafeteria waste",
		})
		require.NoError(t, err)
		require.Equal(t, first.BadgeReward, second.BadgeReward)

		for _, challengeID := range []int64{first.ID, second.ID} {
			p := join(t, fx, challengeID, 7)
			_, err := fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
				ChallengeID:     challengeID,
				ParticipationID: p.ID,
				ReviewerID:      1,
				Decision:        models.StatusApproved,
			})
			require.NoError(t, err)
		}

		assert.Equal(t, 2, fx.badgeRepo.awardAttempts(7, 1), "both approvals attempt the award")
		assert.Equal(t, 1, fx.badgeRepo.grantCount(7, 1), "the shared reward is held once")
	})

	t.Run("badge store failure does not undo the approval", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)
		p := join(t, fx, challenge.ID, 7)
		fx.badgeRepo.failAward = true

		reviewed, err := fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
			ChallengeID:     challenge.ID,
			ParticipationID: p.ID,
			ReviewerID:      1,
			Decision:        models.StatusApproved,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, reviewed.Status)

		loaded, err := fx.svc.GetChallenge(context.Background(), challenge.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.CurrentProgress, "progress still advances")
		assert.Equal(t, 0, fx.badgeRepo.grantCount(7, 1))
	})

	t.Run("progress equals the sum of approved contributions", func(t *testing.T) {
		fx := newFixture(t)
		challenge := fx.createChallenge(t)

		for userID := int64(1); userID <= 5; userID++ {
			p, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
				ChallengeID:  challenge.ID,
				UserID:       userID + 100,
				UserRole:     "student",
				Contribution: int(userID),
				Photo:        testPhoto(t),
			})
			require.NoError(t, err)

			decision := models.StatusApproved
			if userID%2 == 0 {
				decision = models.StatusRejected
			}

			_, err = fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
				ChallengeID:     challenge.ID,
				ParticipationID: p.ID,
				ReviewerID:      1,
				Decision:        decision,
			})
			require.NoError(t, err)
		}

		loaded, err := fx.svc.GetChallenge(context.Background(), challenge.ID)
		require.NoError(t, err)

		sum := 0
		for _, p := range loaded.Participants {
			if p.Status == models.StatusApproved {
				sum += p.Contribution
			}
		}
		assert.Equal(t, sum, loaded.CurrentProgress)
		assert.Equal(t, 1+3+5, loaded.CurrentProgress)
	})
}

func TestListPendingParticipations(t *testing.T) {
	fx := newFixture(t)
	challenge := fx.createChallenge(t)

	for userID := int64(1); userID <= 3; userID++ {
		_, err := fx.svc.JoinChallenge(context.Background(), &JoinChallengeRequest{
			ChallengeID: challenge.ID,
			UserID:      userID,
			UserRole:    "student",
			Photo:       testPhoto(t),
		})
		require.NoError(t, err)
	}

	pending, err := fx.svc.ListPendingParticipations(context.Background(), challenge.ID)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	// Submission order is preserved
	for i := 1; i < len(pending); i++ {
		assert.Less(t, pending[i-1].ID, pending[i].ID)
	}

	_, err = fx.svc.ReviewParticipation(context.Background(), &ReviewParticipationRequest{
		ChallengeID:     challenge.ID,
		ParticipationID: pending[0].ID,
		ReviewerID:      1,
		Decision:        models.StatusApproved,
	})
	require.NoError(t, err)

	pending, err = fx.svc.ListPendingParticipations(context.Background(), challenge.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
