package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/config"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"github.com/pribylovaa/go-videotube/accounts-service/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "accounts-service",
		Audience:        []string{"videotube"},
	}
}

type deps struct {
	st    *mocks.MockStorage
	media *mocks.MockMediaStorage
}

func newSvc(t *testing.T) (*Service, *deps) {
	t.Helper()

	ctrl := gomock.NewController(t)
	d := &deps{
		st:    mocks.NewMockStorage(ctrl),
		media: mocks.NewMockMediaStorage(ctrl),
	}

	svc := New(d.st, d.media, testCfg())
	svc.SetPasswordHasher(NewBcryptHasher(bcrypt.MinCost))

	return svc, d
}

func withCache(t *testing.T, svc *Service) *mocks.MockRefreshCache {
	t.Helper()

	rc := mocks.NewMockRefreshCache(gomock.NewController(t))
	svc.SetRefreshCache(rc)

	return rc
}

func testUser(t *testing.T, svc *Service, password string) *models.User {
	t.Helper()

	hash, err := svc.hasher.Hash(password)
	require.NoError(t, err)

	return &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@x.com",
		FullName:     "Alice",
		PasswordHash: hash,
		AvatarURL:    "http://cdn.local/avatars/a.png",
		WatchHistory: []uuid.UUID{},
	}
}

func pngFile() *storage.MediaFile {
	return &storage.MediaFile{Name: "a.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
}

// slot эмулирует слот refresh-токена в хранилище с атомарной заменой.
type slot struct {
	mu   sync.Mutex
	hash string
}

func (s *slot) set(_ context.Context, _ uuid.UUID, h string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hash = h
	return nil
}

func (s *slot) swap(_ context.Context, _ uuid.UUID, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expected == "" || s.hash != expected {
		return storage.ErrConflict
	}
	s.hash = next
	return nil
}

func (s *slot) clear(_ context.Context, _ uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.hash
	s.hash = ""
	return prev, nil
}

func (s *slot) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hash
}

// bindSlot подключает slot к методам RefreshTokenStorage мока.
func bindSlot(st *mocks.MockStorage, sl *slot) {
	st.EXPECT().SetRefreshToken(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(sl.set).AnyTimes()
	st.EXPECT().SwapRefreshToken(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(sl.swap).AnyTimes()
	st.EXPECT().ClearRefreshToken(gomock.Any(), gomock.Any()).DoAndReturn(sl.clear).AnyTimes()
}
