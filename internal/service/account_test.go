package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"github.com/stretchr/testify/require"
)

func aliceInput() RegisterInput {
	return RegisterInput{
		FullName: "Alice",
		Email:    "alice@x.com",
		Username: "alice",
		Password: "p@ss1",
		Avatar:   pngFile(),
	}
}

func TestScenario_RegisterLoginRotate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, d := newSvc(t)
	sl := &slot{}
	bindSlot(d.st, sl)

	var stored *models.User

	d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice", "alice@x.com").Return(nil, storage.ErrNotFound)
	d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, gomock.Any(), gomock.Any()).
		Return("http://cdn.local/avatars/a.png", nil)
	d.st.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			cp := *u
			stored = &cp
			return nil
		})

	registered, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)
	require.Equal(t, "alice", registered.Username)
	require.Equal(t, "alice@x.com", registered.Email)
	require.Equal(t, "http://cdn.local/avatars/a.png", registered.AvatarURL)
	require.Empty(t, registered.CoverImageURL)
	require.Empty(t, registered.PasswordHash)
	require.Empty(t, registered.RefreshTokenHash)

	require.NotEmpty(t, stored.PasswordHash)
	require.NotEqual(t, "p@ss1", stored.PasswordHash)
	require.Equal(t, registered.ID, stored.ID)

	d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice", "").Return(stored, nil)
	d.st.EXPECT().UserByID(gomock.Any(), stored.ID).Return(stored, nil).AnyTimes()

	_, pair, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "p@ss1"})
	require.NoError(t, err)
	require.Equal(t, digest(pair.RefreshToken), sl.get())

	next, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister_WithCoverImage(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	in := aliceInput()
	in.CoverImage = pngFile()

	d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice", "alice@x.com").Return(nil, storage.ErrNotFound)
	d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, gomock.Any(), gomock.Any()).Return("a-url", nil)
	d.media.EXPECT().Store(gomock.Any(), storage.MediaCoverImage, gomock.Any(), gomock.Any()).Return("c-url", nil)
	d.st.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil)

	u, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "a-url", u.AvatarURL)
	require.Equal(t, "c-url", u.CoverImageURL)
}

func TestRegister_Conflict_CaseInsensitive(t *testing.T) {
	t.Parallel()

	t.Run("found before insert", func(t *testing.T) {
		svc, d := newSvc(t)
		in := aliceInput()
		in.Username = "ALICE"
		in.Email = "Alice@X.com"

		existing := testUser(t, svc, "pw")
		d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice", "alice@x.com").Return(existing, nil)

		_, err := svc.Register(context.Background(), in)
		require.ErrorIs(t, err, ErrUserExists)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unique index on insert", func(t *testing.T) {
		svc, d := newSvc(t)

		d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
		d.media.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("a-url", nil)
		d.st.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)
		d.media.EXPECT().Remove(gomock.Any(), "a-url").Return(nil)

		_, err := svc.Register(context.Background(), aliceInput())
		require.ErrorIs(t, err, ErrConflict)
	})
}

func TestRegister_MediaFailure_CreatesNothing(t *testing.T) {
	t.Parallel()

	t.Run("avatar", func(t *testing.T) {
		svc, d := newSvc(t)

		d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
		d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, gomock.Any(), gomock.Any()).
			Return("", errors.New("s3 unavailable"))

		_, err := svc.Register(context.Background(), aliceInput())
		require.ErrorIs(t, err, ErrMediaUploadFailed)
	})

	t.Run("cover image", func(t *testing.T) {
		svc, d := newSvc(t)
		in := aliceInput()
		in.CoverImage = pngFile()

		d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
		d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, gomock.Any(), gomock.Any()).Return("a-url", nil)
		d.media.EXPECT().Store(gomock.Any(), storage.MediaCoverImage, gomock.Any(), gomock.Any()).
			Return("", errors.New("s3 unavailable"))
		// Уже загруженный аватар не остаётся в бакете.
		d.media.EXPECT().Remove(gomock.Any(), "a-url").Return(nil)

		_, err := svc.Register(context.Background(), in)
		require.ErrorIs(t, err, ErrMediaUploadFailed)
	})

	t.Run("rejected file", func(t *testing.T) {
		svc, d := newSvc(t)

		d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
		d.media.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", storage.ErrInvalidMedia)

		_, err := svc.Register(context.Background(), aliceInput())
		require.ErrorIs(t, err, ErrInvalidMedia)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestRegister_FailedInsertDiscardsUploads(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	in := aliceInput()
	in.CoverImage = pngFile()

	ctx, cancel := context.WithCancel(context.Background())

	d.st.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, gomock.Any(), gomock.Any()).Return("a-url", nil)
	d.media.EXPECT().Store(gomock.Any(), storage.MediaCoverImage, gomock.Any(), gomock.Any()).Return("c-url", nil)
	d.st.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *models.User) error {
			cancel()
			return context.Canceled
		})

	var removed []string
	d.media.EXPECT().Remove(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(ctx context.Context, url string) error {
			// Запрос уже отменён, но удаление идёт в собственном контексте.
			require.NoError(t, ctx.Err())
			removed = append(removed, url)
			if url == "c-url" {
				return errors.New("s3 unavailable")
			}
			return nil
		})

	_, err := svc.Register(ctx, in)
	require.ErrorIs(t, err, ErrPersistence)
	require.Equal(t, []string{"a-url", "c-url"}, removed)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   error
	}{
		{"no full name", func(in *RegisterInput) { in.FullName = "  " }, ErrRequiredFields},
		{"no email", func(in *RegisterInput) { in.Email = "" }, ErrRequiredFields},
		{"no username", func(in *RegisterInput) { in.Username = "" }, ErrRequiredFields},
		{"no password", func(in *RegisterInput) { in.Password = "" }, ErrRequiredFields},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"display name email", func(in *RegisterInput) { in.Email = "Alice <alice@x.com>" }, ErrInvalidEmail},
		{"username with space", func(in *RegisterInput) { in.Username = "al ice" }, ErrInvalidUsername},
		{"no avatar", func(in *RegisterInput) { in.Avatar = nil }, ErrAvatarRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newSvc(t)
			in := aliceInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		svc, d := newSvc(t)
		u := testUser(t, svc, "old")

		d.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)
		d.st.EXPECT().UpdateUser(gomock.Any(), u.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, upd storage.UserUpdate) (*models.User, error) {
				require.NotNil(t, upd.PasswordHash)
				require.True(t, svc.hasher.Verify(*upd.PasswordHash, "new"))
				require.Nil(t, upd.Email)
				return u, nil
			})

		require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "old", "new"))
	})

	t.Run("wrong old password", func(t *testing.T) {
		svc, d := newSvc(t)
		u := testUser(t, svc, "old")
		d.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)

		err := svc.ChangePassword(context.Background(), u.ID, "guess", "new")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty new password", func(t *testing.T) {
		svc, _ := newSvc(t)
		err := svc.ChangePassword(context.Background(), uuid.New(), "old", "")
		require.ErrorIs(t, err, ErrEmptyPassword)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, d := newSvc(t)
		id := uuid.New()
		d.st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)

		err := svc.ChangePassword(context.Background(), id, "old", "new")
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestCurrentUser_HidesSecrets(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	u := testUser(t, svc, "pw")
	u.RefreshTokenHash = "digest"

	d.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)

	got, err := svc.CurrentUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.Empty(t, got.PasswordHash)
	require.Empty(t, got.RefreshTokenHash)
	require.NotEmpty(t, u.PasswordHash, "stored record must not be mutated")
}

func TestUpdateAccountDetails(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		svc, d := newSvc(t)
		u := testUser(t, svc, "pw")

		d.st.EXPECT().UpdateUser(gomock.Any(), u.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, upd storage.UserUpdate) (*models.User, error) {
				require.Equal(t, "Alice L", *upd.FullName)
				require.Equal(t, "new@x.com", *upd.Email)
				cp := *u
				cp.FullName, cp.Email = *upd.FullName, *upd.Email
				return &cp, nil
			})

		got, err := svc.UpdateAccountDetails(context.Background(), u.ID, " Alice L ", "NEW@x.com")
		require.NoError(t, err)
		require.Equal(t, "new@x.com", got.Email)
		require.Empty(t, got.PasswordHash)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, d := newSvc(t)
		id := uuid.New()
		d.st.EXPECT().UpdateUser(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrAlreadyExists)

		_, err := svc.UpdateAccountDetails(context.Background(), id, "A", "b@x.com")
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, err := svc.UpdateAccountDetails(context.Background(), uuid.New(), "", "b@x.com")
		require.ErrorIs(t, err, ErrRequiredFields)
	})
}

func TestUpdateAvatar(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		svc, d := newSvc(t)
		u := testUser(t, svc, "pw")

		d.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)
		d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, u.ID, gomock.Any()).Return("new-url", nil)
		d.st.EXPECT().UpdateUser(gomock.Any(), u.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, upd storage.UserUpdate) (*models.User, error) {
				require.Equal(t, "new-url", *upd.AvatarURL)
				require.Nil(t, upd.CoverImageURL)
				cp := *u
				cp.AvatarURL = *upd.AvatarURL
				return &cp, nil
			})

		got, err := svc.UpdateAvatar(context.Background(), u.ID, pngFile())
		require.NoError(t, err)
		require.Equal(t, "new-url", got.AvatarURL)
	})

	t.Run("upload failure leaves record untouched", func(t *testing.T) {
		svc, d := newSvc(t)
		u := testUser(t, svc, "pw")

		d.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)
		d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, u.ID, gomock.Any()).Return("", errors.New("s3"))

		_, err := svc.UpdateAvatar(context.Background(), u.ID, pngFile())
		require.ErrorIs(t, err, ErrMediaUploadFailed)
	})

	t.Run("update failure discards new file", func(t *testing.T) {
		svc, d := newSvc(t)
		u := testUser(t, svc, "pw")

		d.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)
		d.media.EXPECT().Store(gomock.Any(), storage.MediaAvatar, u.ID, gomock.Any()).Return("new-url", nil)
		d.st.EXPECT().UpdateUser(gomock.Any(), u.ID, gomock.Any()).Return(nil, errors.New("mongo down"))
		d.media.EXPECT().Remove(gomock.Any(), "new-url").Return(nil)

		_, err := svc.UpdateAvatar(context.Background(), u.ID, pngFile())
		require.ErrorIs(t, err, ErrPersistence)
	})

	t.Run("no file", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, err := svc.UpdateAvatar(context.Background(), uuid.New(), nil)
		require.ErrorIs(t, err, ErrAvatarRequired)
	})
}

func TestUpdateCoverImage(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	u := testUser(t, svc, "pw")

	d.st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)
	d.media.EXPECT().Store(gomock.Any(), storage.MediaCoverImage, u.ID, gomock.Any()).Return("cover-url", nil)
	d.st.EXPECT().UpdateUser(gomock.Any(), u.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, upd storage.UserUpdate) (*models.User, error) {
			require.Nil(t, upd.AvatarURL)
			cp := *u
			cp.CoverImageURL = *upd.CoverImageURL
			return &cp, nil
		})

	got, err := svc.UpdateCoverImage(context.Background(), u.ID, pngFile())
	require.NoError(t, err)
	require.Equal(t, "cover-url", got.CoverImageURL)

	_, err = svc.UpdateCoverImage(context.Background(), u.ID, nil)
	require.ErrorIs(t, err, ErrCoverImageRequired)
}
