package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/krishkalaria12/cropcare/apperr"
	"github.com/krishkalaria12/cropcare/session"
	"github.com/krishkalaria12/cropcare/testutil"
	"github.com/krishkalaria12/cropcare/ttlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *session.Provider) {
	t.Helper()
	sessions := session.NewProvider()
	svc := NewService(testutil.DB(t), sessions, testutil.Logger(t), Options{
		Secret:    "test-secret",
		URL:       "http://localhost:3000",
		AvatarDir: t.TempDir(),
	})
	return svc, sessions
}

func TestSignUpCreatesAccountAndSession(t *testing.T) {
	svc, sessions := newTestService(t)
	var events []session.Event
	defer sessions.Subscribe(func(e session.Event) { events = append(events, e) })()

	sess, err := svc.SignUp(context.Background(), SignUpInput{
		Email:       " Grower@Example.com ",
		Password:    "password123",
		DisplayName: "Green Thumb",
	})
	require.NoError(t, err)

	assert.Equal(t, "grower@example.com", sess.User.Email)
	assert.Equal(t, "Green Thumb", sess.User.DisplayName)
	assert.NotEqual(t, "password123", sess.User.PasswordHash)
	assert.NotEmpty(t, sess.Token)

	id, err := svc.ParseToken(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id.UserID)
	assert.Equal(t, "grower@example.com", id.Email)

	require.Len(t, events, 1)
	assert.Equal(t, session.SignedIn, events[0].Kind)
	assert.Equal(t, sess.User.ID, events[0].Identity.UserID)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Email: "not-an-email", Password: "password123"})
	assert.Equal(t, http.StatusBadRequest, apperr.As(err).Status)

	_, err = svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "123"})
	assert.Equal(t, http.StatusBadRequest, apperr.As(err).Status)

	_, err = svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, SignUpInput{Email: "A@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignIn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	sess, err := svc.SignIn(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = svc.SignIn(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesTokenAndPublishesEvent(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	first, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	second, err := svc.SignIn(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	var events []session.Event
	defer sessions.Subscribe(func(e session.Event) { events = append(events, e) })()

	require.NoError(t, svc.SignOut(ctx, first.Token))
	require.Len(t, events, 1)
	assert.Equal(t, session.SignedOut, events[0].Kind)
	assert.Equal(t, first.User.ID, events[0].Identity.UserID)

	_, err = svc.ParseToken(ctx, first.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// other sessions of the same user stay valid
	id, err := svc.ParseToken(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, id.UserID)

	assert.ErrorIs(t, svc.SignOut(ctx, first.Token), ErrInvalidToken)
	assert.ErrorIs(t, svc.SignOut(ctx, "garbage"), ErrInvalidToken)
	assert.Len(t, events, 1)
}

func TestSignOutSharesRevocationStore(t *testing.T) {
	revoked := ttlstore.NewMemory()
	db := testutil.DB(t)
	opts := Options{Secret: "test-secret", AvatarDir: t.TempDir(), Revoked: revoked}
	a := NewService(db, session.NewProvider(), testutil.Logger(t), opts)
	b := NewService(db, session.NewProvider(), testutil.Logger(t), opts)
	ctx := context.Background()

	sess, err := a.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, a.SignOut(ctx, sess.Token))

	_, err = b.ParseToken(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 1, revoked.Len())
}

func TestParseTokenRejectsGarbageAndExpired(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ParseToken(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	sess, err := svc.SignUp(context.Background(), SignUpInput{Email: "old@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	svc, _ := newTestService(t)
	other := NewService(testutil.DB(t), session.NewProvider(), testutil.Logger(t), Options{Secret: "other", AvatarDir: t.TempDir()})

	sess, err := other.SignUp(context.Background(), SignUpInput{Email: "x@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	u, err := svc.checkCredentials(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	assert.NotNil(t, u)

	u, err = svc.checkCredentials(ctx, "a@example.com", "nope")
	require.NoError(t, err)
	assert.Nil(t, u)
}
