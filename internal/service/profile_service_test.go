package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/matrimony/internal/domain"
)

func TestViewRecordsFirstVisitOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	card, err := env.profiles.View(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, b, card.ID)
	assert.Equal(t, "b", card.DisplayName)
	assert.Nil(t, card.PhotoURL)
	require.NotNil(t, card.Relationship)
	assert.False(t, card.Relationship.IsConnected)

	_, err = env.profiles.View(ctx, a, b)
	require.NoError(t, err)

	visits, err := env.interactions.ListReceived(ctx, b, domain.InteractionView, "", 0)
	require.NoError(t, err)
	assert.Len(t, visits, 1)

	_, err = env.profiles.View(ctx, b, b)
	require.NoError(t, err)

	_, err = env.profiles.View(ctx, a, 777)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpressInterest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	in, err := env.profiles.ExpressInterest(ctx, a, b, "")
	require.NoError(t, err)
	assert.Equal(t, domain.InteractionInterest, in.Type)

	_, err = env.profiles.ExpressInterest(ctx, a, b, "")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NotErrorIs(t, err, ErrRequestPending)

	_, err = env.profiles.ExpressInterest(ctx, a, a, "")
	assert.ErrorIs(t, err, ErrSelfTarget)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	me := env.user(t, "me")
	b, c, d, e := env.user(t, "b"), env.user(t, "c"), env.user(t, "d"), env.user(t, "e")

	// b and c are interested in me; I reciprocated c.
	_, err := env.profiles.ExpressInterest(ctx, b, me, "")
	require.NoError(t, err)
	_, err = env.profiles.ExpressInterest(ctx, c, me, "")
	require.NoError(t, err)
	_, err = env.profiles.ExpressInterest(ctx, me, c, "")
	require.NoError(t, err)

	_, err = env.profiles.View(ctx, d, me)
	require.NoError(t, err)

	_, err = env.connections.SendRequest(ctx, e, me, "")
	require.NoError(t, err)

	m := env.match(t, d, me)
	_, err = env.conversations.Send(ctx, m.ID, d, "hello")
	require.NoError(t, err)

	dash, err := env.profiles.Dashboard(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.PendingInterests)
	assert.Equal(t, 1, dash.ActiveMatches)
	assert.Equal(t, 1, dash.UnreadMessages)
	assert.Equal(t, 1, dash.PendingRequests)
	require.Len(t, dash.RecentVisitors, 1)
	assert.Equal(t, d, dash.RecentVisitors[0].OtherUserID)

	// interests from b and c, d's view, e's request, d's accepted request
	assert.Len(t, dash.RecentActivity, 5)
	assert.Equal(t, d, dash.RecentActivity[0].OtherUserID)
}

func TestDashboardEmpty(t *testing.T) {
	env := newTestEnv(t)
	dash, err := env.profiles.Dashboard(context.Background(), env.user(t, "me"))
	require.NoError(t, err)
	assert.Zero(t, dash.PendingInterests)
	assert.NotNil(t, dash.RecentVisitors)
	assert.NotNil(t, dash.RecentActivity)
}

func TestSetPrimaryPhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")

	_, err := env.profiles.SetPrimaryPhoto(ctx, a, domain.PhotoKeyPrefix(b)+"x.jpg")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.profiles.SetPrimaryPhoto(ctx, a, domain.PhotoKeyPrefix(a)+"1.jpg")
	require.NoError(t, err)
	second, err := env.profiles.SetPrimaryPhoto(ctx, a, domain.PhotoKeyPrefix(a)+"2.jpg")
	require.NoError(t, err)

	primary, err := env.photoRepo.GetPrimary(ctx, a)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, second.ObjectKey, primary.ObjectKey)

	card, err := env.profiles.View(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, card.PhotoURL)
	assert.Equal(t, "https://cdn.test/"+second.ObjectKey, *card.PhotoURL)
}

func TestPhotoAlbum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.user(t, "a"), env.user(t, "b")
	key := func(name string) string { return domain.PhotoKeyPrefix(a) + name }

	empty, err := env.profiles.ListPhotos(ctx, a)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = env.profiles.AddPhoto(ctx, a, domain.PhotoKeyPrefix(b)+"x.jpg")
	assert.ErrorIs(t, err, ErrForbidden)

	first, err := env.profiles.AddPhoto(ctx, a, key("1.jpg"))
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)
	require.NotNil(t, first.URL)
	assert.Equal(t, "https://cdn.test/"+key("1.jpg"), *first.URL)

	second, err := env.profiles.AddPhoto(ctx, a, key("2.jpg"))
	require.NoError(t, err)
	assert.False(t, second.IsPrimary)

	_, err = env.profiles.AddPhoto(ctx, a, key("2.jpg"))
	assert.ErrorIs(t, err, ErrDuplicate)

	album, err := env.profiles.ListPhotos(ctx, a)
	require.NoError(t, err)
	require.Len(t, album, 2)
	assert.Equal(t, first.ID, album[0].ID)
	require.NotNil(t, album[1].URL)

	assert.ErrorIs(t, env.profiles.DeletePhoto(ctx, b, first.ID), ErrForbidden)
	assert.ErrorIs(t, env.profiles.DeletePhoto(ctx, a, first.ID+1000), ErrNotFound)
	assert.Empty(t, env.media.deletedKeys())

	require.NoError(t, env.profiles.DeletePhoto(ctx, a, first.ID))
	assert.Equal(t, []string{key("1.jpg")}, env.media.deletedKeys())

	card, err := env.profiles.View(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, card.PhotoURL)
	assert.Equal(t, "https://cdn.test/"+key("2.jpg"), *card.PhotoURL, "remaining photo takes over")

	assert.ErrorIs(t, env.profiles.DeletePhoto(ctx, a, first.ID), ErrNotFound)
}

func TestDeletePhotoSurvivesMediaFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a")

	photo, err := env.profiles.AddPhoto(ctx, a, domain.PhotoKeyPrefix(a)+"1.jpg")
	require.NoError(t, err)

	env.media.deleteErr = errors.New("bucket unavailable")
	require.NoError(t, env.profiles.DeletePhoto(ctx, a, photo.ID))

	album, err := env.profiles.ListPhotos(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, album)
}
