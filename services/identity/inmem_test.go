package identitysvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeevaneswaran/examportal/core/auth"
)

type recordedEvent struct {
	event auth.Event
	sess  *auth.Session
}

func recordEvents(c Client) *[]recordedEvent {
	events := new([]recordedEvent)
	c.Subscribe(func(event auth.Event, sess *auth.Session) {
		*events = append(*events, recordedEvent{event: event, sess: sess})
	})
	return events
}

func TestInMemProvider_signUp(t *testing.T) {
	p := NewInMemProvider(time.Hour)
	c := p.NewClientSession("")
	events := recordEvents(c)
	ctx := context.Background()

	meta := auth.Metadata{Role: "teacher", FirstName: "Grace"}
	sess, err := c.SignUp(ctx, "grace@test.cd", "n0neShallPass", meta)
	assert.NoError(t, err)
	assert.NotEmpty(t, sess.Identity.ID)
	assert.Equal(t, "grace@test.cd", sess.Identity.Email)
	assert.Equal(t, meta, sess.Identity.Metadata)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.Equal(t, sess, c.CurrentSession())

	if assert.Len(t, *events, 1) {
		assert.Equal(t, auth.EventSignedIn, (*events)[0].event)
	}

	_, err = p.NewClientSession("").SignUp(ctx, "grace@test.cd", "0therPassw0rd", auth.Metadata{})
	assert.Equal(t, ErrEmailTaken, err)
}

func TestInMemProvider_signIn(t *testing.T) {
	p := NewInMemProvider(time.Hour)
	ctx := context.Background()
	_, err := p.NewClientSession("").SignUp(ctx, "grace@test.cd", "n0neShallPass", auth.Metadata{})
	assert.NoError(t, err)

	c := p.NewClientSession("")
	sess, err := c.SignIn(ctx, "grace@test.cd", "n0neShallPass")
	assert.NoError(t, err)
	assert.Equal(t, "grace@test.cd", sess.Identity.Email)

	_, err = c.SignIn(ctx, "grace@test.cd", "wr0ngPassw0rd")
	assert.Equal(t, ErrInvalidCredentials, err)

	_, err = c.SignIn(ctx, "ghost@test.cd", "n0neShallPass")
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestInMemProvider_cachedSession(t *testing.T) {
	p := NewInMemProvider(time.Hour)
	ctx := context.Background()

	c := p.NewClientSession("")
	sess, err := c.SignUp(ctx, "grace@test.cd", "n0neShallPass", auth.Metadata{})
	assert.NoError(t, err)

	t.Run("no cached token", func(t *testing.T) {
		got, err := p.NewClientSession("").CachedSession(ctx)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("restores and rotates", func(t *testing.T) {
		restored := p.NewClientSession(sess.RefreshToken)
		got, err := restored.CachedSession(ctx)
		assert.NoError(t, err)
		if assert.NotNil(t, got) {
			assert.Equal(t, sess.Identity.ID, got.Identity.ID)
			assert.NotEqual(t, sess.RefreshToken, got.RefreshToken, "refresh tokens are single-use")
		}

		// the redeemed token cannot be replayed
		replayed, err := p.NewClientSession(sess.RefreshToken).CachedSession(ctx)
		assert.NoError(t, err)
		assert.Nil(t, replayed)
	})
}

func TestInMemProvider_signOut(t *testing.T) {
	p := NewInMemProvider(time.Hour)
	ctx := context.Background()

	c := p.NewClientSession("")
	sess, err := c.SignUp(ctx, "grace@test.cd", "n0neShallPass", auth.Metadata{})
	assert.NoError(t, err)
	events := recordEvents(c)

	assert.NoError(t, c.SignOut(ctx))
	assert.Nil(t, c.CurrentSession())

	if assert.Len(t, *events, 1) {
		assert.Equal(t, auth.EventSignedOut, (*events)[0].event)
		assert.Nil(t, (*events)[0].sess)
	}

	// the revoked refresh token no longer restores a session
	got, err := p.NewClientSession(sess.RefreshToken).CachedSession(ctx)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemProvider_refreshSession(t *testing.T) {
	p := NewInMemProvider(time.Hour)
	ctx := context.Background()

	c := p.NewClientSession("").(*inmemClient)
	sess, err := c.SignUp(ctx, "grace@test.cd", "n0neShallPass", auth.Metadata{})
	assert.NoError(t, err)
	events := recordEvents(c)

	refreshed := c.RefreshSession()
	if assert.NotNil(t, refreshed) {
		assert.Equal(t, sess.Identity.ID, refreshed.Identity.ID)
		assert.NotEqual(t, sess.RefreshToken, refreshed.RefreshToken)
	}
	if assert.Len(t, *events, 1) {
		assert.Equal(t, auth.EventTokenRefreshed, (*events)[0].event)
	}
}
