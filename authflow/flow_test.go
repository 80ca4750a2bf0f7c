package authflow_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-search-reporter/authflow"
	"github.com/jrsteele09/go-search-reporter/authflow/staterepo"
	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
	"github.com/jrsteele09/go-search-reporter/internal/testidp"
	"github.com/jrsteele09/go-search-reporter/sessions"
)

type flowFixture struct {
	idp   *testidp.IDP
	store *sessions.InMemoryStore
	flow  *authflow.Service
}

func setupFlow(t *testing.T) *flowFixture {
	t.Helper()

	idp := testidp.New(t)
	store := sessions.NewInMemoryStore(time.Hour)
	t.Cleanup(store.Close)

	flow, err := authflow.New(context.Background(), authflow.Config{
		IssuerURL:    idp.Issuer(),
		ClientID:     idp.ClientID,
		ClientSecret: idp.ClientSecret,
		RedirectURL:  "http://localhost:8080/auth",
		Scopes:       []string{"openid", "email", "profile"},
	}, staterepo.NewInMemoryRepo(0), store)
	require.NoError(t, err)

	return &flowFixture{idp: idp, store: store, flow: flow}
}

// initiate starts a login attempt and returns the state and nonce embedded
// in the provider redirect URL.
func (f *flowFixture) initiate(t *testing.T, sessionID, returnURL string) (state, nonce string) {
	t.Helper()

	authURL, err := f.flow.Initiate(sessionID, returnURL)
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	require.NotEmpty(t, query.Get("state"))
	require.NotEmpty(t, query.Get("nonce"))
	require.Equal(t, f.idp.ClientID, query.Get("client_id"))
	require.Equal(t, "code", query.Get("response_type"))
	return query.Get("state"), query.Get("nonce")
}

func TestCallback_Success(t *testing.T) {
	f := setupFlow(t)

	session, err := f.store.Create()
	require.NoError(t, err)

	state, nonce := f.initiate(t, session.ID, "/after")
	code := f.idp.IssueCode(nonce)

	result, err := f.flow.Callback(context.Background(), session.ID, state, code)
	require.NoError(t, err)
	require.Equal(t, "john.doe@example.com", result.Identity.Email)
	require.Equal(t, "John Doe", result.Identity.Name)
	require.Equal(t, "/after", result.ReturnURL)
	require.NotEmpty(t, result.Identity.AccessToken)
	require.NotEmpty(t, result.Identity.RefreshToken)

	stored, err := f.store.Get(session.ID)
	require.NoError(t, err)
	require.True(t, stored.Authenticated())
	require.Equal(t, "john.doe@example.com", stored.Identity.Email)
}

func TestCallback_WrongState(t *testing.T) {
	f := setupFlow(t)

	session, err := f.store.Create()
	require.NoError(t, err)

	_, nonce := f.initiate(t, session.ID, "")
	code := f.idp.IssueCode(nonce)

	_, err = f.flow.Callback(context.Background(), session.ID, "some-other-state", code)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	stored, err := f.store.Get(session.ID)
	require.NoError(t, err)
	require.False(t, stored.Authenticated())
}

func TestCallback_Replay(t *testing.T) {
	f := setupFlow(t)

	session, err := f.store.Create()
	require.NoError(t, err)

	state, nonce := f.initiate(t, session.ID, "")
	code := f.idp.IssueCode(nonce)

	_, err = f.flow.Callback(context.Background(), session.ID, state, code)
	require.NoError(t, err)

	// Replaying the same redirect must fail before any token call and must
	// not re-authenticate.
	_, err = f.flow.Callback(context.Background(), session.ID, state, code)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestCallback_StateBoundToOtherSession(t *testing.T) {
	f := setupFlow(t)

	victim, err := f.store.Create()
	require.NoError(t, err)
	attacker, err := f.store.Create()
	require.NoError(t, err)

	state, nonce := f.initiate(t, victim.ID, "")
	code := f.idp.IssueCode(nonce)

	_, err = f.flow.Callback(context.Background(), attacker.ID, state, code)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestCallback_ExchangeRejected(t *testing.T) {
	f := setupFlow(t)
	f.idp.RejectExchange = true

	session, err := f.store.Create()
	require.NoError(t, err)

	state, nonce := f.initiate(t, session.ID, "")
	code := f.idp.IssueCode(nonce)

	_, err = f.flow.Callback(context.Background(), session.ID, state, code)
	require.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)

	stored, err := f.store.Get(session.ID)
	require.NoError(t, err)
	require.False(t, stored.Authenticated())
}

func TestCallback_NonceMismatch(t *testing.T) {
	f := setupFlow(t)

	session, err := f.store.Create()
	require.NoError(t, err)

	state, _ := f.initiate(t, session.ID, "")
	code := f.idp.IssueCode("a-different-nonce")

	_, err = f.flow.Callback(context.Background(), session.ID, state, code)
	require.ErrorIs(t, err, apperrors.ErrInvalidIdentityToken)

	stored, err := f.store.Get(session.ID)
	require.NoError(t, err)
	require.False(t, stored.Authenticated())
}

func TestLogout(t *testing.T) {
	f := setupFlow(t)

	session, err := f.store.Create()
	require.NoError(t, err)

	state, nonce := f.initiate(t, session.ID, "")
	_, err = f.flow.Callback(context.Background(), session.ID, state, f.idp.IssueCode(nonce))
	require.NoError(t, err)

	require.NoError(t, f.flow.Logout(session.ID))

	stored, err := f.store.Get(session.ID)
	require.NoError(t, err)
	require.False(t, stored.Authenticated())

	// Logout is idempotent, including for unknown sessions.
	require.NoError(t, f.flow.Logout(session.ID))
	require.NoError(t, f.flow.Logout("no-such-session"))
}

func TestRefresh(t *testing.T) {
	f := setupFlow(t)

	session, err := f.store.Create()
	require.NoError(t, err)

	state, nonce := f.initiate(t, session.ID, "")
	result, err := f.flow.Callback(context.Background(), session.ID, state, f.idp.IssueCode(nonce))
	require.NoError(t, err)

	refreshed, err := f.flow.Refresh(context.Background(), result.Identity)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, result.Identity.AccessToken, refreshed.AccessToken)
	require.Equal(t, result.Identity.Email, refreshed.Email)
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	f := setupFlow(t)

	_, err := f.flow.Refresh(context.Background(), sessions.Identity{AccessToken: "only-access"})
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}
