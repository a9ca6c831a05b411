package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/para/internal/supabase"
)

type fakeProfiles struct {
	mu       sync.Mutex
	rows     map[string]supabase.Profile
	fetchErr error
	writeErr error
	delay    time.Duration

	fetches, creates, updates atomic.Int32
	lastToken                 string
	tokens                    []string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[string]supabase.Profile{}}
}

func (f *fakeProfiles) FetchProfile(ctx context.Context, id, token string) (supabase.Profile, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return supabase.Profile{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastToken = token
	if f.fetchErr != nil {
		return supabase.Profile{}, f.fetchErr
	}
	p, ok := f.rows[id]
	if !ok {
		return supabase.Profile{}, supabase.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) CreateProfile(_ context.Context, p supabase.Profile, _ string) error {
	f.creates.Add(1)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	f.rows[p.ID] = p
	f.mu.Unlock()
	return nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, p supabase.Profile, _ string) error {
	f.updates.Add(1)
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	cur := f.rows[p.ID]
	if p.Username != "" {
		cur.Username = p.Username
	}
	if p.Email != "" {
		cur.Email = p.Email
	}
	f.rows[p.ID] = cur
	f.mu.Unlock()
	return nil
}

var remoteID = Identity{Subject: "u-1", Email: "alice@x.com", Roles: []string{RoleUser}}

func TestEnsure_CreatesWhenMissing(t *testing.T) {
	f := newFakeProfiles()
	p := NewProvisioner(f)

	got, err := p.Ensure(context.Background(), ProvisionRequest{Identity: remoteID, Token: "tok", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, supabase.Profile{ID: "u-1", Username: "alice", Email: "alice@x.com"}, got)
	assert.EqualValues(t, 1, f.creates.Load())
	assert.Zero(t, f.updates.Load())
	assert.Equal(t, "tok", f.lastToken)
}

func TestEnsure_CreateFallsBackToEmailLocalPart(t *testing.T) {
	f := newFakeProfiles()
	got, err := NewProvisioner(f).Ensure(context.Background(), ProvisionRequest{Identity: remoteID})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestEnsure_FoundWithoutAttributesDoesNotUpdate(t *testing.T) {
	f := newFakeProfiles()
	f.rows["u-1"] = supabase.Profile{ID: "u-1", Username: "alice", Email: "alice@x.com"}

	got, err := NewProvisioner(f).Ensure(context.Background(), ProvisionRequest{Identity: remoteID, FallbackUsername: "other"})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Zero(t, f.updates.Load())
	assert.Zero(t, f.creates.Load())
}

func TestEnsure_FoundWithSameAttributesDoesNotUpdate(t *testing.T) {
	f := newFakeProfiles()
	f.rows["u-1"] = supabase.Profile{ID: "u-1", Username: "alice", Email: "alice@x.com"}

	_, err := NewProvisioner(f).Ensure(context.Background(), ProvisionRequest{Identity: remoteID, Username: "alice"})
	require.NoError(t, err)
	assert.Zero(t, f.updates.Load())
}

func TestEnsure_FoundWithNewAttributesUpdates(t *testing.T) {
	f := newFakeProfiles()
	f.rows["u-1"] = supabase.Profile{ID: "u-1", Username: "alice", Email: "alice@x.com"}

	got, err := NewProvisioner(f).Ensure(context.Background(), ProvisionRequest{Identity: remoteID, Username: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, supabase.Profile{ID: "u-1", Username: "alice2", Email: "alice@x.com"}, got)
	assert.EqualValues(t, 1, f.updates.Load())
	assert.Equal(t, "alice2", f.rows["u-1"].Username)
}

func TestEnsure_FailuresCollapseToProvisioningFailed(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := newFakeProfiles()
		f.writeErr = supabase.ErrRequestFailed
		_, err := NewProvisioner(f).Ensure(context.Background(), ProvisionRequest{Identity: remoteID})
		require.ErrorIs(t, err, ErrProvisioningFailed)
	})
	t.Run("update", func(t *testing.T) {
		f := newFakeProfiles()
		f.rows["u-1"] = supabase.Profile{ID: "u-1", Username: "alice"}
		f.writeErr = supabase.ErrRequestFailed
		_, err := NewProvisioner(f).Ensure(context.Background(), ProvisionRequest{Identity: remoteID, Username: "bob"})
		require.ErrorIs(t, err, ErrProvisioningFailed)
	})
	t.Run("fetch", func(t *testing.T) {
		f := newFakeProfiles()
		f.fetchErr = errors.New("malformed")
		_, err := NewProvisioner(f).Ensure(context.Background(), ProvisionRequest{Identity: remoteID})
		require.ErrorIs(t, err, ErrProvisioningFailed)
		assert.Zero(t, f.creates.Load())
	})
	t.Run("no subject", func(t *testing.T) {
		_, err := NewProvisioner(newFakeProfiles()).Ensure(context.Background(), ProvisionRequest{})
		require.ErrorIs(t, err, ErrProvisioningFailed)
	})
}

func TestEnsure_ConcurrentCallsForSameUser(t *testing.T) {
	f := newFakeProfiles()
	f.delay = 20 * time.Millisecond
	p := NewProvisioner(f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Ensure(context.Background(), ProvisionRequest{Identity: remoteID, Token: "t", Username: "alice"})
			assert.NoError(t, err)
			assert.Equal(t, "alice", got.Username)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8, f.fetches.Load())
	assert.Equal(t, "alice", f.rows["u-1"].Username)
}

func TestEnsure_CancelledCallerDoesNotAffectOthers(t *testing.T) {
	f := newFakeProfiles()
	f.delay = 50 * time.Millisecond
	p := NewProvisioner(f)

	ctxA, cancelA := context.WithCancel(context.Background())
	var errA, errB error
	var gotB supabase.Profile

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = p.Ensure(ctxA, ProvisionRequest{Identity: remoteID, Token: "token-A", Username: "alice"})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		gotB, errB = p.Ensure(context.Background(), ProvisionRequest{Identity: remoteID, Token: "token-B", Username: "alice"})
	}()
	time.Sleep(10 * time.Millisecond)
	cancelA()
	wg.Wait()

	require.ErrorIs(t, errA, ErrProvisioningFailed)
	require.NoError(t, errB)
	assert.Equal(t, "alice", gotB.Username)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.tokens, "token-A")
	assert.Contains(t, f.tokens, "token-B")
}

func TestHook_UsesBearerAndMetadata(t *testing.T) {
	f := newFakeProfiles()
	hook := NewProvisioner(f).Hook()

	raw := json.RawMessage(`{"access_token":"at","user":{"id":"u-1","user_metadata":{"username":"ally"}}}`)
	ctx := WithBearer(context.Background(), "at")
	require.NoError(t, hook(ctx, remoteID, raw))

	assert.Equal(t, "ally", f.rows["u-1"].Username)
	assert.Equal(t, "at", f.lastToken)
}

func TestMetadataUsername(t *testing.T) {
	assert.Equal(t, "a", metadataUsername(json.RawMessage(`{"user_metadata":{"username":"a"}}`)))
	assert.Equal(t, "", metadataUsername(json.RawMessage(`not json`)))
	assert.Equal(t, "", metadataUsername(nil))
}
