package orgs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(usernames ...string) sfdx.OrgListResult {
	var res sfdx.OrgListResult
	for _, u := range usernames {
		res.ScratchOrgs = append(res.ScratchOrgs, sfdx.Org{Username: u})
	}
	return res
}

func TestCache_ServesSnapshotThenRefreshes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org_list.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"status":0,"result":{"scratchOrgs":[{"username":"old@x.com"}]}}`), 0o644))

	release := make(chan struct{})
	var fetches int32
	fetch := func(context.Context) (sfdx.OrgListResult, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return listing("new@x.com"), nil
	}
	log, _ := logtest.NewNullLogger()
	cache := NewCache(path, fetch, log)

	// The fetch is blocked, so this only returns if the snapshot is served
	// without waiting for the CLI.
	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, got.FromSnapshot)
	assert.Equal(t, "old@x.com", got.Orgs.ScratchOrgs[0].Username)

	close(release)
	cache.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))

	next, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", next.Orgs.ScratchOrgs[0].Username)
	cache.Wait()
}

func TestCache_BootstrapsWithoutSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org_list.json")
	log, _ := logtest.NewNullLogger()
	cache := NewCache(path, func(context.Context) (sfdx.OrgListResult, error) {
		return listing("fresh@x.com"), nil
	}, log)

	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, got.FromSnapshot)
	assert.Equal(t, "fresh@x.com", got.Orgs.ScratchOrgs[0].Username)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	resp, err := sfdx.ParseResponse(data)
	require.NoError(t, err)
	var saved sfdx.OrgListResult
	require.NoError(t, resp.Decode(&saved))
	assert.Equal(t, "fresh@x.com", saved.ScratchOrgs[0].Username)

	matches, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCache_CorruptSnapshotIsRefetched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org_list.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"status":0,"result":`), 0o644))

	log, hook := logtest.NewNullLogger()
	cache := NewCache(path, func(context.Context) (sfdx.OrgListResult, error) {
		return listing("fresh@x.com"), nil
	}, log)

	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, got.FromSnapshot)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCache_BootstrapErrorReturned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org_list.json")
	boom := errors.New("no devhub")
	log, _ := logtest.NewNullLogger()
	cache := NewCache(path, func(context.Context) (sfdx.OrgListResult, error) {
		return sfdx.OrgListResult{}, boom
	}, log)

	_, err := cache.Get(context.Background())
	assert.Equal(t, boom, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCache_BackgroundErrorKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org_list.json")
	original := []byte(`{"status":0,"result":{"scratchOrgs":[{"username":"old@x.com"}]}}`)
	require.NoError(t, os.WriteFile(path, original, 0o644))

	log, hook := logtest.NewNullLogger()
	cache := NewCache(path, func(context.Context) (sfdx.OrgListResult, error) {
		return sfdx.OrgListResult{}, errors.New("offline")
	}, log)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	cache.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "offline")
}

func TestCache_SnapshotIndexesLikeFreshListing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org_list.json")

	resp, err := sfdx.ParseResponse([]byte(`{"status":0,"result":{"nonScratchOrgs":[{"username":"hub@x.com"}],"salesforceOrgs":[],"scratchOrgs":[{"username":"s1@x.com"}]}}`))
	require.NoError(t, err)
	var fromCLI sfdx.OrgListResult
	require.NoError(t, resp.Decode(&fromCLI))

	log, _ := logtest.NewNullLogger()
	cache := NewCache(path, func(context.Context) (sfdx.OrgListResult, error) {
		return fromCLI, nil
	}, log)

	fresh, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.False(t, fresh.FromSnapshot)

	saved, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.True(t, saved.FromSnapshot)
	cache.Wait()

	freshIdx := BuildIndex(fresh.Orgs)
	savedIdx := BuildIndex(saved.Orgs)
	assert.Equal(t, 1, freshIdx.Len())
	assert.Equal(t, freshIdx.Entries, savedIdx.Entries)
	assert.Equal(t, freshIdx.Default, savedIdx.Default)
}
