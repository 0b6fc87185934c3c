package orgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aleksa11010/ScratchOrgBuilder/sfdx"
	"github.com/sirupsen/logrus"
)

const DefaultSnapshotPath = "org_list.json"

// Listing is an org listing and where it came from.
type Listing struct {
	Orgs sfdx.OrgListResult
	// FromSnapshot is set when the listing was read from disk and may be
	// older than the CLI's current view.
	FromSnapshot bool
	UpdatedAt    time.Time
}

// snapshot is the file layout. It is the CLI envelope, so a file written by
// `org list --json` can be dropped in as is.
type snapshot struct {
	Status int                `json:"status"`
	Result sfdx.OrgListResult `json:"result"`
}

// Cache serves the last saved listing right away and refreshes the file in
// the background for the next run.
type Cache struct {
	Path  string
	Fetch func(ctx context.Context) (sfdx.OrgListResult, error)
	Log   logrus.FieldLogger

	wg sync.WaitGroup
	mu sync.Mutex
}

func NewCache(path string, fetch func(ctx context.Context) (sfdx.OrgListResult, error), log logrus.FieldLogger) *Cache {
	if path == "" {
		path = DefaultSnapshotPath
	}
	return &Cache{
		Path:  path,
		Fetch: fetch,
		Log:   log.WithField("component", "cache"),
	}
}

// Get returns the snapshot when there is one and starts a refresh that the
// caller does not wait for. Without a snapshot the listing is fetched and
// saved before returning.
func (c *Cache) Get(ctx context.Context) (Listing, error) {
	if listing, ok := c.read(); ok {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			// Detached from ctx: the refresh is for the next run.
			if _, err := c.refresh(context.Background()); err != nil {
				c.Log.Warnf("org list refresh failed: %v", err)
			}
		}()
		return listing, nil
	}
	return c.refresh(ctx)
}

// Wait blocks until background refreshes started by Get have finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) refresh(ctx context.Context) (Listing, error) {
	orgs, err := c.Fetch(ctx)
	if err != nil {
		return Listing{}, err
	}
	if err := c.write(orgs); err != nil {
		return Listing{}, err
	}
	c.Log.Debugf("org list saved to %s", c.Path)
	return Listing{Orgs: orgs, UpdatedAt: time.Now()}, nil
}

func (c *Cache) read() (Listing, bool) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.Log.Warnf("org list snapshot unreadable: %v", err)
		}
		return Listing{}, false
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.Log.Warnf("org list snapshot %s is corrupt, fetching: %v", c.Path, err)
		return Listing{}, false
	}

	listing := Listing{Orgs: snap.Result, FromSnapshot: true}
	if info, err := os.Stat(c.Path); err == nil {
		listing.UpdatedAt = info.ModTime()
	}
	return listing, true
}

// write replaces the snapshot through a temp file in the same directory so a
// reader never sees a half written file.
func (c *Cache) write(orgs sfdx.OrgListResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(snapshot{Status: sfdx.StatusOK, Result: orgs})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.Path), filepath.Base(c.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("org list snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("org list snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("org list snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("org list snapshot: %w", err)
	}
	return nil
}
