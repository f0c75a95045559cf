package network

import (
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

const (
	cacheNumCounters = 1e4
	cacheMaxCost     = 1e3
	cacheBufferItems = 64
)

// Profiles hands out connection profiles, building each at most once.
// Profiles are immutable once built and safe to share between sessions.
type Profiles struct {
	topology *Topology
	cache    *ristretto.Cache[string, *ConnectionProfile]
	sfg      singleflight.Group
}

// NewProfiles returns a profile cache over t.
func NewProfiles(t *Topology) (*Profiles, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *ConnectionProfile]{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
		Cost:        func(*ConnectionProfile) int64 { return 1 },
	})
	if err != nil {
		return nil, err
	}
	return &Profiles{topology: t, cache: c}, nil
}

// Topology returns the topology the profiles are built from.
func (p *Profiles) Topology() *Topology {
	return p.topology
}

// Get returns the profile for orgID (organization id or MSP id).
func (p *Profiles) Get(orgID string) (*ConnectionProfile, error) {
	if profile, ok := p.cache.Get(orgID); ok {
		return profile, nil
	}
	res, err, _ := p.sfg.Do(orgID, func() (any, error) {
		profile, err := Build(p.topology, orgID)
		if err != nil {
			return nil, err
		}
		p.cache.Set(orgID, profile, 0)
		p.cache.Wait()
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*ConnectionProfile), nil
}

// Warm builds the profile of every organization, surfacing config errors at start-up.
func (p *Profiles) Warm() error {
	for _, org := range p.topology.Organizations {
		if _, err := p.Get(org.ID); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the cache.
func (p *Profiles) Close() {
	p.cache.Close()
}
