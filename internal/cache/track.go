package cache

import (
	"sync"

	"github.com/pitwall/pitwall/internal/geo"
	"github.com/pitwall/pitwall/pkg/core"
)

// TrackCache keeps flattened track outlines so every frame can place cars
// without re-parsing SVG path data.
type TrackCache struct {
	mu     sync.RWMutex
	tracks map[string]*geo.TrackPath
}

// NewTrackCache creates an empty TrackCache
func NewTrackCache() *TrackCache {
	return &TrackCache{
		tracks: make(map[string]*geo.TrackPath),
	}
}

// Get returns the outline of track, parsing it on first use.
func (c *TrackCache) Get(track core.Track) (*geo.TrackPath, error) {
	c.mu.RLock()
	p, ok := c.tracks[track.Name]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := geo.ParseTrackPath(track.Path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.tracks[track.Name]; ok {
		return existing, nil
	}
	c.tracks[track.Name] = p
	return p, nil
}

// Len returns the number of cached outlines
func (c *TrackCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}
