package service

import "heapcensus/internal/services/census/domain"

// Guard answers whether a captured suspend episode is still the live one
type Guard struct {
	src domain.EpisodeSource
}

// NewGuard returns a Guard reading episodes from src
func NewGuard(src domain.EpisodeSource) Guard { return Guard{src: src} }

// Capture returns the current episode, nil when the target is running or detached
func (g Guard) Capture() *domain.Episode {
	if g.src == nil {
		return nil
	}
	return g.src.CurrentEpisode()
}

// StillValid reports whether captured is non nil and is the current episode
func (g Guard) StillValid(captured *domain.Episode) bool {
	return captured != nil && g.Capture() == captured
}
