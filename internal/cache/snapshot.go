package cache

import (
	"strings"
	"time"

	"veraz/internal/core"
)

// Snapshots keeps the raw registry answer of each user's recent queries so
// the export can be produced without a second upstream call. Only raw
// reports are stored; every view is recomputed from them.
type Snapshots struct {
	lru *LRUCache[core.Report]
}

func NewSnapshots(maxSize int, ttl time.Duration) *Snapshots {
	return &Snapshots{lru: NewLRUCache[core.Report](maxSize, ttl)}
}

func snapshotKey(username, cuit string) string {
	return strings.ToLower(username) + "|" + cuit
}

func (s *Snapshots) Get(username, cuit string) (core.Report, bool) {
	return s.lru.Get(snapshotKey(username, cuit))
}

func (s *Snapshots) Put(username string, report core.Report) {
	s.lru.Set(snapshotKey(username, report.CUIT), report)
}

func (s *Snapshots) CleanExpired() int {
	return s.lru.CleanExpired()
}

func (s *Snapshots) Stats() Stats {
	return s.lru.Stats()
}
