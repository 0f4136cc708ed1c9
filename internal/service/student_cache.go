package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/daksh-api/internal/models"
)

// StudentCache holds enriched student records per session. Entries for a
// session disappear when the session logs out, and the logged-out session id
// stays revoked until its token would have expired.
type StudentCache interface {
	Get(ctx context.Context, sessionID string, ref models.StudentRef) (*models.SessionStudent, bool)
	Set(ctx context.Context, sessionID string, student *models.SessionStudent)
	Invalidate(ctx context.Context, sessionID string)
	Revoke(ctx context.Context, sessionID string, until time.Time)
	Revoked(ctx context.Context, sessionID string) bool
}

type memoryCacheEntry struct {
	student   models.SessionStudent
	expiresAt time.Time
}

// MemoryStudentCache is the in-process StudentCache. Expired entries and
// revocations are swept on every write.
type MemoryStudentCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]map[models.StudentRef]memoryCacheEntry
	revoked map[string]time.Time
}

// NewMemoryStudentCache creates a cache whose entries live for ttl.
func NewMemoryStudentCache(ttl time.Duration) *MemoryStudentCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStudentCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]map[models.StudentRef]memoryCacheEntry),
		revoked: make(map[string]time.Time),
	}
}

// Get returns the unexpired entry for ref within the session.
func (c *MemoryStudentCache) Get(_ context.Context, sessionID string, ref models.StudentRef) (*models.SessionStudent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[sessionID][ref]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries[sessionID], ref)
		return nil, false
	}
	student := entry.student
	return &student, true
}

// Set caches student for the session.
func (c *MemoryStudentCache) Set(_ context.Context, sessionID string, student *models.SessionStudent) {
	if student == nil || sessionID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	if c.entries[sessionID] == nil {
		c.entries[sessionID] = make(map[models.StudentRef]memoryCacheEntry)
	}
	c.entries[sessionID][student.Ref()] = memoryCacheEntry{student: *student, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops every entry of the session.
func (c *MemoryStudentCache) Invalidate(_ context.Context, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// Revoke drops the session entries and keeps the id revoked until the given time.
func (c *MemoryStudentCache) Revoke(_ context.Context, sessionID string, until time.Time) {
	if sessionID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	delete(c.entries, sessionID)
	if until.After(c.now()) {
		c.revoked[sessionID] = until
	}
}

// Revoked reports whether the session logged out.
func (c *MemoryStudentCache) Revoked(_ context.Context, sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.revoked[sessionID]
	return ok && c.now().Before(until)
}

// Len reports how many sessions currently hold entries.
func (c *MemoryStudentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep drops expired entries and lapsed revocations. Callers hold mu.
func (c *MemoryStudentCache) sweep() {
	now := c.now()
	for sessionID, refs := range c.entries {
		for ref, entry := range refs {
			if now.After(entry.expiresAt) {
				delete(refs, ref)
			}
		}
		if len(refs) == 0 {
			delete(c.entries, sessionID)
		}
	}
	for sessionID, until := range c.revoked {
		if !now.Before(until) {
			delete(c.revoked, sessionID)
		}
	}
}

// RedisStudentCache stores entries through CacheService so several API
// instances share them.
type RedisStudentCache struct {
	cache *CacheService
	ttl   time.Duration
}

// NewRedisStudentCache wraps a cache service.
func NewRedisStudentCache(cache *CacheService, ttl time.Duration) *RedisStudentCache {
	return &RedisStudentCache{cache: cache, ttl: ttl}
}

func revokedSessionKey(sessionID string) string {
	return "revoked:" + sessionID
}

func studentCacheKey(sessionID string, ref models.StudentRef) string {
	return fmt.Sprintf("student:%s:%s:%s:%s", sessionID, ref.SchoolID, ref.ClassID, ref.StudentID)
}

func (c *RedisStudentCache) Get(ctx context.Context, sessionID string, ref models.StudentRef) (*models.SessionStudent, bool) {
	var student models.SessionStudent
	hit, err := c.cache.Get(ctx, studentCacheKey(sessionID, ref), &student)
	if err != nil || !hit {
		return nil, false
	}
	return &student, true
}

func (c *RedisStudentCache) Set(ctx context.Context, sessionID string, student *models.SessionStudent) {
	if student == nil || sessionID == "" {
		return
	}
	_ = c.cache.Set(ctx, studentCacheKey(sessionID, student.Ref()), student, c.ttl)
}

func (c *RedisStudentCache) Invalidate(ctx context.Context, sessionID string) {
	_ = c.cache.Invalidate(ctx, fmt.Sprintf("student:%s:*", sessionID))
}

func (c *RedisStudentCache) Revoke(ctx context.Context, sessionID string, until time.Time) {
	if sessionID == "" {
		return
	}
	c.Invalidate(ctx, sessionID)
	ttl := time.Until(until)
	if ttl <= 0 {
		return
	}
	_ = c.cache.Set(ctx, revokedSessionKey(sessionID), true, ttl)
}

// Revoked fails closed: an unreachable cache treats the session as revoked.
func (c *RedisStudentCache) Revoked(ctx context.Context, sessionID string) bool {
	var revoked bool
	hit, err := c.cache.Get(ctx, revokedSessionKey(sessionID), &revoked)
	if err != nil {
		return true
	}
	return hit && revoked
}
