package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/peterbourgon/diskv/v3"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Cache keeps the last fetched hierarchy summary of each project on disk so
// search keeps working while a fresh summary is loading or unavailable.
type Cache struct {
	d *diskv.Diskv
}

// NewCache creates a summary cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 4 * 1024 * 1024,
	})}
}

// Load returns the cached summary of a project. ok is false when nothing is cached.
func (c *Cache) Load(project string) (summary []*models.FolderSummary, ok bool, err error) {
	key := cacheKey(project)
	if !c.d.Has(key) {
		return nil, false, nil
	}
	val, err := c.d.Read(key)
	if err != nil {
		return nil, false, fmt.Errorf("read summary cache: %w", err)
	}
	if err := json.Unmarshal(val, &summary); err != nil {
		return nil, false, fmt.Errorf("decode summary cache: %w", err)
	}
	return summary, true, nil
}

// Store replaces the cached summary of a project.
func (c *Cache) Store(project string, summary []*models.FolderSummary) error {
	val, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary cache: %w", err)
	}
	if err := c.d.Write(cacheKey(project), val); err != nil {
		return fmt.Errorf("write summary cache: %w", err)
	}
	return nil
}

// Erase drops the cached summary of a project
func (c *Cache) Erase(project string) error {
	key := cacheKey(project)
	if !c.d.Has(key) {
		return nil
	}
	return c.d.Erase(key)
}

// cacheKey maps a project name to a flat, filesystem-safe key. The hash of the
// raw name keeps names that sanitize alike apart.
func cacheKey(project string) string {
	var b strings.Builder
	b.WriteString("hierarchy-")
	for _, r := range strings.ToLower(project) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	fmt.Fprintf(&b, "-%08x", uint32(xxhash.Sum64String(project)))
	return b.String()
}
