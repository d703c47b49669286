// Package leads implements lead discovery admission: identifier
// fingerprinting, cross-source deduplication, enrichment with retry and
// caching, and the quality/engagement scoring that gates entry into the
// engagement pipeline.
package leads

import (
	"strings"
	"sync"

	"github.com/ignite/lead-engine/internal/domain"
)

// maxFingerprintCache bounds the memoization map. RawLead is comparable, so
// the computed fingerprint is cached per distinct input.
const maxFingerprintCache = 1000

// Fingerprinter derives canonical identifier strings for raw leads. The
// same input always yields the same fingerprint, and inputs differing only
// in email case collide on purpose.
type Fingerprinter struct {
	mu    sync.Mutex
	cache map[domain.RawLead]string
}

// NewFingerprinter returns a memoizing fingerprinter.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{cache: make(map[domain.RawLead]string)}
}

// Fingerprint combines the lead's identifying fields in priority order:
// lowercased email, phone digits, normalized website host, lowercased
// business name, joined by "|".
func (f *Fingerprinter) Fingerprint(raw domain.RawLead) string {
	f.mu.Lock()
	if id, ok := f.cache[raw]; ok {
		f.mu.Unlock()
		return id
	}
	f.mu.Unlock()

	var parts []string
	if raw.Email != "" {
		parts = append(parts, strings.ToLower(raw.Email))
	}
	if raw.Phone != "" {
		parts = append(parts, normalizePhone(raw.Phone))
	}
	if raw.Website != "" {
		parts = append(parts, normalizeWebsite(raw.Website))
	}
	if raw.BusinessName != "" {
		parts = append(parts, strings.ToLower(raw.BusinessName))
	}
	id := strings.Join(parts, "|")

	f.mu.Lock()
	if len(f.cache) >= maxFingerprintCache {
		f.cache = make(map[domain.RawLead]string)
	}
	f.cache[raw] = id
	f.mu.Unlock()
	return id
}

// normalizePhone strips spaces and dashes so formatting differences don't
// break dedup.
func normalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	return strings.ReplaceAll(phone, "-", "")
}

// normalizeWebsite lowercases and strips scheme and trailing slashes.
func normalizeWebsite(site string) string {
	site = strings.ToLower(site)
	site = strings.TrimPrefix(site, "http://")
	site = strings.TrimPrefix(site, "https://")
	return strings.TrimRight(site, "/")
}
