package provider

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/domain"
)

// KeyPool rotates a pool of API credentials. It is the one piece of mutable
// state shared by concurrent workers, so every mutation happens under the
// mutex: two workers must never double-advance or lose a mark-exhausted.
type KeyPool struct {
	mu      sync.Mutex
	keys    []poolKey
	current int
}

type poolKey struct {
	value          string
	invalid        bool
	exhaustedUntil time.Time
}

// NewKeyPool builds a pool from the configured credentials.
func NewKeyPool(keys []string) *KeyPool {
	pool := &KeyPool{keys: make([]poolKey, 0, len(keys))}
	for _, key := range keys {
		pool.keys = append(pool.keys, poolKey{value: key})
	}
	return pool
}

// Current returns a usable credential, advancing past exhausted or invalid
// ones. It returns domain.ErrAllKeysExhausted when nothing in the pool is
// usable at the given instant.
func (p *KeyPool) Current(now time.Time) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < len(p.keys); i++ {
		idx := (p.current + i) % len(p.keys)
		if p.usable(idx, now) {
			p.current = idx
			return p.keys[idx].value, nil
		}
	}
	return "", domain.ErrAllKeysExhausted
}

// MarkExhausted disables the credential until the end of its billing period
// and advances to the next key.
func (p *KeyPool) MarkExhausted(key string, billingPeriodEnd, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.keys {
		if p.keys[i].value == key {
			p.keys[i].exhaustedUntil = billingPeriodEnd
			log.Warn().Int("key_index", i).Time("until", billingPeriodEnd).
				Msg("api key marked exhausted")
		}
	}
	p.advanceLocked(now)
}

// MarkInvalid permanently disables the credential and advances.
func (p *KeyPool) MarkInvalid(key string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.keys {
		if p.keys[i].value == key {
			p.keys[i].invalid = true
			log.Error().Int("key_index", i).Msg("api key marked invalid")
		}
	}
	p.advanceLocked(now)
}

// Advance rotates to the next usable credential.
func (p *KeyPool) Advance(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked(now)
}

// UsableCount returns how many credentials are currently usable.
func (p *KeyPool) UsableCount(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for i := range p.keys {
		if p.usable(i, now) {
			count++
		}
	}
	return count
}

func (p *KeyPool) advanceLocked(now time.Time) {
	for i := 1; i <= len(p.keys); i++ {
		idx := (p.current + i) % len(p.keys)
		if p.usable(idx, now) {
			p.current = idx
			return
		}
	}
}

func (p *KeyPool) usable(idx int, now time.Time) bool {
	key := p.keys[idx]
	return !key.invalid && !key.exhaustedUntil.After(now)
}
