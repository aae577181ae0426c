// Package synth compiles an asset table into Go source implementing
// webapp.WebApp.
package synth

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/logger"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/table"
	"github.com/mehmetkoksal-w/webappgen/webapp"
)

// Strategy selects the lookup structure of a bundle.
type Strategy string

const (
	Auto   Strategy = "auto"
	Ladder Strategy = "ladder"
	Hash   Strategy = "hash"
)

// LadderThreshold is the largest table Auto compiles as a ladder.
const LadderThreshold = 16

// ErrSeedSearch is returned when no perfect hash was found within the
// seed bound.
var ErrSeedSearch = errors.New("perfect hash seed search exhausted")

// maxSeed bounds the displacement search for a single bucket.
var maxSeed int32 = 1 << 20

// ParseStrategy accepts "", "auto", "ladder" and "hash".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", Auto:
		return Auto, nil
	case Ladder, Hash:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want auto, ladder or hash)", s)
	}
}

// Layout is the planned lookup structure for a table.
type Layout struct {
	// Strategy is Ladder or Hash, never Auto.
	Strategy Strategy
	// Entries are in path order.
	Entries []table.Entry
	// Order lists entry indexes in storage order: path order for a ladder,
	// slot order for a hash table.
	Order []int
	// Seeds holds the per-bucket displacements of a hash table.
	Seeds []int32
	// Digest is the table digest.
	Digest string
}

// Plan chooses and computes the lookup structure. Auto uses a ladder for
// small tables and falls back to one when the seed search fails; an
// explicit Hash request reports the failure instead.
func Plan(t *table.Table, strategy Strategy) (*Layout, error) {
	entries := t.Entries()
	layout := &Layout{Entries: entries, Digest: t.Digest()}

	switch strategy {
	case "", Auto:
		if len(entries) <= LadderThreshold {
			return planLadder(layout), nil
		}
		if err := planHash(layout); err != nil {
			logger.Warn("%v; using ladder lookup for %d assets", err, len(entries))
			return planLadder(layout), nil
		}
		return layout, nil
	case Ladder:
		return planLadder(layout), nil
	case Hash:
		if err := planHash(layout); err != nil {
			return nil, err
		}
		return layout, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

func planLadder(l *Layout) *Layout {
	l.Strategy = Ladder
	l.Seeds = nil
	l.Order = make([]int, len(l.Entries))
	for i := range l.Order {
		l.Order[i] = i
	}
	return l
}

type bucket struct {
	index int
	keys  []int
}

// planHash runs hash-and-displace: keys are grouped into buckets by
// Hash(0, path), the largest buckets are placed first by searching a seed
// that sends all their keys to free slots, and single-key buckets take the
// remaining slots directly through negative seeds.
func planHash(l *Layout) error {
	n := len(l.Entries)
	l.Strategy = Hash
	if n == 0 {
		l.Seeds, l.Order = nil, nil
		return nil
	}

	m := (n + 1) / 2
	buckets := make([]bucket, m)
	for i := range buckets {
		buckets[i].index = i
	}
	for i, e := range l.Entries {
		b := webapp.Hash(0, e.Path) % uint32(m)
		buckets[b].keys = append(buckets[b].keys, i)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return len(buckets[i].keys) > len(buckets[j].keys)
	})

	seeds := make([]int32, m)
	slots := make([]int, n)
	for i := range slots {
		slots[i] = -1
	}

	trial := make([]int, 0, len(buckets[0].keys))
	next := 0
	for _, b := range buckets {
		switch len(b.keys) {
		case 0:
			continue
		case 1:
			for slots[next] >= 0 {
				next++
			}
			slots[next] = b.keys[0]
			seeds[b.index] = int32(-next - 1)
			continue
		}

		placed := false
		for d := int32(1); d <= maxSeed; d++ {
			trial = trial[:0]
			ok := true
			for _, k := range b.keys {
				s := int(webapp.Hash(uint32(d), l.Entries[k].Path) % uint32(n))
				if slots[s] >= 0 || contains(trial, s) {
					ok = false
					break
				}
				trial = append(trial, s)
			}
			if ok {
				for i, s := range trial {
					slots[s] = b.keys[i]
				}
				seeds[b.index] = d
				placed = true
				break
			}
		}
		if !placed {
			return fmt.Errorf("%w: bucket of %d keys after %d seeds", ErrSeedSearch, len(b.keys), maxSeed)
		}
	}

	l.Seeds = seeds
	l.Order = slots
	logger.Debug("perfect hash: %d keys, %d buckets", n, m)
	return nil
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
