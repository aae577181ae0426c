package webapp

// Finder resolves request paths against a fixed asset set.
type Finder interface {
	Find(path string) (Asset, bool)
}

var (
	_ Finder = Ladder(nil)
	_ Finder = (*PerfectHash)(nil)
)

// Ladder is a list of assets sorted by Path, searched by bisection.
// It suits small bundles where a handful of string comparisons beat hashing.
type Ladder []Asset

// Find performs a binary search for path.
func (l Ladder) Find(path string) (Asset, bool) {
	lo, hi := 0, len(l)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if l[mid].Path < path {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(l) && l[lo].Path == path {
		return l[lo], true
	}
	return Asset{}, false
}

// PerfectHash is a minimal perfect hash table built with the
// hash-and-displace method.
//
// A path first selects a bucket with Hash(0, path). The bucket's seed then
// selects the slot: a non-negative seed d means slot Hash(d, path) mod
// len(Assets), a negative seed -s-1 names slot s directly. Every stored path
// lands on its own slot, so one comparison decides the lookup.
type PerfectHash struct {
	Seeds  []int32
	Assets []Asset
}

// Find returns the asset stored under path.
func (p *PerfectHash) Find(path string) (Asset, bool) {
	if len(p.Assets) == 0 || len(p.Seeds) == 0 {
		return Asset{}, false
	}
	slot := p.Slot(path)
	if a := p.Assets[slot]; a.Path == path {
		return a, true
	}
	return Asset{}, false
}

// Slot returns the only slot path can occupy. The caller still has to
// compare the stored path, since foreign keys also map to some slot.
func (p *PerfectHash) Slot(path string) int {
	d := p.Seeds[Hash(0, path)%uint32(len(p.Seeds))]
	if d < 0 {
		return int(-d - 1)
	}
	return int(Hash(uint32(d), path) % uint32(len(p.Assets)))
}

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// Hash is FNV-1a over s, keyed by seed and finished with the murmur3
// avalanche step. The generator and the generated tables must agree on it,
// so its output is part of the bundle format and must never change.
func Hash(seed uint32, s string) uint32 {
	h := uint32(fnvOffset32) ^ mix(seed)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return mix(h)
}

func mix(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
