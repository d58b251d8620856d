package checker

import "github.com/RoaringBitmap/roaring"

// Versions counts host writes per LBA. Counts wrap at 256; whether an LBA was
// ever written is tracked separately so wrapping never hides it.
type Versions struct {
	counts  []uint8
	written *roaring.Bitmap
}

// NewVersions creates counters for numLBAs addresses.
func NewVersions(numLBAs uint32) *Versions {
	return &Versions{
		counts:  make([]uint8, numLBAs),
		written: roaring.New(),
	}
}

// Bump records a host write to lba.
func (v *Versions) Bump(lba uint32) {
	v.counts[lba]++
	v.written.Add(lba)
}

// Written reports whether lba has been written at least once.
func (v *Versions) Written(lba uint32) bool {
	return v.written.Contains(lba)
}

// Count returns the wrapping write count of lba.
func (v *Versions) Count(lba uint32) uint8 {
	return v.counts[lba]
}

// NumWritten returns how many distinct LBAs have been written.
func (v *Versions) NumWritten() uint64 {
	return v.written.GetCardinality()
}

// Reset forgets all writes.
func (v *Versions) Reset() {
	clear(v.counts)
	v.written.Clear()
}
