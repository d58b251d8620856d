// Package pagetag tracks what a page-sized buffer holds. A page either carries
// host data, in which case only the LBA of every sector is recorded, or raw
// bytes such as firmware metadata.
package pagetag

import "fmt"

// Unset marks an LBA slot that has not been written since the page was
// tagged.
const Unset uint32 = 0xFFFFFFFF

// A Page is a tagged view of one flash page or one DRAM buffer frame.
type Page struct {
	sectors        uint32
	bytesPerSector uint32

	tagged bool
	lbas   []uint32
	data   []byte
}

// New creates a raw page. The backing slice, if given, must hold a full page
// and is used in place; a nil backing is allocated on the first raw write.
func New(sectors, bytesPerSector uint32, backing []byte) *Page {
	if sectors == 0 || bytesPerSector == 0 {
		panic("pagetag: page must have a non-zero size")
	}

	if backing != nil && uint64(len(backing)) != uint64(sectors)*uint64(bytesPerSector) {
		panic(fmt.Sprintf("pagetag: backing of %d bytes does not match page size %d",
			len(backing), sectors*bytesPerSector))
	}

	return &Page{
		sectors:        sectors,
		bytesPerSector: bytesPerSector,
		lbas:           make([]uint32, sectors),
		data:           backing,
	}
}

// Sectors returns the number of sectors in the page.
func (p *Page) Sectors() uint32 {
	return p.sectors
}

// IsTagged reports whether the page holds host data.
func (p *Page) IsTagged() bool {
	return p.tagged
}

// Tag switches the page to host data. Switching resets every LBA slot to
// Unset; tagging an already tagged page does nothing.
func (p *Page) Tag() {
	if p.tagged {
		return
	}

	for i := range p.lbas {
		p.lbas[i] = Unset
	}

	p.tagged = true
}

// Untag switches the page to raw bytes. Stale LBAs stay until the next Tag.
func (p *Page) Untag() {
	p.tagged = false
}

// SetLBA tags the page and records the LBA held by a sector.
func (p *Page) SetLBA(sect, lba uint32) {
	p.mustBeInPage(sect, 1)
	p.Tag()
	p.lbas[sect] = lba
}

// LBA returns the LBA recorded for a sector, or Unset if the page is raw.
func (p *Page) LBA(sect uint32) uint32 {
	p.mustBeInPage(sect, 1)

	if !p.tagged {
		return Unset
	}

	return p.lbas[sect]
}

// LBAs returns a copy of all LBA slots of a tagged page, or nil for a raw
// page.
func (p *Page) LBAs() []uint32 {
	if !p.tagged {
		return nil
	}

	return append([]uint32(nil), p.lbas...)
}

// Bytes returns the raw content, nil if nothing was ever stored.
func (p *Page) Bytes() []byte {
	return p.data
}

// Free drops the content and the tag. Only flash pages own their content, so
// DRAM frames must never be freed.
func (p *Page) Free() {
	p.tagged = false
	p.data = nil
}

// Fill writes val into n sectors starting at sect as raw bytes.
func (p *Page) Fill(sect, n uint32, val byte) {
	p.mustBeInPage(sect, n)
	p.Untag()
	p.ensureData()

	start, end := p.byteRange(sect, n)
	region := p.data[start:end]

	for i := range region {
		region[i] = val
	}
}

// Copy moves n sectors starting at sect from src to the same sectors of dst.
// The tag of src decides how: host data copies LBAs, raw data copies bytes,
// and a raw source without content reads as all ones.
func Copy(dst, src *Page, sect, n uint32) {
	if dst.sectors != src.sectors || dst.bytesPerSector != src.bytesPerSector {
		panic("pagetag: copy between pages of different sizes")
	}

	dst.mustBeInPage(sect, n)

	if src.tagged {
		dst.Tag()
		copy(dst.lbas[sect:sect+n], src.lbas[sect:sect+n])

		return
	}

	dst.Untag()
	dst.ensureData()

	start, end := dst.byteRange(sect, n)
	if src.data == nil {
		region := dst.data[start:end]
		for i := range region {
			region[i] = 0xFF
		}

		return
	}

	copy(dst.data[start:end], src.data[start:end])
}

func (p *Page) ensureData() {
	if p.data == nil {
		p.data = make([]byte, p.sectors*p.bytesPerSector)
	}
}

func (p *Page) byteRange(sect, n uint32) (start, end uint32) {
	return sect * p.bytesPerSector, (sect + n) * p.bytesPerSector
}

func (p *Page) mustBeInPage(sect, n uint32) {
	if sect+n < sect || sect+n > p.sectors {
		panic(fmt.Sprintf("pagetag: sectors [%d, %d) exceed page of %d sectors",
			sect, sect+n, p.sectors))
	}
}
