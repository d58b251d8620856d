package runner

import (
	"fmt"
	"io"

	"github.com/sarchlab/vst/geometry"
)

const configBanner = "----------SSD Configuration----------"

// PrintConfiguration prints the device configuration block.
func PrintConfiguration(
	w io.Writer,
	geo geometry.Geometry,
	layout geometry.Layout,
) error {
	_, err := fmt.Fprintf(w, "%s\n"+
		"# banks: %d\n"+
		"# blocks: %d\n"+
		"# pages: %d\n"+
		"# sectors: %d\n"+
		"# blocks per bank: %d\n"+
		"# pages per block: %d\n"+
		"# sectors per page: %d\n"+
		"Max LBA: %d\n"+
		"Sector size: %d\n"+
		"DRAM base: 0x%x\n"+
		"DRAM size: %d\n"+
		"%s\n",
		configBanner,
		geo.Banks,
		geo.NumBlocks(),
		geo.NumPages(),
		geo.NumSectors(),
		geo.BlocksPerBank,
		geo.PagesPerBlock,
		geo.SectorsPerPage,
		geo.MaxLBA(),
		geo.BytesPerSector,
		0,
		layout.Size,
		configBanner,
	)

	return err
}
