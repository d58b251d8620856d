package geometry

// Builder can build Geometry values.
type Builder struct {
	banks          uint32
	blocksPerBank  uint32
	pagesPerBlock  uint32
	sectorsPerPage uint32
	bytesPerSector uint32
	metaBlocks     uint32
	logicalPages   uint32
}

// MakeBuilder creates a builder with the default SSD configuration.
func MakeBuilder() Builder {
	return Builder{
		banks:          4,
		blocksPerBank:  64,
		pagesPerBlock:  16,
		sectorsPerPage: 8,
		bytesPerSector: 512,
		metaBlocks:     2,
	}
}

// WithBanks sets the number of banks.
func (b Builder) WithBanks(n uint32) Builder {
	b.banks = n
	return b
}

// WithBlocksPerBank sets the number of blocks in each bank.
func (b Builder) WithBlocksPerBank(n uint32) Builder {
	b.blocksPerBank = n
	return b
}

// WithPagesPerBlock sets the number of pages in each block.
func (b Builder) WithPagesPerBlock(n uint32) Builder {
	b.pagesPerBlock = n
	return b
}

// WithSectorsPerPage sets the number of sectors in each page.
func (b Builder) WithSectorsPerPage(n uint32) Builder {
	b.sectorsPerPage = n
	return b
}

// WithBytesPerSector sets the sector size.
func (b Builder) WithBytesPerSector(n uint32) Builder {
	b.bytesPerSector = n
	return b
}

// WithMetaBlocks sets how many blocks at the start of each bank are reserved
// for firmware metadata.
func (b Builder) WithMetaBlocks(n uint32) Builder {
	b.metaBlocks = n
	return b
}

// WithLogicalPages overrides the host-visible capacity in pages. Zero selects
// the default capacity.
func (b Builder) WithLogicalPages(n uint32) Builder {
	b.logicalPages = n
	return b
}

// Build creates the geometry. It panics if the configuration is inconsistent.
func (b Builder) Build() Geometry {
	g := Geometry{
		Banks:          b.banks,
		BlocksPerBank:  b.blocksPerBank,
		PagesPerBlock:  b.pagesPerBlock,
		SectorsPerPage: b.sectorsPerPage,
		BytesPerSector: b.bytesPerSector,
		MetaBlocks:     b.metaBlocks,
		LogicalPages:   b.logicalPages,
	}

	if g.LogicalPages == 0 {
		g.LogicalPages = g.DefaultLogicalPages()
	}

	if err := g.Validate(); err != nil {
		panic(err)
	}

	return g
}
