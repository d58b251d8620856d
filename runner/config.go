package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/geometry"
)

// GeometryConfig is the flash organization section of the configuration.
type GeometryConfig struct {
	Banks          uint32 `mapstructure:"banks"`
	BlocksPerBank  uint32 `mapstructure:"blocks_per_bank"`
	PagesPerBlock  uint32 `mapstructure:"pages_per_block"`
	SectorsPerPage uint32 `mapstructure:"sectors_per_page"`
	BytesPerSector uint32 `mapstructure:"bytes_per_sector"`
	MetaBlocks     uint32 `mapstructure:"meta_blocks"`
	LogicalPages   uint32 `mapstructure:"logical_pages"`
}

// BufferConfig sets the number of host buffer frames.
type BufferConfig struct {
	Read  uint32 `mapstructure:"read"`
	Write uint32 `mapstructure:"write"`
}

// LogConfig sets where and how verbosely to log.
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MonitorConfig controls the monitoring server.
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	Open    bool `mapstructure:"open"`
}

// Config is the resolved configuration of a replay.
type Config struct {
	Geometry            GeometryConfig      `mapstructure:"geometry"`
	Buffers             BufferConfig        `mapstructure:"buffers"`
	Checker             checker.Config      `mapstructure:"checker"`
	BadBlocks           map[string][]uint32 `mapstructure:"bad_blocks"`
	SmallWriteThreshold uint32              `mapstructure:"small_write_threshold"`
	Bound               uint64              `mapstructure:"bound"`
	OnePass             bool                `mapstructure:"one_pass"`
	Record              string              `mapstructure:"record"`
	Log                 LogConfig           `mapstructure:"log"`
	Monitor             MonitorConfig       `mapstructure:"monitor"`
}

// NewViper creates a viper instance with every key defaulted and bound to
// the VST_ environment, e.g. VST_GEOMETRY_BANKS.
func NewViper() *viper.Viper {
	v := viper.New()

	def := geometry.MakeBuilder().Build()
	chk := checker.DefaultConfig()

	v.SetDefault("geometry.banks", def.Banks)
	v.SetDefault("geometry.blocks_per_bank", def.BlocksPerBank)
	v.SetDefault("geometry.pages_per_block", def.PagesPerBlock)
	v.SetDefault("geometry.sectors_per_page", def.SectorsPerPage)
	v.SetDefault("geometry.bytes_per_sector", def.BytesPerSector)
	v.SetDefault("geometry.meta_blocks", def.MetaBlocks)
	v.SetDefault("geometry.logical_pages", 0)
	v.SetDefault("buffers.read", geometry.DefaultNumBuffers)
	v.SetDefault("buffers.write", geometry.DefaultNumBuffers)
	v.SetDefault("checker.lpn_consistent", chk.LPNConsistent)
	v.SetDefault("checker.non_sequential_write", chk.NonSequentialWrite)
	v.SetDefault("checker.overwrite", chk.Overwrite)
	v.SetDefault("small_write_threshold", 8)
	v.SetDefault("bound", 1)
	v.SetDefault("one_pass", false)
	v.SetDefault("record", "")
	v.SetDefault("log.file", "vst.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.port", 0)
	v.SetDefault("monitor.open", false)

	v.SetEnvPrefix("VST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig loads a .env file if present, then the configuration file. An
// empty path searches for vst.yaml in the working directory and a missing
// file there is not an error.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot load .env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vst")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("cannot read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the device cannot be built
// with.
func (c Config) Validate() error {
	if err := c.rawGeometry().Validate(); err != nil {
		return fmt.Errorf("invalid geometry: %w", err)
	}

	if c.Buffers.Read == 0 || c.Buffers.Write == 0 {
		return errors.New("at least one read and one write buffer is required")
	}

	if _, err := c.BadBlockSets(); err != nil {
		return err
	}

	return nil
}

func (c Config) rawGeometry() geometry.Geometry {
	g := c.Geometry
	geo := geometry.Geometry{
		Banks:          g.Banks,
		BlocksPerBank:  g.BlocksPerBank,
		PagesPerBlock:  g.PagesPerBlock,
		SectorsPerPage: g.SectorsPerPage,
		BytesPerSector: g.BytesPerSector,
		MetaBlocks:     g.MetaBlocks,
		LogicalPages:   g.LogicalPages,
	}

	if geo.LogicalPages == 0 {
		geo.LogicalPages = geo.DefaultLogicalPages()
	}

	return geo
}

// BuildGeometry converts the geometry section. It panics on a configuration
// that does not pass Validate.
func (c Config) BuildGeometry() geometry.Geometry {
	g := c.Geometry

	return geometry.MakeBuilder().
		WithBanks(g.Banks).
		WithBlocksPerBank(g.BlocksPerBank).
		WithPagesPerBlock(g.PagesPerBlock).
		WithSectorsPerPage(g.SectorsPerPage).
		WithBytesPerSector(g.BytesPerSector).
		WithMetaBlocks(g.MetaBlocks).
		WithLogicalPages(g.LogicalPages).
		Build()
}

// BuildLayout computes the DRAM layout for the configured geometry.
func (c Config) BuildLayout() geometry.Layout {
	return geometry.NewLayout(c.BuildGeometry(), c.Buffers.Read, c.Buffers.Write)
}

// BadBlockSets converts the bad_blocks section, keyed by bank number, into
// bitmaps.
func (c Config) BadBlockSets() (map[uint32]*roaring.Bitmap, error) {
	sets := make(map[uint32]*roaring.Bitmap, len(c.BadBlocks))

	keys := make([]string, 0, len(c.BadBlocks))
	for k := range c.BadBlocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		bank, err := strconv.ParseUint(k, 10, 32)
		if err != nil || uint32(bank) >= c.Geometry.Banks {
			return nil, fmt.Errorf("bad_blocks: invalid bank %q", k)
		}

		for _, blk := range c.BadBlocks[k] {
			if blk >= c.Geometry.BlocksPerBank {
				return nil, fmt.Errorf(
					"bad_blocks: block %d of bank %d out of range", blk, bank)
			}
		}

		sets[uint32(bank)] = roaring.BitmapOf(c.BadBlocks[k]...)
	}

	return sets, nil
}
