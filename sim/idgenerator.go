package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var idGeneratorMutex sync.Mutex
var idGeneratorInstantiated bool
var idGenerator IDGenerator

// IDGenerator can generate IDs
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

// UseSequentialIDGenerator configures the ID generator to generate IDs in
// sequential.
func UseSequentialIDGenerator() {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	idGenerator = NewSequentialIDGenerator()
	idGeneratorInstantiated = true
}

// UseGlobalUniqueIDGenerator configures the ID generator to generate IDs that
// are unique across runs. The IDs generated will not be deterministic anymore.
func UseGlobalUniqueIDGenerator() {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	idGenerator = NewGlobalUniqueIDGenerator()
	idGeneratorInstantiated = true
}

// GetIDGenerator returns the ID generator used in the current process.
func GetIDGenerator() IDGenerator {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if !idGeneratorInstantiated {
		idGenerator = NewSequentialIDGenerator()
		idGeneratorInstantiated = true
	}

	return idGenerator
}

// NewSequentialIDGenerator creates a generator that produces "1", "2", ...
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewGlobalUniqueIDGenerator creates a generator backed by xid.
func NewGlobalUniqueIDGenerator() IDGenerator {
	return globalUniqueIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	return strconv.FormatUint(idNumber, 10)
}

type globalUniqueIDGenerator struct {
}

func (g globalUniqueIDGenerator) Generate() string {
	return xid.New().String()
}
