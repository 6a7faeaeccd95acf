package telemetry

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ibs-source/edge-gateway/internal/message"
)

// Temperature bounds of generated readings, inclusive
const (
	MinTemperature = 65
	MaxTemperature = 99
)

// Generator produces an endless sequence of synthetic readings
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator seeded once from the clock
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(uint64(time.Now().UnixNano())) // #nosec G115 - seed only
}

// NewGeneratorWithSeed creates a generator with a fixed seed
func NewGeneratorWithSeed(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} // #nosec G404 - synthetic data
}

// Next returns a reading with a uniformly random temperature in [MinTemperature, MaxTemperature]
func (g *Generator) Next() message.TelemetryReading {
	g.mu.Lock()
	defer g.mu.Unlock()
	return message.TelemetryReading{
		Temperature: MinTemperature + g.rng.IntN(MaxTemperature-MinTemperature+1),
	}
}
