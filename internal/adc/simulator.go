// Package adc provides a simulated VME ADC board.
//
// The Simulator stands in for the crate's 14-channel, 14-bit ADC: every read
// of a valid channel returns a uniformly distributed value in [0, MaxRaw].
// Reads of channels beyond the board return thermal.InvalidReading.
//
// Usage:
//
//	sim := adc.NewSimulator(adc.Config{Seed: 42})
//	reg := thermal.NewRegistry(sim)
package adc

import (
	"math/rand/v2"
	"sync"

	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// DefaultValue is the reading used when the simulator is pinned to a fixed
// value without specifying one.
const DefaultValue = 4

// Config configures a Simulator.
type Config struct {
	// Seed seeds the generator. Zero seeds from the runtime's random source.
	Seed uint64

	// Fixed pins every valid read to FixedValue instead of a random value.
	Fixed bool

	// FixedValue is returned by every valid read when Fixed is set.
	FixedValue int
}

// Simulator is a thermal.RawChannelSource backed by a pseudo-random
// generator.
//
// Thread Safety: safe for concurrent use.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	fixed bool
	value int
}

// NewSimulator creates a simulated ADC board.
func NewSimulator(cfg Config) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Simulator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		fixed: cfg.Fixed,
		value: cfg.FixedValue,
	}
}

// Channels returns the number of channels on the board.
func (s *Simulator) Channels() uint16 {
	return thermal.MaxAddresses
}

// ReadRaw implements thermal.RawChannelSource.
func (s *Simulator) ReadRaw(address uint16) (int, error) {
	if address >= s.Channels() {
		return thermal.InvalidReading, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fixed {
		return s.value, nil
	}
	return s.rng.IntN(thermal.MaxRaw + 1), nil
}

// Pin makes every subsequent valid read return value.
func (s *Simulator) Pin(value int) {
	s.mu.Lock()
	s.fixed = true
	s.value = value
	s.mu.Unlock()
}

// Unpin restores random readings.
func (s *Simulator) Unpin() {
	s.mu.Lock()
	s.fixed = false
	s.mu.Unlock()
}
