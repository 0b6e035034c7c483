package spi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Mode is one of the four clock polarity/phase combinations.
type Mode uint8

const (
	Mode0 Mode = iota // CPOL=0 CPHA=0
	Mode1             // CPOL=0 CPHA=1
	Mode2             // CPOL=1 CPHA=0
	Mode3             // CPOL=1 CPHA=1
)

const (
	// DefaultSpeedHz matches the bus speed used on the reference BeagleBone setup.
	DefaultSpeedHz = 800_000
	// WordSize is the only word size the shift-register chain supports.
	WordSize = 8
)

var (
	ErrInvalidMode     = errors.New("spi: invalid mode")
	ErrInvalidSpeed    = errors.New("spi: invalid speed")
	ErrInvalidWordSize = errors.New("spi: invalid word size")
)

func (m Mode) String() string {
	return "mode" + strconv.Itoa(int(m))
}

// ParseMode accepts "0".."3" or "mode0".."mode3".
func ParseMode(s string) (Mode, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "mode")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	if n < 0 || n > int(Mode3) {
		return 0, fmt.Errorf("%w: %d (want 0-3)", ErrInvalidMode, n)
	}
	return Mode(n), nil
}

// Config selects the bus parameters. It is supplied once, when a transport
// is opened.
type Config struct {
	Mode        Mode
	SpeedHz     int
	BitsPerWord int
}

// DefaultConfig returns mode 0 at DefaultSpeedHz with 8-bit words.
func DefaultConfig() Config {
	return Config{
		Mode:        Mode0,
		SpeedHz:     DefaultSpeedHz,
		BitsPerWord: WordSize,
	}
}

// Validate rejects unsupported modes, speeds and word sizes. A zero
// BitsPerWord is treated as 8.
func (c *Config) Validate() error {
	if c.Mode > Mode3 {
		return fmt.Errorf("%w: %d (want 0-3)", ErrInvalidMode, c.Mode)
	}
	if c.SpeedHz <= 0 {
		return fmt.Errorf("%w: %dHz", ErrInvalidSpeed, c.SpeedHz)
	}
	if c.BitsPerWord == 0 {
		c.BitsPerWord = WordSize
	}
	if c.BitsPerWord != WordSize {
		return fmt.Errorf("%w: %d bits (only %d supported)", ErrInvalidWordSize, c.BitsPerWord, WordSize)
	}
	return nil
}
