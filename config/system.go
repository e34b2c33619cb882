// Package config reads system and traffic descriptions from YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/amba/storage"
)

// ErrInvalid marks a description that cannot be turned into a system.
var ErrInvalid = errors.New("invalid configuration")

// System describes a bus and everything attached to it.
type System struct {
	Name      string         `yaml:"name"`
	FreqMHz   float64        `yaml:"freq_mhz"`
	Masters   int            `yaml:"masters"`
	QueueSize int            `yaml:"queue_size"`
	Targets   []TargetConfig `yaml:"targets"`
	Bridges   []BridgeConfig `yaml:"bridges,omitempty"`
}

// TargetConfig describes a memory on the AHB side. Size is the region that
// the decoder maps; Window, when set, is the size that the memory itself
// serves.
type TargetConfig struct {
	Name       string            `yaml:"name"`
	Base       uint32            `yaml:"base"`
	Size       uint64            `yaml:"size"`
	Window     uint64            `yaml:"window,omitempty"`
	WaitCycles int               `yaml:"wait_cycles"`
	ReadOnly   bool              `yaml:"read_only"`
	Init       map[uint32]uint32 `yaml:"init,omitempty"`
}

// WindowSize returns the size that the memory serves.
func (t TargetConfig) WindowSize() uint64 {
	if t.Window != 0 {
		return t.Window
	}

	return t.Size
}

// BridgeConfig describes a bridge and the peripheral bus behind it.
type BridgeConfig struct {
	Name        string             `yaml:"name"`
	Base        uint32             `yaml:"base"`
	Size        uint64             `yaml:"size"`
	Peripherals []PeripheralConfig `yaml:"peripherals"`
}

// PeripheralConfig describes a register block on the peripheral bus.
type PeripheralConfig struct {
	Name       string            `yaml:"name"`
	Base       uint32            `yaml:"base"`
	Size       uint64            `yaml:"size"`
	WaitCycles int               `yaml:"wait_cycles"`
	ReadOnly   bool              `yaml:"read_only"`
	Registers  map[uint32]uint32 `yaml:"registers,omitempty"`
}

// LoadSystem reads a system description from a file.
func LoadSystem(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading system %s", path)
	}

	s, err := ParseSystem(data)
	if err != nil {
		return nil, errors.Wrapf(err, "system %s", path)
	}

	return s, nil
}

// ParseSystem decodes and validates a system description. Missing fields
// take their defaults.
func ParseSystem(data []byte) (*System, error) {
	s := &System{
		Name:      "Soc",
		FreqMHz:   100,
		Masters:   1,
		QueueSize: 16,
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(ErrInvalid, err.Error())
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Marshal encodes the system description as YAML.
func (s *System) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks the fields that the builders would otherwise panic on.
// Region overlaps are left to the decoder.
func (s *System) Validate() error {
	switch {
	case s.Masters <= 0:
		return errors.Wrapf(ErrInvalid, "%d masters", s.Masters)
	case s.QueueSize <= 0:
		return errors.Wrapf(ErrInvalid, "queue size %d", s.QueueSize)
	case s.FreqMHz <= 0:
		return errors.Wrapf(ErrInvalid, "frequency %g MHz", s.FreqMHz)
	case len(s.Targets)+len(s.Bridges) == 0:
		return errors.Wrap(ErrInvalid, "no target")
	}

	for _, t := range s.Targets {
		if err := t.validate(); err != nil {
			return err
		}
	}

	for _, b := range s.Bridges {
		if err := b.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (t TargetConfig) validate() error {
	if t.Name == "" {
		return errors.Wrap(ErrInvalid, "target without a name")
	}

	if t.Size == 0 {
		return errors.Wrapf(ErrInvalid, "target %s has no size", t.Name)
	}

	if err := validateWindow(t.Base, t.WindowSize()); err != nil {
		return errors.Wrapf(err, "target %s", t.Name)
	}

	if t.WaitCycles < 0 {
		return errors.Wrapf(ErrInvalid,
			"target %s: %d wait cycles", t.Name, t.WaitCycles)
	}

	return nil
}

func (b BridgeConfig) validate() error {
	if b.Name == "" {
		return errors.Wrap(ErrInvalid, "bridge without a name")
	}

	if b.Size == 0 {
		return errors.Wrapf(ErrInvalid, "bridge %s has no size", b.Name)
	}

	if len(b.Peripherals) == 0 {
		return errors.Wrapf(ErrInvalid, "bridge %s has no peripheral", b.Name)
	}

	for _, p := range b.Peripherals {
		if p.Name == "" {
			return errors.Wrapf(ErrInvalid,
				"bridge %s: peripheral without a name", b.Name)
		}

		if err := validateWindow(p.Base, p.Size); err != nil {
			return errors.Wrapf(err, "peripheral %s", p.Name)
		}

		if p.WaitCycles < 0 {
			return errors.Wrapf(ErrInvalid,
				"peripheral %s: %d wait cycles", p.Name, p.WaitCycles)
		}
	}

	return nil
}

func validateWindow(base uint32, size uint64) error {
	if size == 0 || base%storage.WordBytes != 0 || size%storage.WordBytes != 0 {
		return errors.Wrapf(ErrInvalid,
			"window 0x%08x+0x%x is not word aligned", base, size)
	}

	return nil
}
