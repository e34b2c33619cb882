package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/amba/ahb"
)

// Script is a list of transactions to run on a system.
type Script struct {
	Transactions []TransactionConfig `yaml:"transactions"`
}

// TransactionConfig describes one transaction and, optionally, what it
// should produce. Size is in bytes.
type TransactionConfig struct {
	Master      int      `yaml:"master"`
	Addr        uint32   `yaml:"addr"`
	Write       bool     `yaml:"write"`
	Size        int      `yaml:"size"`
	Burst       string   `yaml:"burst"`
	Length      int      `yaml:"length"`
	Data        []uint32 `yaml:"data"`
	Strobes     []uint8  `yaml:"strobes"`
	Expect      []uint32 `yaml:"expect"`
	ExpectError bool     `yaml:"expect_error"`
}

// LoadScript reads a script from a file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading script %s", path)
	}

	s, err := ParseScript(data)
	if err != nil {
		return nil, errors.Wrapf(err, "script %s", path)
	}

	return s, nil
}

// ParseScript decodes a script. Each transaction is checked to form a
// transfer request.
func ParseScript(data []byte) (*Script, error) {
	s := &Script{}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(ErrInvalid, err.Error())
	}

	for i, t := range s.Transactions {
		if t.Master < 0 {
			return nil, errors.Wrapf(ErrInvalid,
				"transaction %d: master %d", i, t.Master)
		}

		if _, err := t.Request(); err != nil {
			return nil, errors.Wrapf(err, "transaction %d", i)
		}
	}

	return s, nil
}

// Request converts the description into a transfer request. A missing size
// means a word, a missing burst means SINGLE, and a missing length is taken
// from the burst kind or from the write data.
func (t TransactionConfig) Request() (ahb.TransferRequest, error) {
	nbytes := t.Size
	if nbytes == 0 {
		nbytes = ahb.DataBusBytes
	}

	size, ok := ahb.SizeFromBytes(nbytes)
	if !ok {
		return ahb.TransferRequest{},
			errors.Wrapf(ErrInvalid, "size %d bytes", t.Size)
	}

	name := strings.ToUpper(t.Burst)
	if name == "" {
		name = "SINGLE"
	}

	burst, ok := ahb.ParseBurst(name)
	if !ok {
		return ahb.TransferRequest{},
			errors.Wrapf(ErrInvalid, "burst %q", t.Burst)
	}

	length := t.Length
	if length == 0 {
		length = burst.Beats()
	}

	if length == 0 {
		length = max(len(t.Data), 1)
	}

	req := ahb.TransferRequest{
		Addr:    t.Addr,
		Write:   t.Write,
		Size:    size,
		Burst:   burst,
		Length:  length,
		WData:   t.Data,
		Strobes: t.Strobes,
	}

	return req, nil
}
