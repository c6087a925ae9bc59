// Package unitfile persists compiled units. A unit is stored either as
// canonical CBOR (.pyvmc) or as a YAML assembly listing (.yaml, .yml).
package unitfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"pyvm/internal/object"
)

var log = commonlog.GetLogger("pyvm.unitfile")

type Format int

const (
	FormatBinary Format = iota
	FormatYAML
)

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pyvmc":
		return FormatBinary, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, errors.Errorf("unitfile: %s: unknown extension, expected .pyvmc, .yaml or .yml", path)
}

func Decode(data []byte, f Format) (*object.Code, error) {
	if f == FormatYAML {
		return ParseAssembly(data)
	}
	return Unmarshal(data)
}

func Encode(c *object.Code, f Format) ([]byte, error) {
	if f == FormatYAML {
		return FormatAssembly(c)
	}
	return Marshal(c)
}

func Load(path string) (*object.Code, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unitfile: cannot read %s", path)
	}
	c, err := Decode(data, f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	log.Infof("loaded %s from %s", c.QualName, path)
	return c, nil
}

func Save(path string, c *object.Code) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Encode(c, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "unitfile: cannot write %s", path)
	}
	return nil
}
