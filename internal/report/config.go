package report

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"kvbench/internal/runner"
)

// ConfigYAML writes the configuration in the format read by --config.
func ConfigYAML(w io.Writer, cfg runner.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return enc.Close()
}
