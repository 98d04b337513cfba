package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
)

// outputValue is a pflag.Value accepting only the supported output formats,
// so a typo fails at flag parse time instead of falling through to the table
// renderer.
type outputValue string

var _ pflag.Value = (*outputValue)(nil)

func (o *outputValue) String() string { return string(*o) }

func (o *outputValue) Set(v string) error {
	switch v {
	case "table", "json", "yaml":
		*o = outputValue(v)
		return nil
	}
	return fmt.Errorf("must be one of table, json, yaml, got %q", v)
}

func (o *outputValue) Type() string { return "format" }
