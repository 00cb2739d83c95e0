// FILE: lixenwraith/confclass/source_cli.go
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// CLISource reads command-line flags generated from the schema, one --NAME
// flag per field. Flags that match no field are ignored so the source can share
// argv with the application's own flags. Lookups before BindFields are Absent.
type CLISource struct {
	snapshot
	args  []string
	flags *pflag.FlagSet
}

// NewCLISource creates a flag source over args, excluding the program name.
// Nil args reads os.Args[1:].
func NewCLISource(args []string) *CLISource {
	if args == nil {
		args = os.Args[1:]
	}
	return &CLISource{args: append([]string(nil), args...)}
}

// BindFields registers a flag per schema field and parses the arguments
func (s *CLISource) BindFields(schema *Schema) error {
	fs := pflag.NewFlagSet(schema.Key(), pflag.ContinueOnError)
	fs.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{UnknownFlags: true}
	fs.SetOutput(io.Discard)

	for _, f := range schema.fields {
		usage := f.description
		if f.typ.kind == KindEnum {
			choices := fmt.Sprintf("one of: %s", strings.Join(f.typ.enum.Names(), ", "))
			if usage == "" {
				usage = choices
			} else {
				usage += " (" + choices + ")"
			}
		}

		fs.String(f.name, "", usage)
		if f.typ.kind == KindBool {
			// Bare --NAME means true
			fs.Lookup(f.name).NoOptDefVal = "true"
		}
	}

	if err := fs.Parse(s.args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return fmt.Errorf("help requested: %w", err)
		}
		return fmt.Errorf("failed to parse command line: %w", err)
	}

	values := make(map[string]RawValue)
	fs.Visit(func(fl *pflag.Flag) {
		values[fl.Name] = String(fl.Value.String())
	})

	s.flags = fs
	s.store(values)
	return nil
}

// Lookup implements Source
func (s *CLISource) Lookup(name string) RawValue {
	return s.lookup(name)
}

// Name implements Named
func (s *CLISource) Name() string { return "cli" }

// Usage returns the generated flag help, empty before BindFields
func (s *CLISource) Usage() string {
	if s.flags == nil {
		return ""
	}
	return s.flags.FlagUsages()
}
