// FILE: lixenwraith/confclass/cmd/confcheck/sources.go
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	config "github.com/lixenwraith/confclass"
)

// sourceFlags selects the sources a command resolves from.
// Precedence follows the order below: args > env > dotenv > files > ini > consul.
type sourceFlags struct {
	noEnv           bool
	envNamespace    string
	dotenv          string
	files           []string
	fileNamespace   string
	ini             string
	iniSection      string
	consul          string
	consulNamespace string
}

func (sf *sourceFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&sf.noEnv, "no-env", false, "Do not read environment variables")
	fs.StringVar(&sf.envNamespace, "env-namespace", "", "Only read environment variables with this prefix")
	fs.StringVar(&sf.dotenv, "dotenv", "", "Dotenv file to read")
	fs.StringArrayVar(&sf.files, "file", nil, "JSON, TOML or YAML file to read (repeatable, first wins)")
	fs.StringVar(&sf.fileNamespace, "file-namespace", "", "Dotted path of the table holding the fields in --file documents")
	fs.StringVar(&sf.ini, "ini", "", "INI file to read")
	fs.StringVar(&sf.iniSection, "ini-section", "", "INI section holding the fields")
	fs.StringVar(&sf.consul, "consul", "", "Consul HTTP address, e.g. http://127.0.0.1:8500")
	fs.StringVar(&sf.consulNamespace, "consul-namespace", "", "Consul KV prefix holding the fields")
}

// build creates the sources. passthrough are the arguments after "--", read
// as --FIELD flags with the highest precedence.
func (sf *sourceFlags) build(ctx context.Context, passthrough []string) ([]config.Source, error) {
	var sources []config.Source

	if len(passthrough) > 0 {
		sources = append(sources, config.NewCLISource(passthrough))
	}

	if !sf.noEnv {
		sources = append(sources, config.NewEnvSource(sf.envNamespace))
	}

	if sf.dotenv != "" {
		src, err := config.NewDotEnvSource(sf.dotenv, sf.envNamespace)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	var namespace []string
	if sf.fileNamespace != "" {
		namespace = strings.Split(sf.fileNamespace, ".")
	}
	for _, path := range sf.files {
		src, err := config.NewFileSource(config.FileOptions{Path: path, Namespace: namespace})
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if sf.ini != "" {
		src, err := config.NewINISource(sf.ini, sf.iniSection)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if sf.consul != "" {
		src, err := config.NewConsulSource(ctx, sf.consul, sf.consulNamespace)
		if err != nil {
			return nil, fmt.Errorf("consul: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, nil
}
