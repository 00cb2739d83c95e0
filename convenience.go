// File: lixenwraith/confclass/convenience.go
package config

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Quick resolves a shape derived from structDefaults with the standard
// precedence CLI > env > file > default, through the default registry.
// An empty configFile skips the file source.
func Quick(key string, structDefaults any, envNamespace, configFile string) (*Instance, error) {
	return NewBuilder(key).
		WithDefaults(structDefaults).
		WithCLI().
		WithEnv(envNamespace).
		WithFile(configFile).
		BuildAndLoad(context.Background(), nil)
}

// MustQuick is like Quick but panics on error
func MustQuick(key string, structDefaults any, envNamespace, configFile string) *Instance {
	inst, err := Quick(key, structDefaults, envNamespace, configFile)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return inst
}

// Debug returns a formatted string showing all values and their origins
func Debug(inst *Instance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration %s (generation %d, resolved %s):\n",
		inst.schema.key, inst.generation, inst.resolvedAt.Format(time.RFC3339))

	if inst.shape != nil {
		names := make([]string, len(inst.shape.sources))
		for i, src := range inst.shape.sources {
			names[i] = SourceName(src)
		}
		fmt.Fprintf(&b, "Precedence: %s\n", strings.Join(names, " > "))
	}

	for _, f := range inst.schema.fields {
		fmt.Fprintf(&b, "  %s (%s):\n", f.name, f.typ)
		fmt.Fprintf(&b, "    Current: %v\n", inst.values[f.name])
		fmt.Fprintf(&b, "    Origin: %s\n", inst.origins[f.name])
		if f.hasDefault {
			fmt.Fprintf(&b, "    Default: %v\n", f.def)
		}
	}

	return b.String()
}

// DumpTOML writes the instance's values to w in TOML format.
// Dotted field names become tables.
func DumpTOML(w io.Writer, inst *Instance) error {
	nested := make(map[string]any)
	for name, value := range inst.values {
		setNestedValue(nested, name, dumpValue(value))
	}
	return toml.NewEncoder(w).Encode(nested)
}

// dumpValue converts resolved values to types the TOML encoder writes back in
// a form the coercer accepts
func dumpValue(v any) any {
	switch t := v.(type) {
	case EnumVariant:
		return t.Name
	case time.Duration:
		return t.String()
	case bool, int64, uint64, float64, string, []string, map[string]string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Describe lists the fields of a schema with type, default and description,
// one per line in declaration order.
func Describe(schema *Schema) string {
	var b strings.Builder
	for _, f := range schema.fields {
		fmt.Fprintf(&b, "%s\t%s", f.name, f.typ)
		switch {
		case f.factory != nil:
			b.WriteString("\tdefault=<factory>")
		case f.hasDefault:
			fmt.Fprintf(&b, "\tdefault=%v", dumpValue(f.def))
		default:
			b.WriteString("\trequired")
		}
		if f.typ.kind == KindEnum {
			fmt.Fprintf(&b, "\tvalues=%s", strings.Join(f.typ.enum.Names(), "|"))
		}
		if f.description != "" {
			b.WriteString("\t" + f.description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Diff returns the sorted names of fields whose values differ between two
// instances of the same schema.
func Diff(old, cur *Instance) []string {
	changed := changedFields(old, cur)
	sort.Strings(changed)
	return changed
}
