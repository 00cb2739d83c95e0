// File: lixenwraith/confclass/doc.go

// Package config resolves strongly-typed configuration from priority-ordered
// sources: environment variables, dotenv files, command-line flags, JSON, TOML,
// YAML and INI files, and a Consul key/value store.
//
// Features:
//   - Declared field types with fixed coercion rules (bool, int, float, string,
//     enum, comma lists, key=value maps) and custom converters
//   - First source in the list that knows a field wins
//   - Every field failure of a pass is reported at once in a *ResolutionError
//   - One cached instance per shape key, lock-free reads
//   - Atomic reload: a failed reload keeps the previous instance
//   - Poll-triggered auto reload with change subscriptions
//   - Struct-derived schemas and struct decoding
//
// Quick Start:
//
//	shape := config.NewBuilder("app").
//	    Field("PORT", config.TypeInt, config.WithDefault(8080)).
//	    Field("ENV", config.TypeEnum(config.EnvironmentEnum), config.WithDefault("Development")).
//	    Field("HOSTS", config.TypeList).
//	    WithCLI().
//	    WithEnv("MYAPP_").
//	    WithFile("config.toml").
//	    MustBuild()
//
//	inst, err := config.Load(ctx, shape)
//	if err != nil {
//	    log.Fatal(err) // lists every failed field
//	}
//
//	port, _ := inst.Int64("PORT")
//	env, _ := inst.Enum("ENV")
//
// Reload:
//
//	if err := config.Reload(ctx, "app"); err != nil {
//	    // previous instance is still current
//	}
//
// Thread Safety:
// Instances are immutable. The Registry serializes resolution per shape and
// publishes instances through atomic pointers, so readers never block.
package config
