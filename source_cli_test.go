// FILE: lixenwraith/confclass/source_cli_test.go
package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLISource(t *testing.T) {
	schema := mustSchema(t, "cli",
		MustField("PORT", TypeInt, WithDescription("Listen port")),
		MustField("DEBUG", TypeBool),
		MustField("VERBOSE", TypeBool),
		MustField("ENV", TypeEnum(EnvironmentEnum)),
		MustField("HOSTS", TypeList),
	)

	t.Run("AbsentBeforeBind", func(t *testing.T) {
		src := NewCLISource([]string{"--PORT", "1"})
		assert.True(t, src.Lookup("PORT").IsAbsent())
		assert.Equal(t, "", src.Usage())
	})

	t.Run("Binding", func(t *testing.T) {
		src := NewCLISource([]string{
			"--PORT", "9090",
			"--DEBUG",
			"--VERBOSE=false",
			"--ENV=staging",
			"--HOSTS", "a,b",
			"--unknown", "x",
			"positional",
		})
		require.NoError(t, src.BindFields(schema))

		assert.Equal(t, String("9090"), src.Lookup("PORT"))
		assert.Equal(t, String("true"), src.Lookup("DEBUG"))
		assert.Equal(t, String("false"), src.Lookup("VERBOSE"))
		assert.Equal(t, String("staging"), src.Lookup("ENV"))
		assert.Equal(t, String("a,b"), src.Lookup("HOSTS"))
		assert.True(t, src.Lookup("unknown").IsAbsent())
		assert.Equal(t, "cli", src.Name())
	})

	t.Run("UnsetFlagsAreAbsent", func(t *testing.T) {
		src := NewCLISource([]string{})
		require.NoError(t, src.BindFields(schema))
		assert.True(t, src.Lookup("PORT").IsAbsent())
		assert.True(t, src.Lookup("DEBUG").IsAbsent())
	})

	t.Run("Usage", func(t *testing.T) {
		src := NewCLISource([]string{})
		require.NoError(t, src.BindFields(schema))
		usage := src.Usage()
		assert.Contains(t, usage, "--PORT")
		assert.Contains(t, usage, "Listen port")
		assert.Contains(t, usage, "one of: Production, Staging, Test, Development")
	})

	t.Run("Help", func(t *testing.T) {
		src := NewCLISource([]string{"--help"})
		assert.Error(t, src.BindFields(schema))
	})

	t.Run("TakesPrecedenceThroughRegistry", func(t *testing.T) {
		cli := NewCLISource([]string{"--PORT", "9090"})
		env := NewEnvSource("", WithEnvMap(map[string]string{
			"PORT": "8080", "ENV": "test", "HOSTS": "h", "DEBUG": "0", "VERBOSE": "1",
		}))
		shape, err := NewShape(schema, cli, env)
		require.NoError(t, err)

		inst, err := NewRegistry().Load(context.Background(), shape)
		require.NoError(t, err)
		port, _ := inst.Int64("PORT")
		assert.Equal(t, int64(9090), port)
		origin, _ := inst.Origin("PORT")
		assert.Equal(t, "cli", origin)

		debug, _ := inst.Bool("DEBUG")
		assert.False(t, debug)
		origin, _ = inst.Origin("DEBUG")
		assert.Equal(t, "env", origin)
	})
}
