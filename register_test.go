// FILE: lixenwraith/confclass/register_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerDefaults struct {
	Name    string            `config:"name" desc:"Service name"`
	Port    int               `config:"port"`
	Debug   bool              // named after the Go field
	Ratio   float32           `config:"ratio"`
	Workers uint16            `config:"workers"`
	Hosts   []string          `config:"hosts"`
	Labels  map[string]string `config:"labels"`
	Timeout time.Duration     `config:"timeout"`
	Secret  string            `config:"-"`
	Server  struct {
		Host string `config:"host"`
	} `config:"server"`
	Cache *struct {
		Size int `config:"size"`
	} `config:"cache"`
}

func TestSchemaFromStruct(t *testing.T) {
	defaults := &registerDefaults{
		Name:    "svc",
		Port:    8080,
		Ratio:   0.5,
		Workers: 4,
		Timeout: 5 * time.Second,
		Secret:  "hidden",
	}
	defaults.Server.Host = "localhost"

	schema, err := SchemaFromStruct("app", defaults)
	require.NoError(t, err)

	var names []string
	for _, f := range schema.Fields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{
		"name", "port", "Debug", "ratio", "workers", "hosts", "labels", "timeout", "server.host",
	}, names, "skips tagged-out fields and nil struct pointers")

	name, _ := schema.Field("name")
	assert.Equal(t, "Service name", name.Description())
	def, ok := name.Default()
	assert.True(t, ok)
	assert.Equal(t, "svc", def)

	debug, _ := schema.Field("Debug")
	_, ok = debug.Default()
	assert.False(t, ok, "zero values are required")

	timeout, _ := schema.Field("timeout")
	assert.Equal(t, KindCustom, timeout.Type().Kind())
	assert.True(t, timeout.HasConverter())

	workers, _ := schema.Field("workers")
	assert.Equal(t, KindInt, workers.Type().Kind())

	t.Run("Resolves", func(t *testing.T) {
		env := NewEnvSource("", WithEnvMap(map[string]string{
			"Debug":   "true",
			"hosts":   "a,b",
			"labels":  "k=v",
			"timeout": "1m",
		}))
		inst, err := Resolve(schema, []Source{env})
		require.NoError(t, err)

		timeout, _ := inst.Get("timeout")
		assert.Equal(t, time.Minute, timeout)
		ratio, _ := inst.Float64("ratio")
		assert.Equal(t, 0.5, ratio)
		host, _ := inst.String("server.host")
		assert.Equal(t, "localhost", host)

		var decoded registerDefaults
		require.NoError(t, inst.Decode(&decoded))
		assert.Equal(t, 8080, decoded.Port)
		assert.Equal(t, uint16(4), decoded.Workers)
		assert.Equal(t, time.Minute, decoded.Timeout)
		assert.Empty(t, decoded.Secret)
	})

	t.Run("DefaultDurationUsed", func(t *testing.T) {
		env := NewEnvSource("", WithEnvMap(map[string]string{"Debug": "0", "hosts": "", "labels": ""}))
		inst, err := Resolve(schema, []Source{env})
		require.NoError(t, err)
		timeout, _ := inst.Get("timeout")
		assert.Equal(t, 5*time.Second, timeout)
	})
}

func TestSchemaFromStructErrors(t *testing.T) {
	_, err := SchemaFromStruct("x", 5)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = SchemaFromStruct("x", (*registerDefaults)(nil))
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = SchemaFromStruct("x", struct {
		Ch   chan int
		Nums []int
	}{})
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.ErrorContains(t, err, "2 field(s)")
}

func TestDurationConverter(t *testing.T) {
	tests := []struct {
		raw  RawValue
		want time.Duration
		ok   bool
	}{
		{String("1h"), time.Hour, true},
		{String(" 250ms "), 250 * time.Millisecond, true},
		{Primitive(int64(1000)), time.Microsecond, true},
		{Primitive(2 * time.Second), 2 * time.Second, true},
		{String("soon"), 0, false},
		{Primitive(1.5), 0, false},
	}
	for _, tt := range tests {
		got, err := durationConverter(tt.raw)
		if !tt.ok {
			assert.Error(t, err, tt.raw.GoString())
			continue
		}
		require.NoError(t, err, tt.raw.GoString())
		assert.Equal(t, tt.want, got)
	}
}
