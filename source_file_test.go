// FILE: lixenwraith/confclass/source_file_test.go
package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestFileSourceJSON(t *testing.T) {
	path := writeFile(t, "app.json", `{
		"PORT": 8080,
		"RATIO": 1.5,
		"DEBUG": true,
		"NAME": "svc",
		"NOTHING": null,
		"HOSTS": ["a", "b, c", " d"],
		"TAGS": {"team": "core", "tier": 1},
		"nested": {"configuration": {"PORT": 9090}},
		"leaf": "x"
	}`)

	t.Run("TopLevel", func(t *testing.T) {
		src, err := NewJSONSource(path)
		require.NoError(t, err)

		assert.Equal(t, Primitive(int64(8080)), src.Lookup("PORT"))
		assert.Equal(t, Primitive(1.5), src.Lookup("RATIO"))
		assert.Equal(t, Primitive(true), src.Lookup("DEBUG"))
		assert.Equal(t, String("svc"), src.Lookup("NAME"))
		assert.True(t, src.Lookup("NOTHING").IsAbsent())
		assert.True(t, src.Lookup("port").IsAbsent(), "keys are case-sensitive")
		assert.Equal(t, "json:"+path, src.Name())
	})

	t.Run("ArraysAndTablesCoerce", func(t *testing.T) {
		src, err := NewJSONSource(path)
		require.NoError(t, err)
		schema := mustSchema(t, "file",
			MustField("HOSTS", TypeList),
			MustField("TAGS", TypeKeyValueMap),
			MustField("PORT", TypeInt),
			MustField("RATIO", TypeFloat),
		)
		inst, err := Resolve(schema, []Source{src})
		require.NoError(t, err)

		hosts, _ := inst.Strings("HOSTS")
		assert.Equal(t, []string{"a", "b, c", " d"}, hosts)
		tags, _ := inst.StringMap("TAGS")
		assert.Equal(t, map[string]string{"team": "core", "tier": "1"}, tags)
	})

	t.Run("Namespace", func(t *testing.T) {
		src, err := NewJSONSource(path, "nested", "configuration")
		require.NoError(t, err)
		assert.Equal(t, Primitive(9090), src.Lookup("PORT"))
		assert.True(t, src.Lookup("NAME").IsAbsent())
		assert.Equal(t, "json:"+path+"#nested.configuration", src.Name())
	})

	t.Run("MissingNamespace", func(t *testing.T) {
		_, err := NewJSONSource(path, "nested", "absent")
		assert.ErrorIs(t, err, ErrNamespaceNotFound)
		assert.ErrorContains(t, err, "nested.absent")

		_, err = NewJSONSource(path, "leaf")
		assert.ErrorIs(t, err, ErrNamespaceNotFound)
	})

	t.Run("Flatten", func(t *testing.T) {
		src, err := NewFileSource(FileOptions{Path: path, Flatten: true})
		require.NoError(t, err)
		assert.Equal(t, Primitive(9090), src.Lookup("nested.configuration.PORT"))
		assert.Equal(t, String("core"), src.Lookup("TAGS.team"))
		assert.True(t, src.Lookup("TAGS").IsAbsent())
	})

	t.Run("Invalid", func(t *testing.T) {
		bad := writeFile(t, "bad.json", `{"PORT": `)
		_, err := NewJSONSource(bad)
		assert.ErrorContains(t, err, "failed to parse JSON")
	})
}

func TestFileSourceTOML(t *testing.T) {
	path := writeFile(t, "app.toml", `
port = 8080
name = "svc"
hosts = ["a", "b"]
debug = false

[database]
url = "postgres://localhost/app"
max_conns = 10
`)

	src, err := NewTOMLSource(path)
	require.NoError(t, err)
	assert.Equal(t, Primitive(8080), src.Lookup("port"))
	assert.Equal(t, String("svc"), src.Lookup("name"))
	assert.Equal(t, String("a,b"), src.Lookup("hosts"))
	assert.Equal(t, Primitive(false), src.Lookup("debug"))

	db, err := NewTOMLSource(path, "database")
	require.NoError(t, err)
	assert.Equal(t, String("postgres://localhost/app"), db.Lookup("url"))
	assert.Equal(t, Primitive(10), db.Lookup("max_conns"))
}

func TestFileSourceYAML(t *testing.T) {
	path := writeFile(t, "app.yml", `
port: 8080
ratio: 0.25
name: svc
server:
  host: example.com
  port: 443
`)

	src, err := NewYAMLSource(path)
	require.NoError(t, err)
	assert.Equal(t, Primitive(8080), src.Lookup("port"))
	assert.Equal(t, Primitive(0.25), src.Lookup("ratio"))
	assert.Equal(t, String("svc"), src.Lookup("name"))
	assert.Equal(t, String("host=example.com,port=443"), src.Lookup("server"))

	server, err := NewYAMLSource(path, "server")
	require.NoError(t, err)
	assert.Equal(t, Primitive(443), server.Lookup("port"))
}

func TestFileSourceDetection(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"JSON", `{"port": 1}`, FormatJSON},
		{"TOML", "port = 1\n", FormatTOML},
		{"YAML", "port: 1\n", FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.format, detectFormatFromContent([]byte(tt.data)))

			// Unknown extension falls back to sniffing
			src, err := NewFileSource(FileOptions{Path: writeFile(t, "app.conf", tt.data)})
			require.NoError(t, err)
			assert.Equal(t, Primitive(1), src.Lookup("port"))

			src, err = NewFileSource(FileOptions{Reader: strings.NewReader(tt.data)})
			require.NoError(t, err)
			assert.Equal(t, Primitive(1), src.Lookup("port"))
			assert.Equal(t, "auto:reader", src.Name())
		})
	}

	assert.Equal(t, FormatTOML, detectFileFormat("x.TML"))
	assert.Equal(t, "", detectFileFormat("x.ini"))
}

func TestFileSourceOptions(t *testing.T) {
	_, err := NewFileSource(FileOptions{})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = NewFileSource(FileOptions{Path: "a.json", Reader: strings.NewReader("{}")})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = NewFileSource(FileOptions{Reader: strings.NewReader("{}"), Format: "xml"})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = NewJSONSource(filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestFileSourceRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Path", func(t *testing.T) {
		path := writeFile(t, "app.json", `{"PORT": 1}`)
		src, err := NewJSONSource(path)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte(`{"PORT": 2}`), 0644))
		assert.Equal(t, Primitive(1), src.Lookup("PORT"))
		require.NoError(t, src.Refresh(ctx))
		assert.Equal(t, Primitive(2), src.Lookup("PORT"))

		require.NoError(t, os.WriteFile(path, []byte(`{"PORT": `), 0644))
		assert.Error(t, src.Refresh(ctx))
		assert.Equal(t, Primitive(2), src.Lookup("PORT"))
	})

	t.Run("NonSeekableReaderIsBuffered", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString(`{"PORT": 3}`)
		src, err := NewFileSource(FileOptions{Reader: &buf, Format: FormatJSON})
		require.NoError(t, err)

		require.NoError(t, src.Refresh(ctx))
		assert.Equal(t, Primitive(3), src.Lookup("PORT"))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		src, err := NewFileSource(FileOptions{Reader: strings.NewReader(`{}`)})
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, src.Refresh(cctx), context.Canceled)
	})
}
