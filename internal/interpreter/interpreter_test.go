package interpreter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bokehpreview/internal/config"
)

type lines []string

func (l *lines) AppendLine(text string) { *l = append(*l, text) }

func fixed(s *config.Settings, err error) SettingsFunc {
	return func() (*config.Settings, error) { return s, err }
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		settings SettingsFunc
		want     string
		wantLine string
	}{
		{
			name:     "no python section",
			settings: fixed(&config.Settings{}, nil),
			want:     "python",
			wantLine: "Python not configured, assuming global python",
		},
		{
			name:     "empty python path",
			settings: fixed(&config.Settings{Python: &config.PythonSettings{}}, nil),
			want:     "python",
			wantLine: "No environment found, assuming global python",
		},
		{
			name:     "configured",
			settings: fixed(&config.Settings{Python: &config.PythonSettings{PythonPath: "/opt/venv/bin/python"}}, nil),
			want:     "/opt/venv/bin/python",
			wantLine: "Using /opt/venv/bin/python",
		},
		{
			name:     "read error",
			settings: fixed(nil, errors.New("boom")),
			want:     "python",
			wantLine: "Python not configured, assuming global python",
		},
		{
			name:     "no settings source",
			settings: nil,
			want:     "python",
			wantLine: "Python not configured, assuming global python",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out lines
			got := NewResolver(tc.settings).Resolve(&out)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, lines{tc.wantLine}, out)
		})
	}
}

func TestResolve_ReadsSettingsFreshEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	r := NewResolver(FromFile(path))

	var out lines
	assert.Equal(t, "python", r.Resolve(&out))

	require.NoError(t, os.WriteFile(path, []byte("python:\n  pythonPath: /usr/local/bin/python3.12\n"), 0o644))
	assert.Equal(t, "/usr/local/bin/python3.12", r.Resolve(&out))

	assert.Equal(t, lines{
		"Python not configured, assuming global python",
		"Using /usr/local/bin/python3.12",
	}, out)
}
