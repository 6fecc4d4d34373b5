package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobFilter(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		path    string
		want    bool
	}{
		{"empty matches all", nil, nil, "api/dms", true},
		{"include match", []string{"api/*"}, nil, "api/dms", true},
		{"include stays in directory", []string{"api/*"}, nil, "api/img/g1.gif", false},
		{"include deep", []string{"api/**"}, nil, "api/img/g1.gif", true},
		{"include miss", []string{"api/*"}, nil, "incident", false},
		{"exclude wins", []string{"**"}, []string{"TPIMS_*"}, "TPIMS_archive", false},
		{"exclude miss", nil, []string{"TPIMS_*"}, "camera_pub", true},
		{"alternatives", []string{"{dms_pub,camera_pub}"}, nil, "camera_pub", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewGlobFilter(tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(tt.path))
		})
	}
}

func TestGlobFilterInvalidPattern(t *testing.T) {
	_, err := NewGlobFilter([]string{"api["}, nil)
	assert.Error(t, err)

	_, err = NewGlobFilter(nil, []string{"img["})
	assert.Error(t, err)
}
