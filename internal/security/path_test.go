package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{
			name: "simple file name",
			path: "photo.jpg",
		},
		{
			name: "nested relative path",
			path: "photos/2026/photo.jpg",
		},
		{
			name: "dot prefixed path",
			path: "./photo.jpg",
		},
		{
			name: "double dots inside a file name",
			path: "archive..2026.zip",
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
			errMsg:  "path cannot be empty",
		},
		{
			name:    "plain traversal",
			path:    "../secrets.txt",
			wantErr: true,
			errMsg:  "directory traversal",
		},
		{
			name:    "embedded traversal",
			path:    "photos/../../etc/passwd",
			wantErr: true,
			errMsg:  "directory traversal",
		},
		{
			name:    "bare parent reference",
			path:    "..",
			wantErr: true,
			errMsg:  "directory traversal",
		},
		{
			name:    "absolute path",
			path:    "/etc/passwd",
			wantErr: true,
			errMsg:  "absolute paths not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveWithinBase(t *testing.T) {
	base := t.TempDir()

	resolved, err := ResolveWithinBase(base, "photos/pic.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "photos", "pic.jpg"), resolved)

	// Interior dot segments collapse into a path still inside the base.
	resolved, err = ResolveWithinBase(base, "photos/./pic.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "photos", "pic.jpg"), resolved)

	_, err = ResolveWithinBase(base, "../pic.jpg")
	require.Error(t, err)

	_, err = ResolveWithinBase(base, "/etc/passwd")
	require.Error(t, err)

	_, err = ResolveWithinBase(base, "")
	require.Error(t, err)
}
