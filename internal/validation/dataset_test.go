package validation

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFileValidator_ValidateDatasetFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "engines.csv")
	require.NoError(t, os.WriteFile(valid, []byte("brand,model\nBMW,M3\n"), 0644))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	wrongExt := filepath.Join(dir, "engines.xlsx")
	require.NoError(t, os.WriteFile(wrongExt, []byte("pk"), 0644))

	tests := []struct {
		name       string
		path       string
		wantErr    string
		isNotExist bool
	}{
		{
			name: "valid csv file",
			path: valid,
		},
		{
			name:       "missing file wraps not exist",
			path:       filepath.Join(dir, "nope.csv"),
			wantErr:    "nope.csv",
			isNotExist: true,
		},
		{
			name:    "directory instead of file",
			path:    dir,
			wantErr: "is a directory",
		},
		{
			name:    "wrong extension",
			path:    wrongExt,
			wantErr: "not a CSV file",
		},
		{
			name:    "empty file",
			path:    empty,
			wantErr: "is empty",
		},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateDatasetFile(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.isNotExist, errors.Is(err, os.ErrNotExist))
		})
	}
}

func TestFileValidator_ValidateOutputPath(t *testing.T) {
	dir := t.TempDir()
	v := testValidator()

	t.Run("file in existing directory", func(t *testing.T) {
		assert.NoError(t, v.ValidateOutputPath(filepath.Join(dir, "out.csv")))
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "deep", "out.xlsx")
		require.NoError(t, v.ValidateOutputPath(path))
		info, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects existing directory as target", func(t *testing.T) {
		err := v.ValidateOutputPath(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})

	t.Run("leaves no probe file behind", func(t *testing.T) {
		target := filepath.Join(dir, "probe-check", "report.csv")
		require.NoError(t, v.ValidateOutputPath(target))
		_, err := os.Stat(filepath.Join(filepath.Dir(target), ".write_test"))
		assert.True(t, os.IsNotExist(err))
	})
}
