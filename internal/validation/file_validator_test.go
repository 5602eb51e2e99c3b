package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "growthcurves/internal/errors"
)

func TestFileValidator_ValidateWorkbook(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))
		return path
	}

	tests := []struct {
		name    string
		path    string
		errType apperrors.ErrorType
	}{
		{"workbook", write("cohort.xlsx"), ""},
		{"upper case extension", write("COHORT.XLSX"), ""},
		{"missing", filepath.Join(dir, "absent.xlsx"), apperrors.ErrTypeMissingInput},
		{"directory", dir, apperrors.ErrTypeMissingInput},
		{"csv", write("cohort.csv"), apperrors.ErrTypeValidation},
		{"lock file", write("~$cohort.xlsx"), apperrors.ErrTypeValidation},
	}

	v := NewFileValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateWorkbook(tt.path)
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	t.Run("creates nested directories", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		require.NoError(t, v.ValidateOutputDirectory(dir))
		assert.DirExists(t, dir)
		assert.NoFileExists(t, filepath.Join(dir, ".write_test"))
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0644))

		err := v.ValidateOutputDirectory(filepath.Join(file, "out"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})
}
