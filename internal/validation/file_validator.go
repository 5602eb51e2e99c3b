package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "growthcurves/internal/errors"
)

// FileValidator checks the input workbooks and output directory of a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateFile checks that path exists, is a regular file and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewMissingInput(fmt.Sprintf("file %s does not exist", path))
	}
	if err != nil {
		return apperrors.NewParsingError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewMissingInput(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewParsingError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbook checks that path is a readable .xlsx workbook that is
// not an Office lock file
func (v *FileValidator) ValidateWorkbook(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is not an Excel workbook (extension: %s)", path, ext))
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is a temporary Excel file", path))
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}
