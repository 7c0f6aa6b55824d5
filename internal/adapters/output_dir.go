package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"

	"apkfetch/internal/ports"
)

const maxFilenameAttempts = 1000

type OutputDirAdapter struct {
	Dir string
}

func NewOutputDirAdapter(dir string) OutputDirAdapter {
	return OutputDirAdapter{Dir: dir}
}

// Save streams body into the output directory. Existing files are never
// overwritten: a taken name gets a -2, -3, ... suffix before its extension.
// A partially written file is removed when the copy fails.
func (a OutputDirAdapter) Save(filename string, body io.Reader) (string, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	if err := a.ensureDir(); err != nil {
		return "", err
	}
	file, finalName, err := a.createUnique(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(a.Dir, finalName)
	cleanupNeeded := true
	defer func() {
		file.Close()
		if cleanupNeeded {
			os.Remove(path)
		}
	}()
	if _, err := io.Copy(file, body); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write " + finalName + ": " + err.Error()).
			WithCause(err)
	}
	if err := file.Close(); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close " + finalName + ": " + err.Error()).
			WithCause(err)
	}
	cleanupNeeded = false
	return finalName, nil
}

// CheckCapacity fails when the output filesystem has less than minFreeBytes
// available. Zero disables the check.
func (a OutputDirAdapter) CheckCapacity(ctx context.Context, minFreeBytes uint64) error {
	if minFreeBytes == 0 {
		return nil
	}
	if err := a.ensureDir(); err != nil {
		return err
	}
	usage, err := disk.UsageWithContext(ctx, a.Dir)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read free space for " + a.Dir).
			WithCause(err)
	}
	log.Debug().
		Str("dir", a.Dir).
		Uint64("free", usage.Free).
		Uint64("required", minFreeBytes).
		Msg("output capacity checked")
	if usage.Free < minFreeBytes {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("insufficient free space in %s: %d MiB available, %d MiB required", a.Dir, usage.Free>>20, minFreeBytes>>20))
	}
	return nil
}

func (a OutputDirAdapter) createUnique(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for attempt := 1; attempt <= maxFilenameAttempts; attempt++ {
		candidate := name
		if attempt > 1 {
			candidate = stem + "-" + strconv.Itoa(attempt) + ext
		}
		file, err := os.OpenFile(filepath.Join(a.Dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create output file " + candidate + ": " + err.Error()).
				WithCause(err)
		}
	}
	return nil, "", errbuilder.New().
		WithCode(errbuilder.CodeAlreadyExists).
		WithMsg("no free file name for " + name)
}

func (a OutputDirAdapter) ensureDir() error {
	if a.Dir == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return nil
}

// sanitizeFilename keeps only the base name so header-supplied names cannot
// escape the output directory.
func sanitizeFilename(filename string) (string, error) {
	name := strings.TrimSpace(strings.ReplaceAll(filename, "\\", "/"))
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid output file name: " + filename)
	}
	return name, nil
}

var _ ports.OutputPort = OutputDirAdapter{}
