package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pitwall/pitwall/internal/storage/memory/export/v1"
	"github.com/pitwall/pitwall/internal/util"
	"github.com/pitwall/pitwall/pkg/core"
)

// exportJSON writes the run data to a (optionally gzipped) JSON file.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	path, meta, err := WriteExport(b.cfg.OutputDir, b.cfg.CompressOutput, &v1.RunData{
		Recording: b.recording,
		Data:      b.data,
		Frames:    b.frames,
		Tag:       b.tag,
	})
	if err != nil {
		return err
	}
	b.lastExportPath = path
	b.lastExportMetadata = meta
	return nil
}

// WriteExport builds the replay export of run and writes it into dir. It
// returns the file path and the metadata an upload needs.
func WriteExport(dir string, compress bool, run *v1.RunData) (string, core.UploadMetadata, error) {
	export := v1.Build(run)

	name := util.FileSafe(run.Recording.TrackName)
	timestamp := run.Recording.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%d.json", name, timestamp, run.Recording.ID)
	if compress {
		filename += ".gz"
	}
	outputPath := filepath.Join(dir, filename)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", core.UploadMetadata{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	write := writeJSON
	if compress {
		write = writeGzipJSON
	}
	if err := write(outputPath, export); err != nil {
		return "", core.UploadMetadata{}, err
	}

	return outputPath, core.UploadMetadata{
		TrackName:  run.Recording.TrackName,
		Title:      title(export),
		DurationS:  export.DurationS,
		Tag:        run.Tag,
		FrameCount: export.EndFrame,
	}, nil
}

func title(export v1.Export) string {
	d1, d2 := export.Drivers[0], export.Drivers[1]
	return fmt.Sprintf("%s vs %s @ %s", label(d1), label(d2), export.TrackName)
}

func label(d v1.Driver) string {
	if d.Abbreviation != "" {
		return d.Abbreviation
	}
	return d.ID
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer func() {
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	}()

	return json.NewEncoder(gz).Encode(data)
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata describing the last export
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}
