package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"transcripter/internal/fileutil"
	"transcripter/internal/language"
	"transcripter/internal/logging"
	"transcripter/internal/services"
)

// MetadataFile is the per-project sidecar selecting the prompt language.
const MetadataFile = "metadata.json"

// OutputExt is the extension of transcript artifacts.
const OutputExt = ".html"

var eligible = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".3gp": {}, ".avi": {}, ".mkv": {},
	".mp3": {}, ".wav": {}, ".m4a": {}, ".flac": {}, ".ogg": {}, ".aac": {},
}

// Metadata is the sidecar payload.
type Metadata struct {
	Language string `json:"Language"`
}

// IsMedia reports whether name carries an eligible media extension.
func IsMedia(name string) bool {
	_, ok := eligible[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Discover walks root and returns one job per eligible media file found in a
// directory below root. Files directly in root are ignored. Jobs whose output
// already exists are returned completed. The result is sorted by project then
// source path, so repeated calls over an unchanged tree are identical. When
// several sources map to one output path only the first in that order is
// scheduled.
func Discover(root, outputDir string, logger *slog.Logger) ([]*Job, error) {
	logger = logging.NewComponentLogger(logger, "jobs")

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "resolve input", root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "stat input", root, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "stat input", root+" is not a directory", nil)
	}
	outputAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "resolve output", outputDir, err)
	}

	byDir := map[string][]string{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.WarnWithContext(logger, "skipping unreadable path", "discover_skip",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "media under this path is not scheduled"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && (path == outputAbs || strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		dir := filepath.Dir(path)
		if dir == root || !IsMedia(d.Name()) {
			return nil
		}
		byDir[dir] = append(byDir[dir], path)
		return nil
	})
	if walkErr != nil {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "walk input", root, walkErr)
	}

	var out []*Job
	for dir, files := range byDir {
		project := filepath.Base(dir)
		lang := loadLanguage(dir, logger)
		for _, source := range files {
			stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
			job := New(source, project, lang, filepath.Join(outputDir, project, stem+OutputExt))
			if fileutil.Exists(job.OutputPath) {
				job.completed.Store(true)
			}
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectName != out[j].ProjectName {
			return out[i].ProjectName < out[j].ProjectName
		}
		return out[i].SourcePath < out[j].SourcePath
	})
	out = dropOutputCollisions(out, logger)

	summary := Summarize(out)
	logger.Info("jobs discovered",
		logging.String(logging.FieldEventType, "jobs_discovered"),
		logging.Int("total", summary.Total),
		logging.Int("completed", summary.Completed),
		logging.Int("pending", summary.Pending),
		logging.Int("projects", len(byDir)),
	)
	return out, nil
}

// dropOutputCollisions keeps the first job per output path. Nested projects
// sharing a directory name, or sources differing only by extension, would
// otherwise share one transcript and the later source would never run.
func dropOutputCollisions(found []*Job, logger *slog.Logger) []*Job {
	owners := make(map[string]string, len(found))
	kept := found[:0]
	for _, job := range found {
		if owner, ok := owners[job.OutputPath]; ok {
			logging.WarnWithContext(logger, "output path already claimed", "discover_collision",
				logging.String("path", job.SourcePath),
				logging.String("claimed_by", owner),
				logging.String("output", job.OutputPath),
				logging.String(logging.FieldImpact, "this source is not scheduled"),
				logging.String(logging.FieldErrorHint, "rename the project directory or the file"),
			)
			continue
		}
		owners[job.OutputPath] = job.SourcePath
		kept = append(kept, job)
	}
	return kept
}

// loadLanguage reads the project sidecar, writing the default one when it is
// absent. Concurrent discoveries may both write the default; the content is
// identical so the race is harmless.
func loadLanguage(dir string, logger *slog.Logger) string {
	path := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := WriteMetadata(dir, Metadata{Language: language.Default}); err != nil {
			logging.WarnWithContext(logger, "could not write default metadata", "metadata_write_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "project uses the default language"),
			)
		}
		return language.Default
	}
	if err != nil {
		logging.WarnWithContext(logger, "could not read metadata", "metadata_unreadable",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "project uses the default language"),
		)
		return language.Default
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		logging.WarnWithContext(logger, "metadata is not valid json", "metadata_invalid",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "project uses the default language"),
			logging.String(logging.FieldErrorHint, `expected {"Language": "english"}`),
		)
		return language.Default
	}
	return language.Normalize(meta.Language)
}

// WriteMetadata writes the sidecar for a project directory.
func WriteMetadata(dir string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, MetadataFile), append(data, '\n'), 0o644)
}
