package staging

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// Picker accumulates file picks for one upload round. Camera captures and
// library picks live in separate lists because removal must route back to the
// origin list; the merged selection the user sees has no backing store of its
// own.
type Picker struct {
	logger     *logger.Logger
	scratchDir string

	mu           sync.Mutex
	cameraFiles  []types.StagedFile
	libraryFiles []types.StagedFile
}

// NewPicker creates an empty picker. scratchDir is the directory holding
// picked-file copies; it may be empty when no scratch cleanup is wanted.
func NewPicker(log *logger.Logger, scratchDir string) *Picker {
	return &Picker{logger: log, scratchDir: scratchDir}
}

// AddCamera records a camera capture.
func (p *Picker) AddCamera(file types.StagedFile) {
	file.Origin = types.OriginCamera
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cameraFiles = append(p.cameraFiles, file)
}

// AddLibrary records a library/document pick.
func (p *Picker) AddLibrary(file types.StagedFile) {
	file.Origin = types.OriginLibrary
	p.mu.Lock()
	defer p.mu.Unlock()
	p.libraryFiles = append(p.libraryFiles, file)
}

// Selected returns the merged view, library picks before camera captures.
func (p *Picker) Selected() []types.StagedFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.StagedFile, 0, len(p.libraryFiles)+len(p.cameraFiles))
	out = append(out, p.libraryFiles...)
	out = append(out, p.cameraFiles...)
	return out
}

// Count returns the number of selected files.
func (p *Picker) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.libraryFiles) + len(p.cameraFiles)
}

// Remove drops the file with the given URI from whichever origin list it was
// tagged with, and only that list.
func (p *Picker) Remove(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if containsURI(p.cameraFiles, uri) {
		p.cameraFiles = withoutURI(p.cameraFiles, uri)
		return
	}
	p.libraryFiles = withoutURI(p.libraryFiles, uri)
}

// Clear empties both origin lists.
func (p *Picker) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cameraFiles = nil
	p.libraryFiles = nil
}

// Confirm snapshots the selection as a batch, tags every file with the one
// document type chosen for the round, and clears the picker. An empty
// selection is a validation error.
func (p *Picker) Confirm(docType types.DocumentType) (types.StagedBatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.libraryFiles) + len(p.cameraFiles)
	if total == 0 {
		return types.StagedBatch{}, types.NewValidationError(types.ErrCodeInvalidInput,
			"Please select at least one file.", nil)
	}

	files := make([]types.StagedFile, 0, total)
	files = append(files, p.libraryFiles...)
	files = append(files, p.cameraFiles...)
	for i := range files {
		files[i].DocType = docType
	}

	p.cameraFiles = nil
	p.libraryFiles = nil

	return types.StagedBatch{DocType: docType, Files: files}, nil
}

// CleanScratch deletes everything under the scratch directory. Failures are
// logged and swallowed; scratch cleanup is best effort.
func (p *Picker) CleanScratch() {
	if p.scratchDir == "" {
		return
	}
	entries, err := os.ReadDir(p.scratchDir)
	if err != nil {
		p.logger.WithComponent("staging").WithError(err).Warn("Scratch cleanup failed")
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(p.scratchDir, entry.Name())); err != nil {
			p.logger.WithComponent("staging").WithError(err).Warn("Scratch cleanup failed")
		}
	}
}

func containsURI(files []types.StagedFile, uri string) bool {
	for _, f := range files {
		if f.URI == uri {
			return true
		}
	}
	return false
}

func withoutURI(files []types.StagedFile, uri string) []types.StagedFile {
	out := files[:0]
	for _, f := range files {
		if f.URI == uri {
			continue
		}
		out = append(out, f)
	}
	return out
}
