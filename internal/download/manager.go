package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/drm"
	ioutils "github.com/handiism/spotify-downloader/internal/io"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/segment"
	"github.com/handiism/spotify-downloader/internal/spotify"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a pipeline progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Manager coordinates media downloads.
type Manager struct {
	settings  *config.Settings
	client    *spotify.Client
	fetcher   *segment.Fetcher
	cdm       drm.CDM
	unwrapper drm.Unwrapper
	archive   *Archive

	catalog   CatalogClient
	finalizer Finalizer
	chooser   VariantChooser

	jobs     []*model.Job
	failures int

	onProgress func(ProgressEvent)
}

// NewManager creates a Manager wired from settings. The key-acquisition
// backend comes from the settings too: a remote CDM when its URL is set,
// otherwise local device files when their paths are set.
func NewManager(settings *config.Settings, client *spotify.Client, onProgress func(ProgressEvent)) (*Manager, error) {
	fetcher := &segment.Fetcher{
		Client:  client.HTTP(),
		Workers: settings.SegmentWorkers,
	}
	if settings.DownloadMode == config.DownloadModeAccelerator {
		fetcher.Accelerator = settings.AcceleratorPath
	}

	m := &Manager{
		settings:   settings,
		client:     client,
		fetcher:    fetcher,
		onProgress: onProgress,
	}

	switch {
	case settings.RemoteCDMURL != "":
		m.cdm = drm.NewRemoteCDM(settings.RemoteCDMURL, settings.RemoteCDMDevice, settings.RemoteCDMSecret)
	case settings.ClientIDPath != "" && settings.PrivateKeyPath != "":
		cdm, err := drm.NewDeviceCDM(settings.ClientIDPath, settings.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		m.cdm = cdm
	}

	if settings.UnwrapperPath != "" {
		m.unwrapper = &drm.HelperUnwrapper{Path: settings.UnwrapperPath}
	}

	if settings.ArchivePath != "" {
		archive, err := LoadArchive(settings.ArchivePath)
		if err != nil {
			return nil, err
		}
		m.archive = archive
	}
	return m, nil
}

// SetCDM replaces the key-acquisition backend.
func (m *Manager) SetCDM(cdm drm.CDM) { m.cdm = cdm }

// SetUnwrapper replaces the key-unwrap backend.
func (m *Manager) SetUnwrapper(u drm.Unwrapper) { m.unwrapper = u }

// SetCatalog installs the collection-expansion collaborator.
func (m *Manager) SetCatalog(c CatalogClient) { m.catalog = c }

// SetFinalizer installs the finished-file collaborator.
func (m *Manager) SetFinalizer(f Finalizer) { m.finalizer = f }

// SetChooser installs the video profile selection collaborator.
func (m *Manager) SetChooser(c VariantChooser) { m.chooser = c }

// Initialize parses the input URLs and builds the job queue. Inputs that
// cannot be parsed or expanded are reported and skipped.
func (m *Manager) Initialize(ctx context.Context, inputURLs []string) error {
	for _, input := range inputURLs {
		info, err := model.ParseURL(input)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %v", input, err), Level: LevelError})
			continue
		}
		switch info.Type {
		case "track":
			m.jobs = append(m.jobs, model.NewJob(info.ID, model.MediaTrack))
		case "episode":
			m.jobs = append(m.jobs, model.NewJob(info.ID, model.MediaEpisode))
		default:
			if m.catalog == nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: no catalog client for %s URLs", input, info.Type), Level: LevelError})
				continue
			}
			items, err := m.catalog.Expand(ctx, info.Type, info.ID)
			if err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error expanding %s: %v", input, err), Level: LevelError})
				continue
			}
			for _, item := range items {
				m.jobs = append(m.jobs, model.NewJob(item.MediaID, item.MediaType))
			}
		}
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Queued %d items", len(m.jobs)), Level: LevelInfo})
	return nil
}

// Jobs returns the queue, including states after a run.
func (m *Manager) Jobs() []*model.Job {
	return m.jobs
}

// Failures returns how many items failed in the last run.
func (m *Manager) Failures() int {
	return m.failures
}

// Run processes the queue strictly in order with the configured delay
// between items. Per-item failures mark the item failed and continue;
// an authentication failure aborts the run.
func (m *Manager) Run(ctx context.Context) error {
	m.failures = 0
	for i, job := range m.jobs {
		if i > 0 && m.settings.QueueDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(m.settings.QueueDelay * float64(time.Second))):
			}
		}

		if err := m.process(ctx, job); err != nil {
			// Items without a usable rendition are skipped, not failed.
			var unavailable *UnavailableError
			if errors.As(err, &unavailable) {
				job.Advance(model.StateSkipped)
				m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %s", job.MediaID, unavailable.Reason), Level: LevelWarning})
				continue
			}

			job.Advance(model.StateFailed)
			m.failures++
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", job.MediaID, err), Level: LevelError})

			var authErr *spotify.AuthError
			if errors.As(err, &authErr) {
				m.progress(ProgressEvent{Message: "Aborting: authentication failed", Level: LevelError})
				return err
			}
		}
	}

	if m.failures > 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished with %d of %d items failed", m.failures, len(m.jobs)), Level: LevelWarning})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished all %d items", len(m.jobs)), Level: LevelSuccess})
	}
	return nil
}

func (m *Manager) process(ctx context.Context, job *model.Job) error {
	defer m.cleanup(job)

	if m.archive != nil && m.archive.Contains(job.MediaID) {
		job.Advance(model.StateSkipped)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping archived item %s", job.MediaID), Level: LevelVerbose})
		return nil
	}

	metadata, err := m.client.Metadata(ctx, job.MediaType, job.MediaID)
	if err != nil {
		return err
	}
	job.Advance(model.StateManifestResolved)

	if files := metadata.AudioFiles(job.MediaType); len(files) > 0 {
		err = m.processAudio(ctx, job, metadata.Name, files)
	} else if gid := metadata.VideoGID(); gid != "" {
		err = m.processVideo(ctx, job, metadata.Name, gid)
	} else {
		err = &UnavailableError{MediaID: job.MediaID, Reason: "no playable renditions"}
	}
	if err != nil {
		return err
	}

	if m.archive != nil {
		if err := m.archive.Add(job.MediaID); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error updating archive: %v", err), Level: LevelWarning})
		}
	}
	return nil
}

// cleanup removes the job's temporary artifacts. It runs in every
// terminal state.
func (m *Manager) cleanup(job *model.Job) {
	for _, path := range job.TempPaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error removing %s: %v", path, err), Level: LevelWarning})
		}
	}
	job.TempPaths = nil
}

func (m *Manager) tempPath(name string) (string, error) {
	if err := ioutils.EnsureDir(m.settings.TempPath); err != nil {
		return "", err
	}
	return filepath.Join(m.settings.TempPath, name), nil
}

// finalize moves the finished container into the output directory and
// hands it to the finalizer.
func (m *Manager) finalize(ctx context.Context, job *model.Job, name, ext, src string) error {
	if err := ioutils.EnsureDir(m.settings.OutputPath); err != nil {
		return err
	}
	finalPath := filepath.Join(m.settings.OutputPath, ioutils.SanitizeFileName(name)+ext)
	if err := ioutils.MoveFile(ctx, src, finalPath); err != nil {
		return err
	}

	if m.finalizer != nil {
		if err := m.finalizer.Finalize(ctx, finalPath, name); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error finalizing %s: %v", name, err), Level: LevelWarning})
		}
	}

	job.FinalPath = finalPath
	job.Advance(model.StateFinalized)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(finalPath)), Level: LevelSuccess})
	return nil
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
