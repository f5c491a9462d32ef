package download

import (
	"context"

	"github.com/handiism/spotify-downloader/internal/model"
)

// QueueItem is one playable media item to process.
type QueueItem struct {
	MediaID   string
	MediaType model.MediaType
}

// CatalogClient expands collection URLs (albums, playlists, shows,
// artists) into their playable items. The pipeline itself only ever
// works on single items.
type CatalogClient interface {
	Expand(ctx context.Context, kind, id string) ([]QueueItem, error)
}

// Finalizer receives every finished file for tagging and library
// bookkeeping. The path points at the final location.
type Finalizer interface {
	Finalize(ctx context.Context, path, name string) error
}

// VariantChooser overrides the default highest-bitrate video profile
// selection, typically with an interactive prompt. Returning ok false
// falls back to the default.
type VariantChooser interface {
	ChooseProfile(profiles []model.VideoProfile) (model.VideoProfile, bool)
}
