package spotify

import (
	"context"
	"fmt"

	httpx "github.com/handiism/spotify-downloader/internal/http"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/spotify/dto"
)

// Metadata fetches the low-level metadata record for a media item.
func (c *Client) Metadata(ctx context.Context, mediaType model.MediaType, mediaID string) (*dto.GIDMetadata, error) {
	if err := c.ensureAuthorized(ctx); err != nil {
		return nil, err
	}
	gid, err := MediaIDToGID(mediaID)
	if err != nil {
		return nil, err
	}

	endpoint := c.endpoints.TrackMetadata
	if mediaType == model.MediaEpisode {
		endpoint = c.endpoints.EpisodeMetadata
	}
	var metadata dto.GIDMetadata
	if err := c.http.GetJSON(ctx, "media metadata", fmt.Sprintf(endpoint, gid), nil, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// VideoManifest fetches and validates the segmented video descriptor for
// a video GID.
func (c *Client) VideoManifest(ctx context.Context, videoGID string) (*model.VideoManifest, error) {
	if err := c.ensureAuthorized(ctx); err != nil {
		return nil, err
	}
	var manifest dto.VideoManifest
	if err := c.http.GetJSON(ctx, "video manifest", fmt.Sprintf(c.endpoints.VideoManifest, videoGID), nil, &manifest); err != nil {
		return nil, err
	}
	return manifest.ToModel()
}

// SeekTableInitData fetches the seek table of an encoded audio file and
// returns its decoded DRM init data. The seek table host needs no
// authorization.
func (c *Client) SeekTableInitData(ctx context.Context, fileID string) ([]byte, error) {
	var table dto.SeekTable
	if err := c.http.GetJSON(ctx, "seek table", fmt.Sprintf(c.endpoints.SeekTable, fileID), nil, &table); err != nil {
		return nil, err
	}
	return table.PSSHData()
}

// AudioStreamURL resolves the CDN URL of an encoded audio file.
func (c *Client) AudioStreamURL(ctx context.Context, fileID string) (string, error) {
	if err := c.ensureAuthorized(ctx); err != nil {
		return "", err
	}
	var resolved dto.StorageResolve
	if err := c.http.GetJSON(ctx, "storage resolve", fmt.Sprintf(c.endpoints.StorageResolve, fileID), nil, &resolved); err != nil {
		return "", err
	}
	if len(resolved.CDNURL) == 0 {
		return "", fmt.Errorf("storage resolve returned no CDN URLs (result %q)", resolved.Result)
	}
	return resolved.CDNURL[0], nil
}

// WidevineLicense posts a license challenge and returns the raw license
// response. mediaKind is "audio" or "video".
func (c *Client) WidevineLicense(ctx context.Context, mediaKind string, challenge []byte) ([]byte, error) {
	if err := c.ensureAuthorized(ctx); err != nil {
		return nil, err
	}
	return c.http.PostRaw(ctx, "widevine license", fmt.Sprintf(c.endpoints.WidevineLicense, mediaKind), challenge)
}

// PlayPlayLicense posts a key request for an encoded audio file and
// returns the raw response envelope.
func (c *Client) PlayPlayLicense(ctx context.Context, fileID string, request []byte) ([]byte, error) {
	if err := c.ensureAuthorized(ctx); err != nil {
		return nil, err
	}
	return c.http.PostRaw(ctx, "playplay license", fmt.Sprintf(c.endpoints.PlayPlayLicense, fileID), request)
}

// HTTP exposes the underlying client so downloads reuse the session
// headers and cookies.
func (c *Client) HTTP() *httpx.Client {
	return c.http
}
