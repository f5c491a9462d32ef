// Package spotify implements the authenticated client for the streaming
// service's web API: time-code authentication, session lifecycle,
// identifier translation and the endpoints the retrieval pipeline needs.
//
// # Sessions
//
// A Client authenticates lazily. Every API call first checks the stored
// session expiry (exclusive: a call at exactly the expiry timestamp
// re-authenticates) and re-runs the handshake when needed:
//
//	client := spotify.NewClient(spotify.Options{SPDC: cookie})
//	meta, err := client.Metadata(ctx, model.MediaTrack, "4iV5W9uYEdYUVa79Axb7Rh")
//
// The primary handshake derives a one-time code from a versioned shared
// secret and the server clock. When it fails, the client falls back to
// the device-pairing flow; if both fail the error is an *AuthError and
// the run cannot continue.
//
// # Identifiers
//
// The service addresses media by a compact 22-character base62 id
// externally and a fixed-length hex GID internally. MediaIDToGID and
// GIDToMediaID convert between the two; the mapping is bijective.
package spotify
