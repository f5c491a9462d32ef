// Package drm acquires content decryption keys.
//
// Two key-delivery schemes are supported. Widevine-protected streams go
// through a CDM: init data in, signed challenge out, license response
// back, content key selected. The CDM is an interface so a remote proxy
// can stand in for the local device implementation. Vorbis audio uses
// the service's own key-wrap scheme instead, where a small protobuf
// envelope fetches an obfuscated key that an external helper unwraps.
package drm
