package drm

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"41.neocities.org/drm/widevine"
	"41.neocities.org/sofia"
)

// LicenseError reports a failure while acquiring a content key.
type LicenseError struct {
	// Stage names the step that failed.
	Stage string

	Err error
}

func (e *LicenseError) Error() string {
	return fmt.Sprintf("license acquisition failed during %s: %v", e.Stage, e.Err)
}

func (e *LicenseError) Unwrap() error {
	return e.Err
}

// CDM opens license sessions from protection init data.
type CDM interface {
	NewSession(ctx context.Context, initData []byte) (Session, error)
}

// Session is one challenge/license exchange. Challenge must be called
// before ParseLicense, and ParseLicense before ContentKey. Close releases
// the session's key material; it is safe to call more than once and the
// session is unusable afterwards. Implementations backed by a remote
// service do network work in every method, so all of them take a context.
type Session interface {
	Challenge(ctx context.Context) ([]byte, error)
	ParseLicense(ctx context.Context, response []byte) error
	ContentKey() ([]byte, error)
	KeyID() []byte
	Close(ctx context.Context) error
}

// DeviceCDM is the local CDM built from a provisioned device: a client id
// blob and its RSA private key.
type DeviceCDM struct {
	clientID   []byte
	privateKey []byte
}

// NewDeviceCDM loads the device files eagerly so a bad path fails before
// any license traffic happens.
func NewDeviceCDM(clientIDPath, privateKeyPath string) (*DeviceCDM, error) {
	clientID, err := os.ReadFile(clientIDPath)
	if err != nil {
		return nil, fmt.Errorf("reading client id: %w", err)
	}
	privateKey, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	if _, err := widevine.ParsePrivateKey(privateKey); err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return &DeviceCDM{clientID: clientID, privateKey: privateKey}, nil
}

// NewSession implements CDM. initData is a complete protection box as
// carried by seek tables and video manifests.
func (c *DeviceCDM) NewSession(_ context.Context, initData []byte) (Session, error) {
	var box sofia.PsshBox
	if err := box.Parse(initData); err != nil {
		return nil, &LicenseError{Stage: "init data parsing", Err: err}
	}
	var pssh widevine.PsshData
	if err := pssh.Unmarshal(box.Data); err != nil {
		return nil, &LicenseError{Stage: "init data parsing", Err: err}
	}
	if len(pssh.KeyIds) == 0 {
		return nil, &LicenseError{Stage: "init data parsing", Err: fmt.Errorf("init data carries no key ids")}
	}
	return &deviceSession{cdm: c, pssh: pssh}, nil
}

type deviceSession struct {
	cdm       *DeviceCDM
	pssh      widevine.PsshData
	challenge []byte
	key       []byte
	closed    bool
}

func (s *deviceSession) Challenge(context.Context) ([]byte, error) {
	if s.closed {
		return nil, &LicenseError{Stage: "challenge", Err: fmt.Errorf("session is closed")}
	}
	request, err := s.pssh.BuildLicenseRequest(s.cdm.clientID)
	if err != nil {
		return nil, &LicenseError{Stage: "challenge", Err: err}
	}
	privateKey, err := widevine.ParsePrivateKey(s.cdm.privateKey)
	if err != nil {
		return nil, &LicenseError{Stage: "challenge", Err: err}
	}
	signed, err := widevine.BuildSignedMessage(request, privateKey)
	if err != nil {
		return nil, &LicenseError{Stage: "challenge", Err: err}
	}
	s.challenge = request
	return signed, nil
}

func (s *deviceSession) ParseLicense(_ context.Context, response []byte) error {
	if s.closed {
		return &LicenseError{Stage: "license parsing", Err: fmt.Errorf("session is closed")}
	}
	if s.challenge == nil {
		return &LicenseError{Stage: "license parsing", Err: fmt.Errorf("no challenge was issued")}
	}
	privateKey, err := widevine.ParsePrivateKey(s.cdm.privateKey)
	if err != nil {
		return &LicenseError{Stage: "license parsing", Err: err}
	}
	keys, err := widevine.ParseLicenseResponse(response, s.challenge, privateKey)
	if err != nil {
		return &LicenseError{Stage: "license parsing", Err: err}
	}
	key, ok := widevine.GetKey(keys, s.KeyID())
	if !ok {
		return &LicenseError{Stage: "key selection", Err: fmt.Errorf("key %x not in license", s.KeyID())}
	}
	var zero [16]byte
	if bytes.Equal(key, zero[:]) {
		return &LicenseError{Stage: "key selection", Err: fmt.Errorf("license carried a zero key")}
	}
	s.key = key
	return nil
}

func (s *deviceSession) ContentKey() ([]byte, error) {
	if s.key == nil {
		return nil, &LicenseError{Stage: "key selection", Err: fmt.Errorf("no license was parsed")}
	}
	// Copied so the key survives Close, which zeroes the session's slice.
	return bytes.Clone(s.key), nil
}

func (s *deviceSession) KeyID() []byte {
	return s.pssh.KeyIds[0]
}

func (s *deviceSession) Close(context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
	s.challenge = nil
	return nil
}
