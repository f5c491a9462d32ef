package drm

import "context"

// LicensePoster sends a signed challenge to the license endpoint and
// returns the raw response body.
type LicensePoster func(ctx context.Context, challenge []byte) ([]byte, error)

// FetchKey runs one full challenge/license exchange and returns the
// content key alongside its key id. The session is closed on every exit
// path.
func FetchKey(ctx context.Context, cdm CDM, initData []byte, post LicensePoster) (key, keyID []byte, err error) {
	session, err := cdm.NewSession(ctx, initData)
	if err != nil {
		return nil, nil, err
	}
	defer session.Close(ctx)

	challenge, err := session.Challenge(ctx)
	if err != nil {
		return nil, nil, err
	}
	response, err := post(ctx, challenge)
	if err != nil {
		return nil, nil, &LicenseError{Stage: "license request", Err: err}
	}
	if err := session.ParseLicense(ctx, response); err != nil {
		return nil, nil, err
	}
	key, err = session.ContentKey()
	if err != nil {
		return nil, nil, err
	}
	return key, session.KeyID(), nil
}
