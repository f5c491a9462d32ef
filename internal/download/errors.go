package download

import "fmt"

// UnavailableError reports an item with no usable rendition: region
// restrictions, missing file lists, or nothing at or below the requested
// quality.
type UnavailableError struct {
	MediaID string
	Reason  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s is unavailable: %s", e.MediaID, e.Reason)
}
