package download

import (
	"bufio"
	"os"
	"strings"
)

// Archive is the set of already-downloaded media ids, persisted one id
// per line. Items found in the archive are skipped before any network
// traffic happens.
type Archive struct {
	path string
	ids  map[string]bool
}

// LoadArchive reads an archive file. A missing file yields an empty
// archive bound to the same path.
func LoadArchive(path string) (*Archive, error) {
	archive := &Archive{path: path, ids: map[string]bool{}}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return archive, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			archive.ids[id] = true
		}
	}
	return archive, scanner.Err()
}

// Contains reports whether the id was downloaded before.
func (a *Archive) Contains(id string) bool {
	return a.ids[id]
}

// Add records the id and appends it to the archive file.
func (a *Archive) Add(id string) error {
	if a.ids[id] {
		return nil
	}
	a.ids[id] = true

	file, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(id + "\n")
	return err
}
