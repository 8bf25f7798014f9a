package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("upload not found")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store is a content-addressed blob store for uploads. The id of a blob is
// the sha256 of its content, so re-uploading the same file is idempotent.
type Store struct {
	dir    string
	logger zerolog.Logger
}

func NewStore(dataDir string, logger zerolog.Logger) (*Store, error) {
	dir := filepath.Join(dataDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With().Str("service", "uploads").Logger(),
	}, nil
}

// Put stores the blob and returns its content hash id.
func (s *Store) Put(filename string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	sum := sha256.Sum256(content)
	id := hex.EncodeToString(sum[:])

	path := filepath.Join(s.dir, id+"__"+sanitize(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	s.logger.Info().Str("upload_id", id).Str("filename", filename).Int("bytes", len(content)).Msg("file uploaded")
	return id, nil
}

// Open returns the blob content and original filename for an id.
func (s *Store) Open(id string) (io.ReadCloser, string, error) {
	if unsafeChars.MatchString(id) || id == "" {
		return nil, "", ErrNotFound
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+"__*"))
	if err != nil || len(matches) == 0 {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(matches[0])
	if err != nil {
		return nil, "", ErrNotFound
	}
	_, name, _ := strings.Cut(filepath.Base(matches[0]), "__")
	return f, name, nil
}

func sanitize(filename string) string {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "unnamed"
	}
	return unsafeChars.ReplaceAllString(base, "_")
}
