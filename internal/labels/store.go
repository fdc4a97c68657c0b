package labels

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/hytous/RigidLabeler/internal/logging"
)

// ErrNotFound is returned when no label file exists for a request.
var ErrNotFound = errors.New("label not found")

const maxStemLength = 20

// SaveResult reports where a label was written.
type SaveResult struct {
	LabelPath string `json:"label_path"`
	LabelID   string `json:"label_id"`
}

// Item summarizes a stored label.
type Item struct {
	LabelID     string `json:"label_id"`
	LabelPath   string `json:"label_path"`
	ImageFixed  string `json:"image_fixed"`
	ImageMoving string `json:"image_moving"`
}

// Store keeps one JSON file per image pair under Root.
type Store struct {
	Root string
}

// NewStore creates a store rooted at dir. The directory is created on first save.
func NewStore(dir string) *Store {
	return &Store{Root: dir}
}

// ID returns the stable identifier of an image pair: the first eight hex
// digits of the MD5 of "fixed|moving". Existing label directories are
// keyed by this exact hash.
func ID(imageFixed, imageMoving string) string {
	sum := md5.Sum([]byte(imageFixed + "|" + imageMoving))
	return hex.EncodeToString(sum[:])[:8]
}

// FileName returns the label file name for an image pair:
// {id}_{fixedStem}_{movingStem}.json.
func FileName(imageFixed, imageMoving string) string {
	return ID(imageFixed, imageMoving) + "_" + stem(imageFixed) + "_" + stem(imageMoving) + ".json"
}

// stem returns the sanitized base name of path without extension. Both
// slash styles separate components so paths sent by Windows clients work.
func stem(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if ext := filepath.Ext(path); ext != "" && ext != path {
		path = strings.TrimSuffix(path, ext)
	}

	runes := []rune(path)
	if len(runes) > maxStemLength {
		runes = runes[:maxStemLength]
	}
	for i, r := range runes {
		if !isSafe(r) {
			runes[i] = '_'
		}
	}
	return string(runes)
}

// isSafe keeps letters and digits of any script, so CJK names survive.
func isSafe(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '_'
}

// Path returns the file path a label for the pair is stored at.
func (s *Store) Path(imageFixed, imageMoving string) string {
	return filepath.Join(s.Root, FileName(imageFixed, imageMoving))
}

// Save writes the label, replacing any previous label for the same pair.
// A missing timestamp is set to the current time.
func (s *Store) Save(label *Label) (SaveResult, error) {
	if err := label.Validate(); err != nil {
		return SaveResult{}, err
	}

	if err := os.MkdirAll(s.Root, 0755); err != nil {
		return SaveResult{}, errors.Wrap(err, "failed to create labels directory")
	}

	if label.Meta == nil {
		label.Meta = &Meta{}
	}
	if label.Meta.Timestamp == "" {
		label.Meta.Timestamp = time.Now().Format(time.RFC3339)
	}
	if label.TiePoints == nil {
		label.TiePoints = []TiePoint{}
	}

	data, err := json.MarshalIndent(label, "", "  ")
	if err != nil {
		return SaveResult{}, errors.Wrap(err, "failed to encode label")
	}

	path := s.Path(label.ImageFixed, label.ImageMoving)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return SaveResult{}, errors.Wrap(err, "failed to save label")
	}
	logging.Debug("saved label %s", path)

	return SaveResult{
		LabelPath: path,
		LabelID:   ID(label.ImageFixed, label.ImageMoving),
	}, nil
}

// Load reads the label stored for an image pair.
func (s *Store) Load(imageFixed, imageMoving string) (*Label, error) {
	label, err := LoadPath(s.Path(imageFixed, imageMoving))
	if errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(ErrNotFound, "no label for given image pair")
	}
	return label, err
}

// LoadPath reads a label file from an explicit path.
func LoadPath(path string) (*Label, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "label file %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read label file")
	}

	var label Label
	if err := json.Unmarshal(data, &label); err != nil {
		return nil, errors.Wrapf(err, "invalid JSON in label file %s", path)
	}
	return &label, nil
}

// List returns a summary of every label in the store ordered by file name.
// Files that cannot be parsed are skipped. A missing root yields no items.
func (s *Store) List() ([]Item, error) {
	entries, err := os.ReadDir(s.Root)
	if os.IsNotExist(err) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list labels")
	}

	items := []Item{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.Root, e.Name())

		var head struct {
			ImageFixed  string `json:"image_fixed"`
			ImageMoving string `json:"image_moving"`
		}
		data, err := os.ReadFile(path)
		if err == nil {
			err = json.Unmarshal(data, &head)
		}
		if err != nil {
			logging.Warning("skipping malformed label %s: %v", path, err)
			continue
		}

		items = append(items, Item{
			LabelID:     strings.SplitN(e.Name(), "_", 2)[0],
			LabelPath:   path,
			ImageFixed:  head.ImageFixed,
			ImageMoving: head.ImageMoving,
		})
	}
	return items, nil
}

// Delete removes the label of an image pair. It reports false if no label existed.
func (s *Store) Delete(imageFixed, imageMoving string) (bool, error) {
	err := os.Remove(s.Path(imageFixed, imageMoving))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to delete label")
	}
	return true, nil
}
