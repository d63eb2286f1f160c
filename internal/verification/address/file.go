package address

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/safetag/safetag-backend/internal/verification/domain"
)

// FileSource reads rules from a JSON or YAML file. The format is chosen by
// extension; anything other than .yaml or .yml is read as JSON.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// ModTime returns the file's modification time
func (s *FileSource) ModTime(_ context.Context) (time.Time, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Load parses the file
func (s *FileSource) Load(_ context.Context) ([]domain.AddressRule, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	var rules []domain.AddressRule
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rules)
	default:
		err = json.Unmarshal(data, &rules)
	}
	if err != nil {
		return nil, fmt.Errorf("parse address rules %s: %w", s.Path, err)
	}
	return rules, nil
}
