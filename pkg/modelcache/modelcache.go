package modelcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const ManifestFile = "manifest.yaml"

var ErrNotPopulated = errors.New("model cache not populated")

// Preset names the models a variant uses for each engine.
type Preset struct {
	DetectionModel   string
	RecognitionModel string
	TessdataFlavor   string
}

var Presets = map[string]Preset{
	"server": {
		DetectionModel:   "PP-OCRv5_server_det",
		RecognitionModel: "PP-OCRv5_server_rec",
		TessdataFlavor:   "tessdata_best",
	},
	"mobile": {
		DetectionModel:   "PP-OCRv5_mobile_det",
		RecognitionModel: "PP-OCRv5_mobile_rec",
		TessdataFlavor:   "tessdata_fast",
	},
}

// Manifest describes one populated variant directory. It is written last when
// the cache is populated, so its presence means the download finished.
type Manifest struct {
	Variant          string    `yaml:"variant"`
	Engine           string    `yaml:"engine"`
	DetectionModel   string    `yaml:"detection_model,omitempty"`
	RecognitionModel string    `yaml:"recognition_model,omitempty"`
	Languages        []string  `yaml:"languages,omitempty"`
	Files            []string  `yaml:"files"`
	PopulatedAt      time.Time `yaml:"populated_at"`

	Dir string `yaml:"-"`
}

// Path returns the absolute location of a manifest-relative file.
func (m *Manifest) Path(rel string) string {
	return filepath.Join(m.Dir, filepath.FromSlash(rel))
}

type Cache struct {
	root string
	log  *logrus.Logger
}

func New(root string, log *logrus.Logger) *Cache {
	return &Cache{root: root, log: log}
}

func (c *Cache) VariantDir(variant string) string {
	return filepath.Join(c.root, variant)
}

// Load reads the manifest for variant and checks that every file it lists is
// present and non-empty.
func (c *Cache) Load(variant string) (*Manifest, error) {
	dir := c.VariantDir(variant)

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no manifest in %s", ErrNotPopulated, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.Dir = dir

	if m.Variant != variant {
		return nil, fmt.Errorf("manifest in %s is for variant %q", dir, m.Variant)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("%w: manifest in %s lists no files", ErrNotPopulated, dir)
	}

	for _, rel := range m.Files {
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return nil, fmt.Errorf("manifest file %q escapes the cache directory", rel)
		}
		info, err := os.Stat(m.Path(rel))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotPopulated, rel, err)
		}
		if info.IsDir() || info.Size() == 0 {
			return nil, fmt.Errorf("%w: %s is empty", ErrNotPopulated, rel)
		}
	}

	return &m, nil
}

// WriteManifest stores m atomically in its variant directory.
func (c *Cache) WriteManifest(m *Manifest) error {
	dir := c.VariantDir(m.Variant)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	raw, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ManifestFile+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(dir, ManifestFile))
}

// Watch polls the cache until variant loads and onReady accepts it, or ctx
// ends. onReady errors are logged and retried on the next tick.
func (c *Cache) Watch(ctx context.Context, variant string, interval time.Duration, onReady func(*Manifest) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logged := false
	for {
		m, err := c.Load(variant)
		if err == nil {
			if err = onReady(m); err == nil {
				c.log.WithFields(logrus.Fields{
					"variant": variant,
					"dir":     m.Dir,
					"files":   len(m.Files),
				}).Info("Model cache ready")
				return nil
			}
		}

		if !logged || !errors.Is(err, ErrNotPopulated) {
			c.log.WithFields(logrus.Fields{
				"variant": variant,
				"error":   err.Error(),
			}).Warn("Model cache not ready yet")
			logged = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
