package modelcache

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ObjectStore is where model files are downloaded from.
type ObjectStore interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key string, dest string) error
}

type PopulateRequest struct {
	Variant   string
	Engine    string
	Prefix    string
	Languages []string
}

// Populate downloads every object under Prefix/Variant/ into the variant
// directory and writes the manifest last. An existing complete cache is left
// untouched.
func (c *Cache) Populate(ctx context.Context, store ObjectStore, req PopulateRequest) (*Manifest, error) {
	if m, err := c.Load(req.Variant); err == nil {
		c.log.WithFields(logrus.Fields{
			"variant": req.Variant,
			"dir":     m.Dir,
		}).Info("Model cache already populated")
		return m, nil
	}

	preset, ok := Presets[req.Variant]
	if !ok {
		return nil, fmt.Errorf("unknown model variant %q", req.Variant)
	}

	prefix := path.Join(strings.Trim(req.Prefix, "/"), req.Variant) + "/"
	if strings.HasPrefix(prefix, "/") {
		prefix = prefix[1:]
	}

	keys, err := store.ListKeys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	dir := c.VariantDir(req.Variant)
	files := make([]string, 0, len(keys))
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") || rel == ManifestFile {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return nil, fmt.Errorf("object key %q escapes the cache directory", key)
		}

		dest := filepath.Join(dir, filepath.FromSlash(rel))
		c.log.WithFields(logrus.Fields{
			"key":  key,
			"dest": dest,
		}).Info("Downloading model file")

		if err := store.Download(ctx, key, dest); err != nil {
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
		files = append(files, rel)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no model files found under %s", prefix)
	}
	sort.Strings(files)

	m := &Manifest{
		Variant:     req.Variant,
		Engine:      req.Engine,
		Languages:   req.Languages,
		Files:       files,
		PopulatedAt: time.Now().UTC(),
		Dir:         dir,
	}
	if req.Engine == "paddle" {
		m.DetectionModel = preset.DetectionModel
		m.RecognitionModel = preset.RecognitionModel
	}

	if err := c.WriteManifest(m); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return m, nil
}
