package counter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/filerstat/filerstat/internal/filer"
)

// Description is the immutable metadata for one named counter within one
// object type.
type Description struct {
	Name string
	Kind Kind
	Unit string
	Base string
}

// objectMeta holds everything the cache knows about one object type:
// the (possibly expanded) descriptions and, for array counters, the raw
// counter's ordered sub-value labels.
type objectMeta struct {
	descs  map[string]Description
	labels map[string][]string
}

// MetadataCache loads counter descriptions per object type, preferring a
// persistent disk cache over the filer API. Descriptions are fetched at
// most once per object type per process and are immutable afterwards.
type MetadataCache struct {
	client filer.Client
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	objects map[string]*objectMeta
}

// NewMetadataCache creates a metadata cache rooted at dir.
func NewMetadataCache(client filer.Client, dir string, logger *slog.Logger) (*MetadataCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	return &MetadataCache{
		client:  client,
		dir:     dir,
		logger:  logger,
		objects: make(map[string]*objectMeta),
	}, nil
}

// Descriptions returns the counter descriptions for object, loading from
// the disk cache or the filer API on first use. Processor descriptions are
// returned already expanded per logical CPU.
func (c *MetadataCache) Descriptions(ctx context.Context, object string) (map[string]Description, error) {
	meta, err := c.object(ctx, object)
	if err != nil {
		return nil, err
	}
	return meta.descs, nil
}

// ArrayLabels returns the ordered sub-value labels per raw array counter
// of object, needed to partition array values into expanded counters.
func (c *MetadataCache) ArrayLabels(ctx context.Context, object string) (map[string][]string, error) {
	meta, err := c.object(ctx, object)
	if err != nil {
		return nil, err
	}
	return meta.labels, nil
}

func (c *MetadataCache) object(ctx context.Context, object string) (*objectMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if meta, ok := c.objects[object]; ok {
		return meta, nil
	}

	if meta := c.loadFile(object); meta != nil {
		c.logger.Debug("counter metadata from cache", "object", object, "counters", len(meta.descs))
		c.objects[object] = meta
		return meta, nil
	}

	meta, err := c.fetch(ctx, object)
	if err != nil {
		return nil, err
	}
	if err := c.saveFile(object, meta); err != nil {
		c.logger.Warn("persist counter metadata failed", "object", object, "error", err)
	}
	c.objects[object] = meta
	return meta, nil
}

func (c *MetadataCache) fetch(ctx context.Context, object string) (*objectMeta, error) {
	metas, err := c.client.ListCounterMetadata(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("fetch counter metadata for %s: %w", object, err)
	}
	if len(metas) == 0 {
		// An empty result must not be cached as if valid.
		return nil, fmt.Errorf("filer reported no counters for object %s", object)
	}

	meta := &objectMeta{labels: arrayLabels(metas)}
	if object == "processor" {
		processors, err := c.client.ListInstances(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("list processors: %w", err)
		}
		meta.descs = ExpandProcessor(metas, processors)
	} else {
		meta.descs = descriptionsFromMeta(metas)
	}

	c.logger.Info("counter metadata fetched", "object", object, "counters", len(meta.descs))
	return meta, nil
}

func descriptionsFromMeta(metas []filer.CounterMeta) map[string]Description {
	descs := make(map[string]Description, len(metas))
	for _, m := range metas {
		descs[m.Name] = Description{
			Name: m.Name,
			Kind: ParseKind(m.Properties),
			Unit: m.Unit,
			Base: m.BaseCounter,
		}
	}
	return descs
}

func arrayLabels(metas []filer.CounterMeta) map[string][]string {
	labels := make(map[string][]string)
	for _, m := range metas {
		if m.IsArray() && len(m.Labels) > 0 {
			labels[m.Name] = m.Labels
		}
	}
	return labels
}

// labelsKeySuffix marks persisted array-label entries; the cache file stays
// a flat string-to-string mapping.
const labelsKeySuffix = ".labels"

func metaFilename(host, object string) string {
	return "meta_" + sanitize(host) + "_" + sanitize(object) + ".json"
}

func (c *MetadataCache) loadFile(object string) *objectMeta {
	data, err := os.ReadFile(filepath.Join(c.dir, metaFilename(c.client.Host(), object)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("read metadata cache failed", "object", object, "error", err)
		}
		return nil
	}

	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		c.logger.Warn("corrupt metadata cache, refetching", "object", object, "error", err)
		return nil
	}
	if len(flat) == 0 {
		return nil
	}

	meta := &objectMeta{
		descs:  make(map[string]Description),
		labels: make(map[string][]string),
	}
	for key, val := range flat {
		if name, ok := strings.CutSuffix(key, labelsKeySuffix); ok {
			meta.labels[name] = strings.Split(val, ",")
			continue
		}
		fields := strings.SplitN(val, ",", 3)
		if len(fields) != 3 {
			c.logger.Warn("corrupt metadata cache entry, refetching", "object", object, "counter", key)
			return nil
		}
		meta.descs[key] = Description{
			Name: key,
			Kind: ParseKind(fields[0]),
			Unit: fields[1],
			Base: fields[2],
		}
	}
	if len(meta.descs) == 0 {
		return nil
	}
	return meta
}

func (c *MetadataCache) saveFile(object string, meta *objectMeta) error {
	flat := make(map[string]string, len(meta.descs)+len(meta.labels))
	for name, d := range meta.descs {
		flat[name] = d.Kind.String() + "," + d.Unit + "," + d.Base
	}
	for name, labels := range meta.labels {
		flat[name+labelsKeySuffix] = strings.Join(labels, ",")
	}

	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(c.dir, metaFilename(c.client.Host(), object), data)
}
