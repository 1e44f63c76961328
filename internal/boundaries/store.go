package boundaries

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
)

// Layer is a decoded overlay file.
type Layer struct {
	Name   string
	Shapes []Shape
}

// Clip keeps the shapes whose bounding boxes overlap b.
func (l Layer) Clip(b *geom.Bounds) Layer {
	out := Layer{Name: l.Name, Shapes: make([]Shape, 0, len(l.Shapes))}
	for _, s := range l.Shapes {
		if s.Geom == nil {
			continue
		}
		if s.Geom.Bounds().Overlaps(b) {
			out.Shapes = append(out.Shapes, s)
		}
	}
	return out
}

// Vertices counts the points of every ring and line in the layer.
func (l Layer) Vertices() int {
	n := 0
	for _, s := range l.Shapes {
		for _, p := range s.Paths() {
			n += len(p)
		}
	}
	return n
}

// RegionBounds is the lon/lat box west..east, south..north.
func RegionBounds(west, east, south, north float64) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: west, Y: south},
		Max: geom.Point{X: east, Y: north},
	}
}

// Store loads overlay layers by name.
type Store interface {
	Layer(ctx context.Context, name string) (Layer, error)
}

// FileStore reads <dir>/<name>.geojson.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Layer(ctx context.Context, name string) (Layer, error) {
	if err := ctx.Err(); err != nil {
		return Layer{}, err
	}
	path := filepath.Join(s.dir, name+".geojson")
	f, err := os.Open(path)
	if err != nil {
		return Layer{}, fmt.Errorf("open boundary layer %s: %w", name, err)
	}
	defer f.Close()

	shapes, err := DecodeFeatureCollection(f)
	if err != nil {
		return Layer{}, fmt.Errorf("boundary layer %s: %w", name, err)
	}
	return Layer{Name: name, Shapes: shapes}, nil
}
