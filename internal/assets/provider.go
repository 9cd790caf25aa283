package assets

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/twin"
)

// MaxModelSize is the maximum allowed model file size (100MB).
const MaxModelSize = 100 * 1024 * 1024

// GLB container constants (glTF 2.0 binary layout, little-endian).
const (
	glbMagic          = 0x46546C67 // "glTF"
	glbVersion        = 2
	glbChunkJSON      = 0x4E4F534A // "JSON"
	glbHeaderLen      = 12
	glbChunkHeaderLen = 8
)

// Provider loads facility model files and builds the twin's template
// index from them. Both glTF JSON documents and GLB binary containers
// are accepted; they yield identical indexes.
type Provider struct {
	dir     string
	maxSize int64
}

var _ twin.AssetProvider = (*Provider)(nil)

// New creates a provider reading models from the configured directory.
func New(cfg config.AssetsConfig) *Provider {
	return &Provider{
		dir:     cfg.ModelDir,
		maxSize: MaxModelSize,
	}
}

// Load reads a model file and builds the template index: each tag is
// matched case-insensitively as a substring of the model's mesh and
// node names, and the first matching mesh becomes the tag's template.
// The index is built once here; spawns afterwards are exact map hits.
//
// An empty model file name yields an empty index — the facility has no
// model, and its devices stay pending.
func (p *Provider) Load(ctx context.Context, modelFile string, tags []string) (twin.TemplateIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if modelFile == "" {
		return twin.TemplateIndex{}, nil
	}

	// Model names come from facility records; only the base name is
	// honoured so a record can never name a file outside the model dir.
	path := filepath.Join(p.dir, filepath.Base(modelFile))

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelFile, err)
	}
	if info.Size() > p.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrModelTooLarge, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelFile, err)
	}

	doc, err := parseDocument(data, modelFile)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelFile, err)
	}

	return buildIndex(doc, tags), nil
}

// document is the subset of a glTF 2.0 document the scanner reads.
type document struct {
	Meshes []struct {
		Name       string `json:"name"`
		Primitives []struct {
			Attributes map[string]int `json:"attributes"`
			Material   *int           `json:"material"`
		} `json:"primitives"`
	} `json:"meshes"`
	Nodes []struct {
		Name string `json:"name"`
		Mesh *int   `json:"mesh"`
	} `json:"nodes"`
	Accessors []struct {
		Count int `json:"count"`
	} `json:"accessors"`
	Materials []struct {
		PBRMetallicRoughness struct {
			BaseColorFactor []float64 `json:"baseColorFactor"`
		} `json:"pbrMetallicRoughness"`
	} `json:"materials"`
}

// parseDocument extracts the glTF JSON from raw file data. A GLB magic
// number wins over the filename; a .glb without one is rejected rather
// than guessed at.
func parseDocument(data []byte, filename string) (*document, error) {
	jsonData := data
	switch {
	case isGLB(data):
		chunk, err := glbJSONChunk(data)
		if err != nil {
			return nil, err
		}
		jsonData = chunk
	case strings.EqualFold(filepath.Ext(filename), ".glb"):
		return nil, fmt.Errorf("%w: missing GLB header", ErrInvalidModel)
	}

	var doc document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	return &doc, nil
}

func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[0:4]) == glbMagic
}

// glbJSONChunk walks the GLB chunk list and returns the first JSON
// chunk's payload.
func glbJSONChunk(data []byte) ([]byte, error) {
	if len(data) < glbHeaderLen {
		return nil, fmt.Errorf("%w: truncated GLB header", ErrInvalidModel)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != glbVersion {
		return nil, fmt.Errorf("%w: GLB version %d", ErrUnsupportedVersion, version)
	}

	offset := glbHeaderLen
	for offset+glbChunkHeaderLen <= len(data) {
		length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		start := offset + glbChunkHeaderLen
		if start+length > len(data) {
			return nil, fmt.Errorf("%w: truncated GLB chunk", ErrInvalidModel)
		}
		if chunkType == glbChunkJSON {
			return data[start : start+length], nil
		}
		// Chunks are 4-byte aligned.
		offset = start + length
		if pad := length % 4; pad != 0 {
			offset += 4 - pad
		}
	}
	return nil, fmt.Errorf("%w: no JSON chunk", ErrInvalidModel)
}

// candidate is one mesh together with every name it is reachable
// under: its own and those of the nodes that reference it.
type candidate struct {
	names    []string
	geometry twin.Geometry
	material twin.Material
}

func (c candidate) matches(needle string) bool {
	for _, name := range c.names {
		if strings.Contains(strings.ToLower(name), needle) {
			return true
		}
	}
	return false
}

// buildIndex resolves each tag to its first matching mesh, in document
// order. Tags with no match are simply absent from the index; the pool
// queues their devices as pending.
func buildIndex(doc *document, tags []string) twin.TemplateIndex {
	candidates := collectCandidates(doc)

	index := make(twin.TemplateIndex, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		needle := strings.ToLower(tag)
		for _, c := range candidates {
			if !c.matches(needle) {
				continue
			}
			index[tag] = &twin.Template{
				Tag:      tag,
				Geometry: c.geometry,
				Material: c.material,
			}
			break
		}
	}
	return index
}

// collectCandidates flattens the document into matchable templates:
// vertex counts come from POSITION accessors, the material prototype
// from the first primitive that has one.
func collectCandidates(doc *document) []candidate {
	candidates := make([]candidate, len(doc.Meshes))
	for i, mesh := range doc.Meshes {
		c := candidate{
			geometry: twin.Geometry{Mesh: mesh.Name},
			material: twin.Material{Opacity: 1},
		}
		if mesh.Name != "" {
			c.names = append(c.names, mesh.Name)
		}

		for _, prim := range mesh.Primitives {
			if idx, ok := prim.Attributes["POSITION"]; ok && idx >= 0 && idx < len(doc.Accessors) {
				c.geometry.Vertices += doc.Accessors[idx].Count
			}
		}
		for _, prim := range mesh.Primitives {
			if prim.Material == nil {
				continue
			}
			mi := *prim.Material
			if mi < 0 || mi >= len(doc.Materials) {
				continue
			}
			factor := doc.Materials[mi].PBRMetallicRoughness.BaseColorFactor
			c.material.Tint = hexColor(factor)
			if len(factor) == 4 {
				c.material.Opacity = factor[3]
			}
			break
		}

		candidates[i] = c
	}

	for _, node := range doc.Nodes {
		if node.Mesh == nil || node.Name == "" {
			continue
		}
		if idx := *node.Mesh; idx >= 0 && idx < len(candidates) {
			candidates[idx].names = append(candidates[idx].names, node.Name)
			if candidates[idx].geometry.Mesh == "" {
				candidates[idx].geometry.Mesh = node.Name
			}
		}
	}
	return candidates
}

// hexColor renders a glTF base colour factor as the #rrggbb string the
// view layer uses. glTF's default base colour is white.
func hexColor(factor []float64) string {
	r, g, b := 1.0, 1.0, 1.0
	if len(factor) >= 3 {
		r, g, b = factor[0], factor[1], factor[2]
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(r), channel(g), channel(b))
}

func channel(v float64) int {
	c := int(math.Round(v * 255))
	if c < 0 {
		return 0
	}
	if c > 255 {
		return 255
	}
	return c
}
