package filesystem

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// Codec reads and writes descriptor files in one format.
type Codec interface {
	Decode(r io.Reader) (*entities.DescriptorFile, error)
	Encode(w io.Writer, file *entities.DescriptorFile) error
}

// CodecFor picks the codec by file extension: YAML for .yaml and .yml,
// XML for anything else.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCodec{}
	default:
		return XMLCodec{}
	}
}
