package ports

import (
	"context"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// DescriptorRepository manages descriptor file persistence.
type DescriptorRepository interface {
	// Load reads a descriptor file. Returns (nil, nil) if it doesn't exist.
	Load(ctx context.Context, path string) (*entities.DescriptorFile, error)
	Save(ctx context.Context, file *entities.DescriptorFile, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
