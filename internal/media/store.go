package media

import (
	"fmt"

	"echofeed/internal/config"
)

// NewStore builds the configured store implementation.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.MediaStore {
	case "cloudinary":
		return NewCloudinaryStore(
			cfg.CloudinaryCloudName,
			cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret,
		), nil
	case "local", "":
		return NewLocalStore(cfg.MediaUploadDir, cfg.MediaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown media store %q", cfg.MediaStore)
	}
}
