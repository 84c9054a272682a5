package config

// Values injected at build time via ldflags.
//
// Build with:
//   go build -ldflags "-X 'github.com/reelhouse/reelhouse/internal/config.Version=1.2.0' \
//                      -X 'github.com/reelhouse/reelhouse/internal/config.EmbeddedTMDBKey=xxx'"
var (
	Version         = "dev"
	EmbeddedTMDBKey string
	EmbeddedOMDBKey string
)
