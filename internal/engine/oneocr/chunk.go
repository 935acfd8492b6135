package oneocr

import "fmt"

// Default chunking parameters in pixels.
const (
	DefaultChunkHeight = 1500
	DefaultOverlap     = 150
)

// Config controls how tall images are split before recognition.
type Config struct {
	ChunkHeight int `mapstructure:"chunk_height" yaml:"chunk_height" json:"chunk_height"`
	Overlap     int `mapstructure:"overlap" yaml:"overlap" json:"overlap"`
}

// DefaultConfig returns the default chunking parameters.
func DefaultConfig() Config {
	return Config{ChunkHeight: DefaultChunkHeight, Overlap: DefaultOverlap}
}

// Validate checks that chunk offsets always advance.
func (c Config) Validate() error {
	if c.ChunkHeight <= 0 {
		return fmt.Errorf("chunk height must be positive, got %d", c.ChunkHeight)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.ChunkHeight {
		return fmt.Errorf("overlap %d must be smaller than chunk height %d", c.Overlap, c.ChunkHeight)
	}
	return nil
}

// Chunk is the horizontal band [Top, Bottom) of the full image.
type Chunk struct {
	Index  int
	Top    int
	Bottom int
}

// Height returns the band height in pixels.
func (c Chunk) Height() int { return c.Bottom - c.Top }

// PlanChunks splits an image of the given height into overlapping bands.
// Offsets advance by ChunkHeight-Overlap while they are below height; the
// last band is truncated at the image bottom. An image no taller than one
// chunk yields a single band.
func PlanChunks(height int, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if height <= 0 {
		return nil, fmt.Errorf("image height must be positive, got %d", height)
	}

	step := cfg.ChunkHeight - cfg.Overlap
	chunks := make([]Chunk, 0, height/step+1)
	for top := 0; top < height; top += step {
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Top:    top,
			Bottom: min(top+cfg.ChunkHeight, height),
		})
	}
	return chunks, nil
}
