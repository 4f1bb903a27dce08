package compression

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/helena-bio/helix-frontend-sub000/logx"
	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/utils"
)

type CompressionService struct {
	Config *models.Config
	Logger zerolog.Logger
}

func NewCompressionService(cfg *models.Config) *CompressionService {
	return &CompressionService{
		Config: cfg,
		Logger: logx.NewLogger("compression", cfg.Debug),
	}
}

// Result describes the file handed onward to the uploader. When
// compression is skipped or fails, Path is the original file and
// Ratio is 1.
type Result struct {
	Path       string
	Ratio      float64
	Compressed bool
}

// Compress gzips a VCF into the system temp directory and reports
// consumption progress through onProgress as a 0..1 fraction.
//
// Compression is strictly best-effort: any failure along the way is
// logged and the original file is handed onward untouched, so a
// broken gzip pass can never block a review from starting.
func (c *CompressionService) Compress(filePath string, onProgress func(fraction float64)) Result {
	passthrough := Result{Path: filePath, Ratio: 1.0, Compressed: false}

	if onProgress == nil {
		onProgress = func(float64) {}
	}

	if AlreadyCompressed(filePath) {
		c.Logger.Debug().Str("file", filePath).Msg("already compressed, skipping")
		onProgress(1)
		return passthrough
	}

	source, sourceErr := os.Open(filePath)
	if sourceErr != nil {
		c.Logger.Warn().Err(sourceErr).Str("file", filePath).Msg("compression skipped, cannot open source")
		onProgress(1)
		return passthrough
	}
	defer source.Close()

	sourceInfo, statErr := source.Stat()
	if statErr != nil {
		c.Logger.Warn().Err(statErr).Str("file", filePath).Msg("compression skipped, cannot stat source")
		onProgress(1)
		return passthrough
	}
	originalSize := sourceInfo.Size()

	destinationPath := filepath.Join(os.TempDir(), filepath.Base(filePath)+".gz")
	destination, destErr := os.Create(destinationPath)
	if destErr != nil {
		c.Logger.Warn().Err(destErr).Str("file", destinationPath).Msg("compression skipped, cannot create destination")
		onProgress(1)
		return passthrough
	}
	defer destination.Close()

	gzipWriter, gzErr := gzip.NewWriterLevel(destination, c.Config.Pipeline.CompressionLevel)
	if gzErr != nil {
		// invalid level configured; fall back rather than refuse the file
		c.Logger.Warn().Err(gzErr).Msg("compression skipped, invalid gzip level")
		os.Remove(destinationPath)
		onProgress(1)
		return passthrough
	}

	buffer := make([]byte, c.Config.Pipeline.UploadChunkBytes)
	var consumed int64
	for {
		n, readErr := source.Read(buffer)
		if n > 0 {
			if _, writeErr := gzipWriter.Write(buffer[:n]); writeErr != nil {
				c.Logger.Warn().Err(writeErr).Str("file", filePath).Msg("compression failed mid-stream, using original")
				gzipWriter.Close()
				os.Remove(destinationPath)
				onProgress(1)
				return passthrough
			}

			consumed += int64(n)
			if originalSize > 0 {
				onProgress(utils.Clamp01(float64(consumed) / float64(originalSize)))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			c.Logger.Warn().Err(readErr).Str("file", filePath).Msg("compression failed mid-stream, using original")
			gzipWriter.Close()
			os.Remove(destinationPath)
			onProgress(1)
			return passthrough
		}
	}

	if closeErr := gzipWriter.Close(); closeErr != nil {
		c.Logger.Warn().Err(closeErr).Str("file", filePath).Msg("compression failed on close, using original")
		os.Remove(destinationPath)
		onProgress(1)
		return passthrough
	}
	destination.Close()

	destinationInfo, destStatErr := os.Stat(destinationPath)
	if destStatErr != nil || originalSize == 0 {
		os.Remove(destinationPath)
		onProgress(1)
		return passthrough
	}

	onProgress(1)

	ratio := float64(destinationInfo.Size()) / float64(originalSize)
	c.Logger.Info().
		Str("file", filepath.Base(filePath)).
		Int64("originalBytes", originalSize).
		Int64("compressedBytes", destinationInfo.Size()).
		Float64("ratio", ratio).
		Msg("compression finished")

	return Result{Path: destinationPath, Ratio: ratio, Compressed: true}
}

// AlreadyCompressed reports whether a file is already in a
// block-gzip or gzip container and should be uploaded as-is.
func AlreadyCompressed(filePath string) bool {
	lowered := strings.ToLower(filePath)
	return strings.HasSuffix(lowered, ".gz") || strings.HasSuffix(lowered, ".bgz")
}
