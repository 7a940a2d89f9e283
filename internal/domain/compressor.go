package domain

// Compressor turns sourcePath into a compressed destPath. Implementations must
// not leave destPath behind when they fail.
type Compressor interface {
	Compress(sourcePath, destPath string) error
	Extension() string
}
