package blob

import (
	"os"

	"github.com/spf13/afero"
)

// Blob is an immutable byte payload, typically PEM encoded key material,
// that can be inspected in memory or briefly materialized on disk for
// APIs that only accept file paths.
type Blob struct {
	data []byte
}

func New(data []byte) Blob {
	return Blob{data: data}
}

// Returns a copy of the blob contents
func (b Blob) Bytes() []byte {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return data
}

func (b Blob) String() string {
	return string(b.data)
}

// TempFile writes the blob to a temporary file with a .pem extension,
// invokes fn with its path, and removes the file before returning. The
// file is removed even when the write or the callback fails.
func (b Blob) TempFile(fs afero.Fs, fn func(path string) error) error {
	f, err := afero.TempFile(fs, "", "blob-*.pem")
	if err != nil {
		return err
	}
	path := f.Name()
	defer fs.Remove(path)
	if _, err := f.Write(b.data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return fn(path)
}

// WriteToPath writes the blob to the provided path, truncating any
// existing file, or appending to it when appendData is true.
func (b Blob) WriteToPath(fs afero.Fs, path string, appendData bool) error {
	flags := os.O_WRONLY | os.O_CREATE
	if appendData {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := fs.OpenFile(path, flags, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b.data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
