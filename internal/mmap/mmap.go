//go:build unix

package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile is a read-only mapping of a whole file.
type MmapFile struct {
	Data     []byte   // The mapped file content
	File     *os.File // The underlying opened file
	FileSize int
}

// Open maps filePath read-only. The kernel is advised that the mapping
// will be read sequentially, which is how model files are consumed.
func Open(filePath string) (*MmapFile, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get file info for %q: %w", filePath, err)
	}

	fileSize := int(fi.Size())
	if fileSize == 0 {
		f.Close()
		return nil, fmt.Errorf("file %q is empty, cannot mmap", filePath)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, fileSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap file %q: %w", filePath, err)
	}

	// Advice is only a hint, the mapping is usable whatever the outcome.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &MmapFile{
		Data:     data,
		File:     f,
		FileSize: fileSize,
	}, nil
}

// Close unmaps the memory region and closes the underlying file.
func (mf *MmapFile) Close() error {
	var err error
	if mf.Data != nil {
		err = unix.Munmap(mf.Data)
		if err != nil {
			return fmt.Errorf("failed to munmap: %w", err)
		}
		mf.Data = nil
	}

	if mf.File != nil {
		if closeErr := mf.File.Close(); closeErr != nil {
			return fmt.Errorf("failed to close file: %w", closeErr)
		}
		mf.File = nil
	}
	return nil
}
