//go:build !unix

package mmap

import (
	"fmt"
	"os"
)

type MmapFile struct {
	Data     []byte
	File     *os.File
	FileSize int
}

// Open reads the whole file in memory on platforms without mmap support.
func Open(filePath string) (*MmapFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filePath, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %q is empty", filePath)
	}
	return &MmapFile{Data: data, FileSize: len(data)}, nil
}

func (mf *MmapFile) Close() error {
	mf.Data = nil
	return nil
}
