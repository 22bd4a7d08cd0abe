package storage

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ardnew/softnand/pkg"
)

// errReadOnly is returned by writes to read-only storage. It matches both
// pkg.ErrReadOnly and os.ErrPermission.
var errReadOnly = fmt.Errorf("%w: %w", pkg.ErrReadOnly, os.ErrPermission)

// Storage is a block-addressed storage medium.
type Storage interface {
	// BlockSize returns the size of a storage block in bytes.
	BlockSize() uint32

	// BlockCount returns the total number of blocks.
	BlockCount() uint64

	// Read reads blocks starting at lba into buf.
	// Returns number of blocks read or error.
	Read(lba uint64, blocks uint32, buf []byte) (uint32, error)

	// Write writes blocks from buf starting at lba.
	// Returns number of blocks written or error.
	Write(lba uint64, blocks uint32, buf []byte) (uint32, error)

	// Sync flushes any cached writes to storage.
	Sync() error

	// IsReadOnly returns true if storage is read-only.
	IsReadOnly() bool
}

// checkRange validates a transfer against a medium of count blocks.
func checkRange(lba uint64, blocks uint32, blockSize uint32, count uint64, buf []byte) error {
	if lba > count || uint64(blocks) > count-lba {
		return io.EOF
	}
	if uint64(len(buf)) < uint64(blocks)*uint64(blockSize) {
		return io.ErrShortBuffer
	}
	return nil
}

// MemoryStorage implements Storage using an in-memory buffer initialized to
// the erased state of NAND (all 0xFF).
type MemoryStorage struct {
	data      []byte
	blockSize uint32
	readOnly  bool
	mutex     sync.RWMutex
}

// NewMemoryStorage creates an in-memory storage with the given size and block size.
func NewMemoryStorage(size uint64, blockSize uint32) *MemoryStorage {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xff
	}
	return &MemoryStorage{
		data:      data,
		blockSize: blockSize,
	}
}

// BlockSize returns the block size.
func (m *MemoryStorage) BlockSize() uint32 {
	return m.blockSize
}

// BlockCount returns the number of blocks.
func (m *MemoryStorage) BlockCount() uint64 {
	return uint64(len(m.data)) / uint64(m.blockSize)
}

// Read reads blocks from memory.
func (m *MemoryStorage) Read(lba uint64, blocks uint32, buf []byte) (uint32, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err := checkRange(lba, blocks, m.blockSize, m.BlockCount(), buf); err != nil {
		return 0, err
	}
	offset := lba * uint64(m.blockSize)
	length := uint64(blocks) * uint64(m.blockSize)
	copy(buf, m.data[offset:offset+length])
	return blocks, nil
}

// Write writes blocks to memory.
func (m *MemoryStorage) Write(lba uint64, blocks uint32, buf []byte) (uint32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.readOnly {
		return 0, errReadOnly
	}
	if err := checkRange(lba, blocks, m.blockSize, m.BlockCount(), buf); err != nil {
		return 0, err
	}
	offset := lba * uint64(m.blockSize)
	length := uint64(blocks) * uint64(m.blockSize)
	copy(m.data[offset:offset+length], buf)
	return blocks, nil
}

// Sync is a no-op for memory storage.
func (m *MemoryStorage) Sync() error {
	return nil
}

// IsReadOnly returns whether the storage is read-only.
func (m *MemoryStorage) IsReadOnly() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.readOnly
}

// SetReadOnly sets the read-only flag.
func (m *MemoryStorage) SetReadOnly(readOnly bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.readOnly = readOnly
}
