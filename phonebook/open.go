package phonebook

import (
	"fmt"
	"strings"

	"github.com/yllada/vpn-connector/common"
)

// Options selects a phonebook backend.
type Options struct {
	// Backend is one of common.PhoneBookPBK, PhoneBookSQLite, PhoneBookMemory.
	Backend string
	// Path is the backing file; empty picks the backend default.
	Path string
}

// Backend bundles the two halves of an OS phonebook binding.
type Backend struct {
	Opener  Opener
	Devices DeviceLister
	// Path is the resolved backing file, empty for memory.
	Path string
}

// New resolves the backend named in opts.
func New(opts Options) (*Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case common.PhoneBookPBK, "":
		path := opts.Path
		if path == "" {
			path = AllUsersPhoneBookPath()
		}
		return &Backend{
			Opener:  PBKOpener{Path: path},
			Devices: SystemDevices(),
			Path:    path,
		}, nil
	case common.PhoneBookSQLite:
		path := opts.Path
		if path == "" {
			path = DefaultSQLitePath()
		}
		opener := SQLiteOpener{Path: path}
		return &Backend{Opener: opener, Devices: opener, Path: path}, nil
	case common.PhoneBookMemory:
		book := NewMemoryBook(DefaultDevices...)
		return &Backend{Opener: book, Devices: book}, nil
	default:
		return nil, fmt.Errorf("unknown phonebook backend %q", opts.Backend)
	}
}
