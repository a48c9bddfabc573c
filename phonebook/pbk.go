package phonebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/yllada/vpn-connector/common"
)

func init() {
	// rasphone.pbk lines are written as Key=Value.
	ini.PrettyFormat = false
	ini.PrettyEqual = false
}

// Keys of a rasphone.pbk entry section.
const (
	pbkKeyEncoding    = "Encoding"
	pbkKeyVersion     = "PBVersion"
	pbkKeyType        = "Type"
	pbkKeyStrategy    = "VpnStrategy"
	pbkKeyMedia       = "MEDIA"
	pbkKeyPort        = "Port"
	pbkKeyDevice      = "Device"
	pbkKeyDeviceType  = "DEVICE"
	pbkKeyPhoneNumber = "PhoneNumber"

	pbkEntryTypeVPN = "2"
	pbkMediaRasTAPI = "rastapi"
)

var pbkLoadOptions = ini.LoadOptions{
	AllowShadows:            true,
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
}

// AllUsersPhoneBookPath returns the location of the all-users phonebook.
// Off Windows it falls back to a file in the application config dir.
func AllUsersPhoneBookPath() string {
	if runtime.GOOS == "windows" {
		programData := os.Getenv("ProgramData")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return filepath.Join(programData, "Microsoft", "Network", "Connections", "Pbk", "rasphone.pbk")
	}
	dir, err := common.GetConfigDir()
	if err != nil {
		return "rasphone.pbk"
	}
	return filepath.Join(dir, "rasphone.pbk")
}

// PBKOpener opens a rasphone.pbk file.
type PBKOpener struct {
	Path string
}

// Open loads the file, or starts an empty book if it doesn't exist yet.
func (o PBKOpener) Open(ctx context.Context) (PhoneBook, error) {
	path := o.Path
	if path == "" {
		path = AllUsersPhoneBookPath()
	}

	var (
		file *ini.File
		err  error
	)
	if common.FileExists(path) {
		file, err = ini.LoadSources(pbkLoadOptions, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read phonebook %s: %w", path, err)
		}
	} else {
		file = ini.Empty(pbkLoadOptions)
	}

	common.LogDebug("Opened phonebook %s", path)
	return &PBKBook{path: path, file: file}, nil
}

// PBKBook is an opened rasphone.pbk file. Every mutation is written back
// to disk before it returns.
type PBKBook struct {
	mu   sync.Mutex
	path string
	file *ini.File
}

// Path returns the file backing the book.
func (b *PBKBook) Path() string {
	return b.path
}

func (b *PBKBook) section(name string) (*ini.Section, bool) {
	if name == "" || name == ini.DefaultSection {
		return nil, false
	}
	sec, err := b.file.GetSection(name)
	if err != nil {
		return nil, false
	}
	return sec, true
}

func (b *PBKBook) Contains(ctx context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.section(name)
	return ok, nil
}

func (b *PBKBook) Entry(ctx context.Context, name string) (Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sec, ok := b.section(name)
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entryFromSection(sec), nil
}

func (b *PBKBook) Entries(ctx context.Context) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Entry
	for _, sec := range b.file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		out = append(out, entryFromSection(sec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *PBKBook) Add(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.section(entry.Name); ok {
		return ErrEntryExists
	}

	sec, err := b.file.NewSection(entry.Name)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", entry.Name, err)
	}
	sec.Key(pbkKeyEncoding).SetValue("1")
	sec.Key(pbkKeyVersion).SetValue("8")
	sec.Key(pbkKeyType).SetValue(pbkEntryTypeVPN)
	writeEntry(sec, entry)

	if err := b.save(); err != nil {
		b.file.DeleteSection(entry.Name)
		return err
	}
	return nil
}

func (b *PBKBook) Update(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sec, ok := b.section(entry.Name)
	if !ok {
		return ErrEntryNotFound
	}
	writeEntry(sec, entry)
	return b.save()
}

func (b *PBKBook) Remove(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.section(name); !ok {
		return ErrEntryNotFound
	}
	b.file.DeleteSection(name)
	return b.save()
}

// Close releases the in-memory copy; the file is already up to date.
func (b *PBKBook) Close() error {
	return nil
}

// save writes the book through a temporary file so readers never observe
// a half-written phonebook.
func (b *PBKBook) save() error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create phonebook directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rasphone-*.pbk")
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", common.ErrPermissionDenied, dir)
		}
		return fmt.Errorf("failed to write phonebook: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := b.file.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write phonebook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write phonebook: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace phonebook: %w", err)
	}
	return nil
}

func writeEntry(sec *ini.Section, entry Entry) {
	sec.Key(pbkKeyStrategy).SetValue(fmt.Sprintf("%d", int(entry.Strategy)))
	sec.Key(pbkKeyMedia).SetValue(pbkMediaRasTAPI)
	if !sec.HasKey(pbkKeyPort) {
		sec.Key(pbkKeyPort).SetValue("VPN2-0")
	}
	sec.Key(pbkKeyDevice).SetValue(entry.Device.Name)

	deviceType := entry.Device.Type
	if deviceType == "" {
		deviceType = DeviceTypeVPN
	}
	sec.Key(pbkKeyDeviceType).SetValue(deviceType)
	sec.Key(pbkKeyPhoneNumber).SetValue(entry.PhoneNumber)
}

func entryFromSection(sec *ini.Section) Entry {
	return Entry{
		Name:        sec.Name(),
		PhoneNumber: sec.Key(pbkKeyPhoneNumber).String(),
		Strategy:    Strategy(sec.Key(pbkKeyStrategy).MustInt(int(StrategyDefault))),
		Device: Device{
			Name: sec.Key(pbkKeyDevice).String(),
			Type: sec.Key(pbkKeyDeviceType).String(),
		},
	}
}
