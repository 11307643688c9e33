package provision

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/temirov/digiscripts/internal/filesystem"
)

const (
	ipListCommentPrefixConstant       = "#"
	yamlExtensionConstant             = ".yaml"
	ymlExtensionConstant              = ".yml"
	tomlExtensionConstant             = ".toml"
	fileNotFoundTemplateConstant      = "File not found, %s"
	readListErrorTemplateConstant     = "read device list %s: %w"
	decodeInventoryTemplateConstant   = "decode inventory %s: %w"
	unsupportedFormatTemplate         = "%w: %s"
	missingAddressTemplateConstant    = "inventory %s: device %d has no address"
	unsupportedFormatMessageConstant  = "unsupported inventory format, use .yaml, .yml or .toml"
	deviceListNotFoundMessageConstant = "device list not found"
)

var (
	// ErrDeviceListNotFound indicates the IP list or inventory file does not exist.
	ErrDeviceListNotFound = errors.New(deviceListNotFoundMessageConstant)
	// ErrUnsupportedInventoryFormat indicates an inventory file with an unknown extension.
	ErrUnsupportedInventoryFormat = errors.New(unsupportedFormatMessageConstant)
)

// Device is one router to provision.
type Device struct {
	Address  string
	Port     int
	Username string
	Password string
}

// Credentials are per-device SSH settings overriding the defaults.
type Credentials struct {
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	Port     int    `yaml:"port" toml:"port"`
}

// InventoryDevice is one inventory entry.
type InventoryDevice struct {
	Address     string `yaml:"address" toml:"address"`
	Credentials `yaml:",inline"`
}

// Inventory is the YAML or TOML device inventory.
type Inventory struct {
	Defaults Credentials       `yaml:"defaults" toml:"defaults"`
	Devices  []InventoryDevice `yaml:"devices" toml:"devices"`
}

// ParseIPList returns the addresses in an IP list, skipping comment and blank lines.
func ParseIPList(contents []byte) []string {
	addresses := make([]string, 0)
	for _, line := range strings.Split(strings.ReplaceAll(string(contents), "\r\n", "\n"), "\n") {
		if strings.HasPrefix(line, ipListCommentPrefixConstant) {
			continue
		}
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}
		addresses = append(addresses, trimmedLine)
	}
	return addresses
}

// LoadIPList reads an IP list file into devices without credential overrides.
func LoadIPList(fileSystem filesystem.FileSystem, path string) ([]Device, error) {
	contents, readError := readDeviceList(fileSystem, path)
	if readError != nil {
		return nil, readError
	}

	addresses := ParseIPList(contents)
	devices := make([]Device, 0, len(addresses))
	for _, address := range addresses {
		devices = append(devices, Device{Address: address})
	}
	return devices, nil
}

// LoadInventory reads a YAML or TOML inventory, applying the inventory defaults to every device.
func LoadInventory(fileSystem filesystem.FileSystem, path string) ([]Device, error) {
	contents, readError := readDeviceList(fileSystem, path)
	if readError != nil {
		return nil, readError
	}

	var inventory Inventory
	switch strings.ToLower(filepath.Ext(path)) {
	case yamlExtensionConstant, ymlExtensionConstant:
		decoder := yaml.NewDecoder(bytes.NewReader(contents))
		decoder.KnownFields(true)
		if decodeError := decoder.Decode(&inventory); decodeError != nil {
			return nil, fmt.Errorf(decodeInventoryTemplateConstant, path, decodeError)
		}
	case tomlExtensionConstant:
		if _, decodeError := toml.Decode(string(contents), &inventory); decodeError != nil {
			return nil, fmt.Errorf(decodeInventoryTemplateConstant, path, decodeError)
		}
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplate, ErrUnsupportedInventoryFormat, path)
	}

	devices := make([]Device, 0, len(inventory.Devices))
	for deviceIndex, entry := range inventory.Devices {
		address := strings.TrimSpace(entry.Address)
		if len(address) == 0 {
			return nil, fmt.Errorf(missingAddressTemplateConstant, path, deviceIndex+1)
		}
		devices = append(devices, Device{
			Address:  address,
			Port:     firstPositive(entry.Port, inventory.Defaults.Port),
			Username: firstNonEmpty(entry.Username, inventory.Defaults.Username),
			Password: firstNonEmpty(entry.Password, inventory.Defaults.Password),
		})
	}
	return devices, nil
}

func readDeviceList(fileSystem filesystem.FileSystem, path string) ([]byte, error) {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	exists, existsError := filesystem.Exists(fileSystem, path)
	if existsError != nil {
		return nil, fmt.Errorf(readListErrorTemplateConstant, path, existsError)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDeviceListNotFound, fmt.Sprintf(fileNotFoundTemplateConstant, path))
	}
	contents, readError := fileSystem.ReadFile(path)
	if readError != nil {
		return nil, fmt.Errorf(readListErrorTemplateConstant, path, readError)
	}
	return contents, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if len(strings.TrimSpace(value)) > 0 {
			return value
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}
