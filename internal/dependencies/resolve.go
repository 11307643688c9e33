// Package dependencies resolves the collaborators shared by the digiscripts commands, preferring injected implementations over defaults.
package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/execshell"
	"github.com/temirov/digiscripts/internal/filesystem"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/ui"
)

// ResolveLogger returns the provided logger or a no-op logger.
func ResolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// ResolveCommandEventObserver returns a console event logger when human-readable logging is enabled.
func ResolveCommandEventObserver(logger *zap.Logger, humanReadableLogging bool) execshell.CommandEventObserver {
	if !humanReadableLogging {
		return nil
	}
	return ui.NewConsoleCommandEventLogger(logger)
}

// ResolveConsole returns the provided console or builds one from the router configuration.
func ResolveConsole(existing routercli.Console, configuration routercli.Configuration, logger *zap.Logger, humanReadableLogging bool) (routercli.Console, error) {
	if existing != nil {
		return existing, nil
	}
	return routercli.NewConsole(configuration, logger, ResolveCommandEventObserver(logger, humanReadableLogging))
}

// ResolveRemoteManagerClient builds a Remote Manager client from configuration.
func ResolveRemoteManagerClient(configuration remotemanager.Config, logger *zap.Logger) (*remotemanager.Client, error) {
	return remotemanager.NewClient(configuration, logger)
}

// ResolveDialer returns the provided dialer or the SSH-backed default.
func ResolveDialer(existing routercli.Dialer) routercli.Dialer {
	if existing != nil {
		return existing
	}
	return routercli.SSHDialer{}
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing filesystem.FileSystem) filesystem.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}
