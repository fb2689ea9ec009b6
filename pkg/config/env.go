package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kballard/go-shellquote"
)

const (
	EnvOSUpdateCmd         = "DSC_SSH_OS_UPDATE_CMD"
	EnvOSUpdateRollbackCmd = "DSC_SSH_OS_UPDATE_ROLLBACK_CMD"
	EnvRebootCmd           = "DSC_SSH_REBOOT_CMD"
	EnvUpdateCmd           = "DSC_SSH_UPDATE_CMD"
	EnvCleanupCmd          = "DSC_SSH_CLEANUP_CMD"
	EnvOSVersionCmd        = "DSC_SSH_OS_VERSION_CMD"
	EnvOSVersionFallback   = "DSC_SSH_OS_VERSION_FALLBACK_CMD"
	EnvStrictHostKey       = "DSC_SSH_STRICT_HOST_KEY_CHECKING"
	EnvSSHOptions          = "DSC_SSH_OPTIONS"
	EnvAuditDir            = "DSC_AUDIT_DIR"
	EnvTestMarker          = "DSC_TEST_MARKER"

	DefaultOSUpdateCmd       = "sudo -n DEBIAN_FRONTEND=noninteractive apt update && sudo -n DEBIAN_FRONTEND=noninteractive apt upgrade -y"
	DefaultRebootCmd         = "sudo -n reboot"
	DefaultUpdateCmd         = "cd /var/discourse && sudo -n ./launcher rebuild app"
	DefaultCleanupCmd        = "cd /var/discourse && sudo -n ./launcher cleanup"
	DefaultOSVersionCmd      = "lsb_release -d | cut -f2"
	DefaultOSVersionFallback = `grep PRETTY_NAME /etc/os-release | cut -d'=' -f2 | tr -d '"'`
	DefaultStrictHostKey     = "accept-new"
	DefaultAuditDir          = "."
)

// Lookup resolves an environment setting. It has the shape of os.LookupEnv.
type Lookup func(key string) (string, bool)

// LoadEnv reads an optional dotenv file and returns a Lookup where the process
// environment takes precedence over the file.
func LoadEnv(path string) (Lookup, error) {
	values := map[string]string{}
	if path != "" {
		read, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", path, err)
		}
		if read != nil {
			values = read
		}
	}
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

// MapLookup is a Lookup backed by a fixed map.
func MapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

// Commands are the remote shell commands run during an upgrade.
type Commands struct {
	OSUpdate          string
	OSUpdateRollback  string // empty skips rollback
	Reboot            string // empty skips the reboot step
	AppUpgrade        string
	Cleanup           string
	OSVersion         string
	OSVersionFallback string
}

func DefaultCommands() Commands {
	return Commands{
		OSUpdate:          DefaultOSUpdateCmd,
		Reboot:            DefaultRebootCmd,
		AppUpgrade:        DefaultUpdateCmd,
		Cleanup:           DefaultCleanupCmd,
		OSVersion:         DefaultOSVersionCmd,
		OSVersionFallback: DefaultOSVersionFallback,
	}
}

// CommandsFrom applies environment overrides on top of DefaultCommands.
// Blank values fall back to the default for required commands and disable
// the optional ones (rollback, reboot).
func CommandsFrom(lookup Lookup) Commands {
	commands := DefaultCommands()
	required := map[string]*string{
		EnvOSUpdateCmd:       &commands.OSUpdate,
		EnvUpdateCmd:         &commands.AppUpgrade,
		EnvCleanupCmd:        &commands.Cleanup,
		EnvOSVersionCmd:      &commands.OSVersion,
		EnvOSVersionFallback: &commands.OSVersionFallback,
	}
	for key, field := range required {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*field = strings.TrimSpace(value)
		}
	}

	if value, ok := lookup(EnvRebootCmd); ok {
		commands.Reboot = strings.TrimSpace(value)
	}
	if value, ok := lookup(EnvOSUpdateRollbackCmd); ok {
		commands.OSUpdateRollback = strings.TrimSpace(value)
	}
	return commands
}

// SSHOptions controls how the ssh client is invoked.
type SSHOptions struct {
	// StrictHostKeyChecking is passed as -o StrictHostKeyChecking=<value> unless empty.
	StrictHostKeyChecking string
	// Extra holds additional raw ssh arguments.
	Extra []string
}

func SSHOptionsFrom(lookup Lookup) (SSHOptions, error) {
	options := SSHOptions{StrictHostKeyChecking: DefaultStrictHostKey}
	if value, ok := lookup(EnvStrictHostKey); ok {
		options.StrictHostKeyChecking = strings.TrimSpace(value)
	}
	if raw, ok := lookup(EnvSSHOptions); ok && strings.TrimSpace(raw) != "" {
		extra, err := shellquote.Split(raw)
		if err != nil {
			return SSHOptions{}, fmt.Errorf("parsing %s: %w", EnvSSHOptions, err)
		}
		options.Extra = extra
	}
	return options, nil
}

func AuditDir(lookup Lookup) string {
	if value, ok := lookup(EnvAuditDir); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return DefaultAuditDir
}

// RunID returns the external run correlation marker, if any.
func RunID(lookup Lookup) string {
	value, _ := lookup(EnvTestMarker)
	return strings.TrimSpace(value)
}
