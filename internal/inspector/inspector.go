// Package inspector implements the message set between the plugin and its
// settings UI (the property inspector): executable validation, fan listing,
// selection echo, write errors, and precondition results.
package inspector

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdittrich/fandial/internal/session"
)

// ExecStatus classifies a user-picked executable path.
type ExecStatus string

const (
	// ExecOK means the path points at the expected executable and config
	// files were found.
	ExecOK ExecStatus = "ok"
	// ExecWrongExecutable means the path exists but is not the expected
	// application.
	ExecWrongExecutable ExecStatus = "wrongExecutable"
	// ExecMissingFolder means the containing folder does not exist.
	ExecMissingFolder ExecStatus = "missingFolder"
	// ExecNoFiles means the folder holds no configuration files.
	ExecNoFiles ExecStatus = "noFiles"
)

// configSubdir is where the external application keeps its configuration
// files, relative to the executable.
const configSubdir = "Configurations"

// Message is one plugin-to-inspector payload.
type Message struct {
	Event string `json:"event"`

	Status ExecStatus `json:"status,omitempty"`
	Files  []string   `json:"files,omitempty"`

	Fans  []string `json:"fans,omitempty"`
	Error string   `json:"error,omitempty"`

	Fan  string `json:"fan,omitempty"`
	Mode string `json:"mode,omitempty"`

	TaskExists   *bool `json:"taskExists,omitempty"`
	ScriptExists *bool `json:"scriptExists,omitempty"`
}

// Outbound event names.
const (
	EventExecutableValidation = "executableValidation"
	EventFanList              = "fanList"
	EventSelection            = "selection"
	EventWriteError           = "writeError"
	EventPreconditions        = "preconditions"
)

// Inbound request names from the settings UI.
const (
	RequestValidateExecutable = "validateExecutable"
	RequestListFans           = "listFans"
)

// FanLister is the slice of the reconciler the inspector needs.
type FanLister interface {
	ListFans(ctx context.Context) ([]string, bool, error)
}

// ValidateExecutable checks a user-picked path against the expected
// executable name and lists the configuration files available next to it.
func ValidateExecutable(path, expectedName string) Message {
	msg := Message{Event: EventExecutableValidation}

	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		msg.Status = ExecMissingFolder
		return msg
	}

	if !strings.EqualFold(filepath.Base(path), expectedName) {
		msg.Status = ExecWrongExecutable
		return msg
	}

	files := listConfigFiles(dir)
	if len(files) == 0 {
		msg.Status = ExecNoFiles
		return msg
	}

	msg.Status = ExecOK
	msg.Files = files
	return msg
}

// listConfigFiles returns the JSON files of the Configurations subfolder,
// falling back to the executable's own folder for portable installs.
func listConfigFiles(dir string) []string {
	for _, candidate := range []string{filepath.Join(dir, configSubdir), dir} {
		entries, err := os.ReadDir(candidate)
		if err != nil {
			continue
		}
		var files []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
				files = append(files, filepath.Join(candidate, entry.Name()))
			}
		}
		if len(files) > 0 {
			sort.Strings(files)
			return files
		}
	}
	return nil
}

// ListFans builds the fan-list reply for the settings UI.
func ListFans(ctx context.Context, store FanLister) Message {
	msg := Message{Event: EventFanList}

	fans, found, err := store.ListFans(ctx)
	if err != nil {
		msg.Error = "failed to read config file"
		return msg
	}
	if !found {
		msg.Error = "config file not found"
		return msg
	}

	msg.Fans = fans
	return msg
}

// Selection echoes the instance's current selection back to the UI.
func Selection(settings session.Settings, mode string) Message {
	return Message{
		Event: EventSelection,
		Fan:   settings.Fan,
		Mode:  mode,
	}
}

// WriteError reports a failed config write to the UI.
func WriteError(err error) Message {
	return Message{
		Event: EventWriteError,
		Error: err.Error(),
	}
}

// Preconditions reports the bypass environment check to the UI.
func Preconditions(taskExists, scriptExists bool) Message {
	return Message{
		Event:        EventPreconditions,
		TaskExists:   &taskExists,
		ScriptExists: &scriptExists,
	}
}
