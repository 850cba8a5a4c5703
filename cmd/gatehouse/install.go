package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// hookEntry is one command registration in the assistant's settings file.
type hookEntry struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// hookEvents are the lifecycle points the binary registers for.
var hookEvents = []string{
	"pre_tool_use",
	"post_tool_use",
	"session_start",
	"permission_request",
}

var (
	installGlobal bool
	installBinary string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the gatehouse hook with the assistant's settings",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the gatehouse hook from the assistant's settings",
	Args:  cobra.NoArgs,
	RunE:  runUninstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installGlobal, "global", "g", false,
		"install into ~/.claude/settings.json instead of the project settings")
	installCmd.Flags().StringVar(&installBinary, "binary", "",
		"explicit path to the gatehouse binary")
	uninstallCmd.Flags().BoolVarP(&installGlobal, "global", "g", false,
		"uninstall from ~/.claude/settings.json instead of the project settings")
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	binary, err := resolveBinaryPath(installBinary)
	if err != nil {
		return err
	}
	settingsPath, err := settingsFilePath(installGlobal)
	if err != nil {
		return err
	}

	fmt.Println("Installing gatehouse hook...")
	fmt.Println()
	fmt.Printf("  Binary: %s\n", binary)
	fmt.Printf("  Settings: %s\n", settingsPath)
	fmt.Println()

	if !installGlobal {
		if _, err := os.Stat(filepath.Join(".claude", "hooks.yaml")); os.IsNotExist(err) {
			fmt.Println("⚠️  No hooks.yaml found. Creating default configuration...")
			fmt.Println()
			if err := runInit(cmd, nil); err != nil {
				return err
			}
			fmt.Println()
		}
	}

	settings, err := loadSettings(settingsPath)
	if err != nil {
		return err
	}

	hooks := settingsHooks(settings)
	if hooksContain(hooks, "gatehouse") {
		fmt.Println("✓ Gatehouse is already installed")
		fmt.Println("  To reinstall, first run 'gatehouse uninstall'")
		return nil
	}

	entry := hookEntry{Command: binary, Timeout: 10000}
	for _, event := range hookEvents {
		hooks[event] = append(entriesOf(hooks, event), entry)
	}
	if err := setSettingsHooks(settings, hooks); err != nil {
		return err
	}

	if err := saveSettings(settingsPath, settings); err != nil {
		return err
	}

	fmt.Println("✓ Gatehouse installed successfully!")
	fmt.Println()
	fmt.Println("Hook registered for events:")
	fmt.Println("  • PreToolUse")
	fmt.Println("  • PostToolUse")
	fmt.Println("  • SessionStart")
	fmt.Println("  • PermissionRequest")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	settingsPath, err := settingsFilePath(installGlobal)
	if err != nil {
		return err
	}

	fmt.Println("Uninstalling gatehouse...")
	fmt.Println()

	settings, err := loadSettings(settingsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Printf("No settings file found at: %s\n", settingsPath)
			return nil
		}
		return err
	}

	hooks := settingsHooks(settings)
	removed := false
	for _, event := range hookEvents {
		entries := entriesOf(hooks, event)
		kept := entries[:0]
		for _, e := range entries {
			if strings.Contains(e.Command, "gatehouse") {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(hooks, event)
		} else {
			hooks[event] = kept
		}
	}

	if !removed {
		fmt.Println("Gatehouse was not installed")
		return nil
	}

	if len(hooks) == 0 {
		delete(settings, "hooks")
	} else if err := setSettingsHooks(settings, hooks); err != nil {
		return err
	}
	if err := saveSettings(settingsPath, settings); err != nil {
		return err
	}
	fmt.Println("✓ Gatehouse uninstalled successfully")
	return nil
}

// resolveBinaryPath finds the binary to register: the explicit flag, the
// PATH lookup, then the current executable.
func resolveBinaryPath(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve binary path: %w", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("specified binary not found: %s", explicit)
		}
		return abs, nil
	}

	if path, err := exec.LookPath("gatehouse"); err == nil {
		return path, nil
	}
	if self, err := os.Executable(); err == nil {
		return self, nil
	}
	return "", fmt.Errorf("could not find gatehouse binary; specify one with --binary")
}

func settingsFilePath(global bool) (string, error) {
	if !global {
		return filepath.Join(".claude", "settings.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}

// loadSettings reads the settings file as a generic document so unrelated
// keys survive a round trip untouched.
func loadSettings(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	var settings map[string]json.RawMessage
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return settings, nil
}

func saveSettings(path string, settings map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func settingsHooks(settings map[string]json.RawMessage) map[string][]hookEntry {
	hooks := make(map[string][]hookEntry)
	if raw, ok := settings["hooks"]; ok {
		// A malformed hooks block is replaced rather than corrupting the
		// install.
		_ = json.Unmarshal(raw, &hooks)
	}
	return hooks
}

func setSettingsHooks(settings map[string]json.RawMessage, hooks map[string][]hookEntry) error {
	raw, err := json.Marshal(hooks)
	if err != nil {
		return fmt.Errorf("failed to serialize hooks: %w", err)
	}
	settings["hooks"] = raw
	return nil
}

func entriesOf(hooks map[string][]hookEntry, event string) []hookEntry {
	return hooks[event]
}

func hooksContain(hooks map[string][]hookEntry, needle string) bool {
	for _, entries := range hooks {
		for _, e := range entries {
			if strings.Contains(e.Command, needle) {
				return true
			}
		}
	}
	return false
}
