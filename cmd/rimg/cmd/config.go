package cmd

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/apex/log"
)

// fileConfig mirrors the subset of flags worth persisting. Explicit
// command-line flags always win over the file.
type fileConfig struct {
	Protocol   string  `toml:"protocol"`
	Pixelation string  `toml:"pixelation"`
	Background string  `toml:"background"`
	Stretch    float64 `toml:"stretch"`
	Use8Bit    bool    `toml:"use_8bit"`
	Center     bool    `toml:"center"`
	Antialias  *bool   `toml:"antialias"`
	Title      string  `toml:"title"`
	Threads    int     `toml:"threads"`
}

func configPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "rimg", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "rimg", "config.toml")
}

// applyConfigFile layers file defaults under flags the user did not set.
// A missing file is not an error; a malformed one is only a warning.
func applyConfigFile() {
	path := configPath()
	if path == "" {
		return
	}
	var cfg fileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("ignoring config file %s: %v", path, err)
		}
		return
	}

	changed := rootCmd.Flags().Changed
	if cfg.Protocol != "" && !changed("protocol") {
		flags.protocol = cfg.Protocol
	}
	if cfg.Pixelation != "" && !changed("pixelation") {
		flags.pixelation = cfg.Pixelation
	}
	if cfg.Background != "" && !changed("background") {
		flags.background = cfg.Background
	}
	if cfg.Stretch != 0 && !changed("stretch") {
		flags.stretch = cfg.Stretch
	}
	if cfg.Use8Bit && !changed("8bit") {
		flags.use8bit = true
	}
	if cfg.Center && !changed("center") {
		flags.center = true
	}
	if cfg.Antialias != nil && !changed("antialias") {
		flags.antialias = *cfg.Antialias
	}
	if cfg.Title != "" && !changed("title") {
		flags.title = cfg.Title
	}
	if cfg.Threads > 0 && !changed("threads") {
		flags.threads = cfg.Threads
	}
}
