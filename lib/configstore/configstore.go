package configstore

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"utprint/lib/pharos"

	"gopkg.in/ini.v1"
)

const (
	ConfigFilename = "config.ini"
	DirEnv         = "UTPRINT_CONFIG_DIR"

	printDefaultsSection  = "PrintDefaults"
	persistentAuthSection = "PersistentAuth"
)

// Config is the user's print defaults and persisted session.
type Config struct {
	Color pharos.Color
	Sides pharos.Sides
	// value of the session token cookie, "" if there is none
	Token string
}

func Defaults() Config {
	return Config{
		Color: pharos.ColorFull,
		Sides: pharos.Simplex,
	}
}

func (c Config) WithToken(token string) Config {
	c.Token = token
	return c
}

func (c Config) WithoutToken() Config {
	c.Token = ""
	return c
}

// DefaultDir returns the directory named by UTPRINT_CONFIG_DIR, or the
// platform's user config directory.
func DefaultDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "utprint"), nil
}

type Store struct {
	dir string
}

func NewStore(dir string) Store {
	return Store{dir: dir}
}

func (s Store) Dir() string {
	return s.dir
}

func (s Store) Path() string {
	return filepath.Join(s.dir, ConfigFilename)
}

// Load reads the config file, a missing file yields the defaults and
// unrecognized values fall back to their default.
func (s Store) Load() (Config, error) {
	out := Defaults()

	contents, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return out, err
	}

	// keys are matched case insensitively, older versions wrote them in lowercase
	file, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, contents)
	if err != nil {
		return out, fmt.Errorf("parse %s: %w", s.Path(), err)
	}

	if section, err := file.GetSection(printDefaultsSection); err == nil {
		if section.HasKey("color") {
			color := pharos.Color(section.Key("color").String())
			if color.Valid() {
				out.Color = color
			} else {
				slog.Warn("ignoring invalid default color", "value", color)
			}
		}
		if section.HasKey("sides") {
			raw := section.Key("sides").String()
			sides, err := strconv.Atoi(raw)
			if err == nil && pharos.Sides(sides).Valid() {
				out.Sides = pharos.Sides(sides)
			} else {
				slog.Warn("ignoring invalid default sides", "value", raw)
			}
		}
	}
	if section, err := file.GetSection(persistentAuthSection); err == nil && section.HasKey("cookie") {
		out.Token = section.Key("cookie").String()
	}

	return out, nil
}

// Save writes both sections of the config file, the file is only readable
// by the user since it holds the session token.
func (s Store) Save(config Config) error {
	file := ini.Empty()

	defaults, err := file.NewSection(printDefaultsSection)
	if err != nil {
		return err
	}
	defaults.Key("color").SetValue(string(config.Color))
	defaults.Key("sides").SetValue(strconv.Itoa(int(config.Sides)))

	auth, err := file.NewSection(persistentAuthSection)
	if err != nil {
		return err
	}
	auth.Key("cookie").SetValue(config.Token)

	var buff bytes.Buffer
	_, err = file.WriteTo(&buff)
	if err != nil {
		return err
	}

	err = os.MkdirAll(s.dir, 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path(), buff.Bytes(), 0600)
}

// Update loads the config, applies fn and saves the result.
func (s Store) Update(fn func(Config) Config) (Config, error) {
	config, err := s.Load()
	if err != nil {
		return config, err
	}
	config = fn(config)
	return config, s.Save(config)
}
