/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"mapedit/internal/editing"
	"mapedit/internal/geometry"
	"mapedit/internal/render"
	"mapedit/internal/undo"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type SnapConfig struct {
	// Threshold in pixels; 0 disables snapping.
	Threshold float64 `yaml:"threshold"`
	Vertices  bool    `yaml:"vertices"`
	Edges     bool    `yaml:"edges"`
}

type EditingConfig struct {
	Mode            string     `yaml:"mode"` // e.g. "reshape|drag"
	HitTolerance    float64    `yaml:"hit_tolerance"`
	DeleteKeys      []int      `yaml:"delete_keys"`
	Clickout        bool       `yaml:"clickout"`
	Toggle          bool       `yaml:"toggle"`
	VirtualVertices bool       `yaml:"virtual_vertices"`
	BySegment       bool       `yaml:"by_segment"`
	GeometryTypes   []string   `yaml:"geometry_types"`
	Snap            SnapConfig `yaml:"snap"`
	// AttributeSchema is a JSON Schema file checked on attribute edits.
	AttributeSchema string `yaml:"attribute_schema"`
}

type UndoConfig struct {
	MaxBytes      int `yaml:"max_bytes"`
	MaxPerFeature int `yaml:"max_per_feature"`
	MinIntervalMs int `yaml:"min_interval_ms"`
}

type StorageConfig struct {
	// Dir holds the edit journal; empty uses the per-user data directory.
	Dir       string `yaml:"dir"`
	KeepEdits int    `yaml:"keep_edits"`
}

type BackendConfig struct {
	// DSN is a postgres URL without password; the password lives in the OS keychain.
	DSN       string `yaml:"dsn"`
	Layer     string `yaml:"layer"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type RenderConfig struct {
	// Theme is a YAML theme file; empty uses the built-in theme.
	Theme    string `yaml:"theme"`
	LabelKey string `yaml:"label_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editing       EditingConfig `yaml:"editing"`
	Undo          UndoConfig    `yaml:"undo"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Render        RenderConfig  `yaml:"render"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editing: EditingConfig{
			Mode:            "reshape",
			HitTolerance:    editing.DefaultHitTolerance,
			DeleteKeys:      append([]int(nil), editing.DefaultDeleteCodes...),
			Clickout:        true,
			Toggle:          true,
			VirtualVertices: true,
		},
		Undo:    UndoConfig{MaxBytes: 16 * 1024 * 1024, MaxPerFeature: 100, MinIntervalMs: 0},
		Storage: StorageConfig{KeepEdits: 500},
		Backend: BackendConfig{Layer: "default", TimeoutMs: 15000},
		Render:  RenderConfig{LabelKey: "name"},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "MAPEDIT_CONFIG"
	EnvMode           = "MAPEDIT_MODE"
	EnvHitTolerance   = "MAPEDIT_HIT_TOLERANCE"
	EnvSnapThreshold  = "MAPEDIT_SNAP_THRESHOLD"
	EnvJournalDir     = "MAPEDIT_JOURNAL_DIR"
	EnvBackendDSN     = "MAPEDIT_PG_DSN"
	EnvBackendLayer   = "MAPEDIT_LAYER"
	EnvBackendTimeout = "MAPEDIT_BACKEND_TIMEOUT_MS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "MAPEDIT_LOG_LEVEL"
	EnvLogFormat = "MAPEDIT_LOG_FORMAT"
	EnvLogSource = "MAPEDIT_LOG_SOURCE"
	EnvLogFile   = "MAPEDIT_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "mapedit"
	keyringPassword = "backend_password"
)

// secretStore abstracts the keyring, so we can stub in tests.
var secretStore SecretStore = osKeyring{}

type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. MAPEDIT_CONFIG wins.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base, err := userDir(os.Getenv("AppData"), filepath.Join("Library", "Application Support"), ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir is where the journal lives when Storage.Dir is empty.
func DataDir() (string, error) {
	return userDir(os.Getenv("LocalAppData"), filepath.Join("Library", "Application Support"), filepath.Join(".local", "share"))
}

func userDir(windows, darwin, unix string) (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = windows
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "mapedit")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), darwin, "mapedit")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), unix, "mapedit")
	}
	if base == "" {
		return "", errors.New("cannot resolve user directory")
	}
	return base, nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend password from the keyring (returned separately, never stored in the struct).
// A malformed file is reported as an error together with the defaults.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	var parseErr error
	if data, err := os.ReadFile(path); err == nil {
		// Unmarshal over defaults so missing keys keep their default values.
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			parseErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	secret, _ := secretStore.Get(keyringService, keyringPassword)
	return cfg, secret, parseErr
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := secretStore.Set(keyringService, keyringPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// ForgetPassword removes the stored backend password.
func ForgetPassword() error {
	err := secretStore.Delete(keyringService, keyringPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editing
	if strings.TrimSpace(src.Editing.Mode) != "" {
		dst.Editing.Mode = strings.ToLower(strings.TrimSpace(src.Editing.Mode))
	}
	if src.Editing.HitTolerance > 0 {
		dst.Editing.HitTolerance = src.Editing.HitTolerance
	}
	if len(src.Editing.DeleteKeys) > 0 {
		dst.Editing.DeleteKeys = append([]int(nil), src.Editing.DeleteKeys...)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Editing.Clickout = src.Editing.Clickout
	dst.Editing.Toggle = src.Editing.Toggle
	dst.Editing.VirtualVertices = src.Editing.VirtualVertices
	dst.Editing.BySegment = src.Editing.BySegment
	if len(src.Editing.GeometryTypes) > 0 {
		dst.Editing.GeometryTypes = append([]string(nil), src.Editing.GeometryTypes...)
	}
	dst.Editing.Snap = src.Editing.Snap
	if strings.TrimSpace(src.Editing.AttributeSchema) != "" {
		dst.Editing.AttributeSchema = strings.TrimSpace(src.Editing.AttributeSchema)
	}
	// undo
	if src.Undo.MaxBytes > 0 {
		dst.Undo.MaxBytes = src.Undo.MaxBytes
	}
	if src.Undo.MaxPerFeature > 0 {
		dst.Undo.MaxPerFeature = src.Undo.MaxPerFeature
	}
	if src.Undo.MinIntervalMs > 0 {
		dst.Undo.MinIntervalMs = src.Undo.MinIntervalMs
	}
	// storage
	if strings.TrimSpace(src.Storage.Dir) != "" {
		dst.Storage.Dir = strings.TrimSpace(src.Storage.Dir)
	}
	if src.Storage.KeepEdits > 0 {
		dst.Storage.KeepEdits = src.Storage.KeepEdits
	}
	// backend
	if src.Backend.DSN != "" {
		dst.Backend.DSN = src.Backend.DSN
	}
	if src.Backend.Layer != "" {
		dst.Backend.Layer = src.Backend.Layer
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	// render
	if strings.TrimSpace(src.Render.Theme) != "" {
		dst.Render.Theme = strings.TrimSpace(src.Render.Theme)
	}
	dst.Render.LabelKey = src.Render.LabelKey
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvMode)); v != "" {
		cfg.Editing.Mode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHitTolerance)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.Editing.HitTolerance = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapThreshold)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editing.Snap.Threshold = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournalDir)); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendLayer)); v != "" {
		cfg.Backend.Layer = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"editing.mode":           EnvMode,
		"editing.hit_tolerance":  EnvHitTolerance,
		"editing.snap.threshold": EnvSnapThreshold,
		"storage.dir":            EnvJournalDir,
		"backend.dsn":            EnvBackendDSN,
		"backend.layer":          EnvBackendLayer,
		"backend.timeout_ms":     EnvBackendTimeout,
		"logging.level":          EnvLogLevel,
		"logging.format":         EnvLogFormat,
		"logging.source":         EnvLogSource,
		"logging.file":           EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Options converts the editing section into controller options.
func (e EditingConfig) Options() (editing.Options, error) {
	mode, ok := editing.ParseMode(e.Mode)
	if !ok {
		return editing.Options{}, fmt.Errorf("config: unknown edit mode %q", e.Mode)
	}
	opts := editing.Options{
		Mode:              mode,
		HitTolerance:      e.HitTolerance,
		DeleteCodes:       e.DeleteKeys,
		DisableClickout:   !e.Clickout,
		DisableToggle:     !e.Toggle,
		NoVirtualVertices: !e.VirtualVertices,
		BySegment:         e.BySegment,
		Snap:              geometry.SnapOptions{Threshold: e.Snap.Threshold, ToVertices: e.Snap.Vertices, ToEdges: e.Snap.Edges},
	}
	for _, name := range e.GeometryTypes {
		k, ok := geometry.ParseKind(name)
		if !ok {
			return editing.Options{}, fmt.Errorf("config: unknown geometry type %q", name)
		}
		opts.GeometryTypes = append(opts.GeometryTypes, k)
	}
	return opts, nil
}

// Manager builds an undo manager from the undo section.
func (u UndoConfig) Manager() *undo.Manager {
	return undo.NewManager(undo.Config{
		MaxBytes:      u.MaxBytes,
		MaxPerFeature: u.MaxPerFeature,
		MinInterval:   time.Duration(u.MinIntervalMs) * time.Millisecond,
	})
}

// Options builds render options, loading the theme file when one is set.
func (r RenderConfig) Options() (render.Options, error) {
	opt := render.Options{LabelKey: r.LabelKey}
	if r.Theme != "" {
		t, err := render.LoadThemeFile(r.Theme)
		if err != nil {
			return render.Options{}, err
		}
		opt.Theme = t
	}
	return opt, nil
}

// JournalDir resolves the storage directory.
func (s StorageConfig) JournalDir() (string, error) {
	if s.Dir != "" {
		return s.Dir, nil
	}
	return DataDir()
}

// ConnString returns the DSN with the password filled in when one is given
// and the DSN does not carry its own.
func (b BackendConfig) ConnString(password string) (string, error) {
	if b.DSN == "" {
		return "", errors.New("config: backend dsn is not set")
	}
	if password == "" {
		return b.DSN, nil
	}
	u, err := url.Parse(b.DSN)
	if err != nil {
		return "", fmt.Errorf("config: parse dsn: %w", err)
	}
	if u.User == nil {
		return b.DSN, nil
	}
	if _, set := u.User.Password(); set {
		return b.DSN, nil
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}

// Timeout returns the backend timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
