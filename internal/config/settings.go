package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const DefaultOmronServer = "https://data-sg.omronconnect.com"

type Settings struct {
	Omron  OmronSettings  `json:"omron"`
	Garmin GarminSettings `json:"garmin"`
}

// OmronSettings holds the source account: which regional server it lives
// on and the opaque refresh token from the last login.
type OmronSettings struct {
	Server       string `json:"server"`
	Country      string `json:"country"`
	EmailAddress string `json:"email_address"`
	RefreshToken string `json:"refresh_token"`
}

// GarminSettings holds the target account's opaque token. The token's
// internals are never interpreted here.
type GarminSettings struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

func DefaultSettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// LoadEnv pulls in a .env file if one exists, so credentials can be passed
// through the environment instead of flags.
func LoadEnv() {
	_ = godotenv.Load()
}

func LoadOrInitializeSettingsFromDefaultLocation() (bool, *Settings) {
	return LoadOrInitializeSettings(DefaultSettingsPath())
}

func LoadOrInitializeSettings(path string) (bool, *Settings) {
	if settings, err := LoadSettings(path); err == nil {
		return false, settings
	}

	return true, &Settings{
		Omron: OmronSettings{
			Server: DefaultOmronServer,
		},
	}
}

func LoadSettings(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Settings carry account tokens, keep them private.
	return os.WriteFile(path, data, 0600)
}
