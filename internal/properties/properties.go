package properties

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	KeyRootPath           = "ROOT_PATH"
	KeyLogLevel           = "LOG_LEVEL"
	KeyGEEKeyPath         = "GEE_KEY_PATH"
	KeyGEEServiceAccount  = "GEE_SERVICE_ACCOUNT"
	KeyGEEProject         = "GEE_PROJECT"
	KeyGEEAPIURL          = "GEE_API_URL"
	KeyDiscordErrorURL    = "DISCORD_ERROR_NOTIFICATION_URL"
	KeyDiscordSuccessURL  = "DISCORD_SUCCESS_NOTIFICATION_URL"
	DefaultGEEAPIURL      = "https://earthengine.googleapis.com"
	DefaultGEEKeyFile     = "gee-key.json"
	DefaultLogLevel       = "info"
	defaultEnvFile        = ".env"
	defaultParentEnvFile  = "../.env"
	defaultGrandParentEnv = "../../.env"
)

func init() {
	viper.AutomaticEnv()
	viper.SetDefault(KeyLogLevel, DefaultLogLevel)
	viper.SetDefault(KeyGEEAPIURL, DefaultGEEAPIURL)
	viper.SetDefault(KeyGEEKeyPath, DefaultGEEKeyFile)
}

// Load reads the first .env files it finds. Missing files are not an error;
// variables already set in the environment win.
func Load(files ...string) error {
	if len(files) == 0 {
		files = []string{defaultEnvFile, defaultParentEnvFile, defaultGrandParentEnv}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err == nil {
			continue
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return err
	}
	return nil
}

func RootPath() string {
	root := viper.GetString(KeyRootPath)
	if root == "" {
		return "."
	}
	return root
}

// Resolve makes p relative to RootPath unless it is already absolute.
func Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(RootPath(), p)
}

func LogLevel() string {
	return viper.GetString(KeyLogLevel)
}

func GEEKeyPath() string {
	return Resolve(viper.GetString(KeyGEEKeyPath))
}

func GEEServiceAccount() string {
	return viper.GetString(KeyGEEServiceAccount)
}

func GEEProject() string {
	return viper.GetString(KeyGEEProject)
}

func GEEAPIURL() string {
	return viper.GetString(KeyGEEAPIURL)
}

func DiscordErrorNotificationUrl() string {
	return viper.GetString(KeyDiscordErrorURL)
}

func DiscordSuccessNotificationUrl() string {
	return viper.GetString(KeyDiscordSuccessURL)
}
