package app

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v2"

	"github.com/jeremyhahn/go-test-pki/pkg/logging"
	"github.com/jeremyhahn/go-test-pki/pkg/store/blob"
)

// App wires the configuration, logger, filesystem and artifact store the
// CLI commands run against. The yaml/mapstructure fields load from
// config.yaml and the bound command line flags; the rest are runtime
// state.
type App struct {
	ConfigDir string          `yaml:"config-dir" json:"config_dir" mapstructure:"config-dir"`
	DataDir   string          `yaml:"data-dir" json:"data_dir" mapstructure:"data-dir"`
	DebugFlag bool            `yaml:"debug" json:"debug" mapstructure:"debug"`
	KeyType   string          `yaml:"key-type" json:"key_type" mapstructure:"key-type"`
	LogDir    string          `yaml:"log-dir" json:"log_dir" mapstructure:"log-dir"`
	QuietFlag bool            `yaml:"quiet" json:"quiet" mapstructure:"quiet"`
	BlobStore blob.BlobStorer `yaml:"-" json:"-" mapstructure:"-"`
	FS        afero.Fs        `yaml:"-" json:"-" mapstructure:"-"`
	Logger    *logging.Logger `yaml:"-" json:"-" mapstructure:"-"`
	Random    io.Reader       `yaml:"-" json:"-" mapstructure:"-"`
}

type AppInitParams struct {
	ConfigDir string
	DataDir   string
	Debug     bool
	KeyType   string
	LogDir    string
	Quiet     bool
}

func NewApp() *App {
	return &App{
		FS:     afero.NewOsFs(),
		Random: rand.Reader,
	}
}

// Init loads the configuration file, initializes the logger and opens
// the artifact store. Command line flags override the configuration
// file.
func (app *App) Init(initParams *AppInitParams) (*App, error) {
	if initParams != nil {
		app.ConfigDir = initParams.ConfigDir
		app.DataDir = initParams.DataDir
		app.DebugFlag = initParams.Debug
		app.KeyType = initParams.KeyType
		app.LogDir = initParams.LogDir
		app.QuietFlag = initParams.Quiet
	}
	if err := app.initConfig(); err != nil {
		return nil, err
	}
	if err := app.initLogger(); err != nil {
		return nil, err
	}
	if err := app.initStores(); err != nil {
		return nil, err
	}
	return app, nil
}

// Read and parse the configuration file. A missing file is not an
// error; a default scaffold is written in its place so the settings are
// discoverable.
func (app *App) initConfig() error {

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if app.ConfigDir != "" {
		viper.AddConfigPath(app.ConfigDir)
	}
	viper.AddConfigPath(fmt.Sprintf("$HOME/.%s/", Name))
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		app.writeConfigScaffold()
	}

	return viper.Unmarshal(app)
}

// Writes the current settings to config.yaml as a starting point. Any
// failure here is ignored; the scaffold is a convenience, not a
// requirement.
func (app *App) writeConfigScaffold() {
	scaffold, err := yaml.Marshal(app)
	if err != nil {
		return
	}
	configDir := app.ConfigDir
	if configDir == "" {
		configDir = "."
	}
	configFile := fmt.Sprintf("%s/config.yaml", configDir)
	afero.WriteFile(app.FS, configFile, scaffold, 0644)
}

// Creates the application logger. Without a log directory the logger
// writes nowhere unless debug mode streams it to STDOUT.
func (app *App) initLogger() error {

	level := slog.LevelError
	if app.DebugFlag {
		level = slog.LevelDebug
	}

	var logFile afero.File
	if app.LogDir != "" {
		if err := app.FS.MkdirAll(app.LogDir, os.ModePerm); err != nil {
			return err
		}
		var err error
		logFile, err = app.FS.OpenFile(
			fmt.Sprintf("%s/%s.log", app.LogDir, Name),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
	}

	app.Logger = logging.NewLogger(level, logFile)
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		app.Logger.Debugf("%s: using configuration file: %s", Name, configFile)
	}
	return nil
}

// Opens the blob store used to keep records of issued certificates
func (app *App) initStores() error {
	blobstore, err := blob.NewFSBlobStore(app.Logger, app.FS, app.DataDir, nil)
	if err != nil {
		return err
	}
	app.BlobStore = blobstore
	return nil
}

// DefaultTestConfig returns an initialized App backed by an in-memory
// filesystem
func DefaultTestConfig() *App {
	app := &App{
		DataDir: "/var/lib/test-pki",
		KeyType: "ecdsa",
		FS:      afero.NewMemMapFs(),
		Logger:  logging.DefaultLogger(),
		Random:  rand.Reader,
	}
	if err := app.initStores(); err != nil {
		app.Logger.FatalError(err)
	}
	return app
}
