package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Listen          string            `koanf:"listen"`
	CacheDir        string            `koanf:"cachedir"`
	TokenFile       string            `koanf:"tokenfile"`
	AdminSecret     string            `koanf:"adminsecret"`
	RefreshInterval time.Duration     `koanf:"refreshinterval"`
	Portal          Portal            `koanf:"portal"`
	Sections        map[string]string `koanf:"sections"`
}

type Portal struct {
	LoginURL string        `koanf:"loginurl"`
	BaseURL  string        `koanf:"baseurl"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	Timeout  time.Duration `koanf:"timeout"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Listen:          ":8181",
		CacheDir:        "./var/cache",
		TokenFile:       "./var/tokens.json",
		RefreshInterval: 5 * time.Minute,
		Portal: Portal{
			Timeout: 30 * time.Second,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "EDTPROXY_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "EDTPROXY_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

// Validate checks the settings without which the service cannot do anything
// useful. Sections and portal credentials are static for the process lifetime,
// so a misconfiguration is caught at startup rather than on the first cycle.
func (a Application) Validate() error {
	if len(a.Sections) == 0 {
		return errors.New("no sections configured")
	}
	if a.AdminSecret == "" {
		return errors.New("admin secret is not configured")
	}
	if a.Portal.LoginURL == "" || a.Portal.BaseURL == "" {
		return errors.New("portal loginurl and baseurl must be configured")
	}
	if a.Portal.Username == "" || a.Portal.Password == "" {
		return errors.New("portal credentials are not configured")
	}
	if a.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	return nil
}
