// FILE: lixenwraith/confclass/example/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/lixenwraith/confclass"
)

// AppConfig is decoded from the resolved instance
type AppConfig struct {
	Server struct {
		Host string `config:"host"`
		Port int    `config:"port"`
	} `config:"server"`

	Database struct {
		URL         string        `config:"url"`
		MaxConns    int           `config:"max_conns"`
		IdleTimeout time.Duration `config:"idle_timeout"`
	} `config:"database"`

	// Declared as an enum field, filled from the instance
	Environment string `config:"-"`
}

func main() {
	reg := config.NewRegistry()
	defer reg.Teardown()

	inst, cfg, err := loadConfig(context.Background(), reg, os.Args[1:])
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	log.Printf("Loaded %s generation %d: %+v", inst.Schema().Key(), inst.Generation(), cfg)

	watchOpts := config.WatchOptions{
		PollInterval:  500 * time.Millisecond,
		MaxWatchers:   10,
		ReloadTimeout: 2 * time.Second,
	}
	if err := reg.AutoReload("app", watchOpts); err != nil {
		log.Fatal(err)
	}
	changes, err := reg.Watch("app")
	if err != nil {
		log.Fatal(err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case name, ok := <-changes:
			if !ok {
				return
			}
			current, _ := reg.Current("app")
			value, _ := current.Get(name)
			log.Printf("Changed: %s = %v", name, value)
		case <-sigCh:
			log.Println("Shutting down")
			return
		}
	}
}

// loadConfig resolves the "app" shape from args, MYAPP_ variables and
// config.toml, and decodes it
func loadConfig(ctx context.Context, reg *config.Registry, args []string) (*config.Instance, AppConfig, error) {
	defaults := &AppConfig{}
	defaults.Server.Host = "localhost"
	defaults.Server.Port = 8080
	defaults.Database.MaxConns = 10
	defaults.Database.IdleTimeout = 30 * time.Second
	defaults.Database.URL = "postgres://localhost/app"

	var cfg AppConfig
	inst, err := config.NewBuilder("app").
		WithDefaults(defaults).
		Field("environment", config.TypeEnum(config.EnvironmentEnum), config.WithDefault("Development")).
		WithArgs(args).
		WithCLI().
		WithEnv("MYAPP_").
		WithFile("config.toml").
		BuildAndDecode(ctx, reg, &cfg)
	if err != nil {
		return nil, cfg, err
	}

	env, err := inst.Enum("environment")
	if err != nil {
		return nil, cfg, err
	}
	cfg.Environment = env.Name
	return inst, cfg, nil
}
