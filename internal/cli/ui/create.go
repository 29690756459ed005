package ui

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"blockdock/internal/domain"
	"blockdock/internal/driver"
	"blockdock/internal/registry"
)

// ErrAborted is returned when the user cancels the interactive flow.
var ErrAborted = errors.New("server creation aborted by user")

// CreateServerForm walks the user through the fields of a new server config.
// Prefilled values (from flags) become the form defaults.
func CreateServerForm(prefill domain.ServerConfig) (domain.ServerConfig, error) {
	accessible := os.Getenv("ACCESSIBLE") != ""

	cfg := prefill
	if cfg.Version == "" {
		cfg.Version = domain.TagLatest
	}
	if cfg.Memory == "" {
		cfg.Memory = "2G"
	}
	if cfg.Port == 0 {
		cfg.Port = 25565
	}
	port := strconv.Itoa(cfg.Port)
	serverType := string(cfg.Type)
	if serverType == "" {
		serverType = string(domain.TypeVanilla)
	}

	typeOpts := make([]huh.Option[string], 0, len(domain.ServerTypes()))
	for _, t := range domain.ServerTypes() {
		typeOpts = append(typeOpts, huh.NewOption(string(t), string(t)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server name").
				Value(&cfg.Name).
				Validate(func(value string) error {
					return registry.ValidateName(strings.TrimSpace(value))
				}),
			huh.NewSelect[string]().
				Title("Server type").
				Options(typeOpts...).
				Value(&serverType),
			huh.NewInput().
				Title("Version").
				Description("LATEST, SNAPSHOT or an exact version like 1.21.1").
				Value(&cfg.Version),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Memory limit").
				Description("e.g. 2G or 512M").
				Value(&cfg.Memory).
				Validate(func(value string) error {
					_, err := driver.ParseMemory(value)
					return err
				}),
			huh.NewInput().
				Title("Host port").
				Value(&port).
				Validate(func(value string) error {
					n, err := strconv.Atoi(strings.TrimSpace(value))
					if err != nil || n <= 0 || n > 65535 {
						return errors.New("port must be between 1 and 65535")
					}
					return nil
				}),
			huh.NewInput().
				Title("Extra JVM arguments").
				Description("optional").
				Value(&cfg.JVMArgs),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Accept the Minecraft EULA?").
				Description("https://aka.ms/MinecraftEULA").
				Value(&cfg.EULA),
		),
	).WithAccessible(accessible)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return domain.ServerConfig{}, ErrAborted
		}
		return domain.ServerConfig{}, err
	}

	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Type = domain.ServerType(serverType)
	cfg.Port, _ = strconv.Atoi(strings.TrimSpace(port))
	return cfg, nil
}

// ConfirmRemoval asks before a destructive removal.
func ConfirmRemoval(name string) (bool, error) {
	confirmed := false
	err := huh.NewConfirm().
		Title("Remove server " + name + "?").
		Description("The container and its world data will be deleted.").
		Value(&confirmed).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return confirmed, nil
}
