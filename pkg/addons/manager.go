package addons

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// Client is the part of the API client the manager needs.
type Client interface {
	ListAddons(ctx context.Context) ([]models.Addon, error)
	SetAddonVersions(ctx context.Context, environment string, versions map[string]*string) error
	CopyAddonVariant(ctx context.Context, addon, from, to string) error
}

// Target selects which version a request activates.
type Target int

const (
	// TargetDisable clears the version, disabling the addon.
	TargetDisable Target = iota
	// TargetLatest activates the highest installed version of each addon.
	TargetLatest
	// TargetVersion activates one explicit version.
	TargetVersion
)

// ErrUnknownAddon is returned when a requested addon is not installed.
var ErrUnknownAddon = errors.New("addon is not installed")

// ErrUnknownVersion is returned when a requested version is not installed.
var ErrUnknownVersion = errors.New("addon version is not installed")

// Manager changes addon versions per environment.
type Manager struct {
	client Client
	logger *logrus.Logger
}

// NewManager creates a manager
func NewManager(client Client, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{client: client, logger: logger}
}

// List returns the addons of env as rows.
func (m *Manager) List(ctx context.Context, env string, showAll bool) ([]Row, error) {
	if err := validateEnv(env); err != nil {
		return nil, err
	}
	list, err := m.client.ListAddons(ctx)
	if err != nil {
		return nil, err
	}
	return ForEnvironment(list, env, showAll), nil
}

// SetVersions applies target to every named addon in env with one request.
// version is only used with TargetVersion, which accepts a single addon.
func (m *Manager) SetVersions(ctx context.Context, env string, names []string, target Target, version string) (map[string]*string, error) {
	if err := validateEnv(env); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no addons given")
	}
	if target == TargetVersion && len(names) != 1 {
		return nil, fmt.Errorf("an explicit version applies to one addon, got %d", len(names))
	}

	list, err := m.client.ListAddons(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]models.Addon, len(list))
	for _, a := range list {
		byName[a.Name] = a
	}

	versions := make(map[string]*string, len(names))
	for _, name := range names {
		a, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrUnknownAddon)
		}
		switch target {
		case TargetDisable:
			versions[name] = nil
		case TargetLatest:
			latest := Latest(a)
			if latest == "" {
				return nil, fmt.Errorf("%s has no installed versions: %w", name, ErrUnknownVersion)
			}
			versions[name] = &latest
		case TargetVersion:
			if _, ok := a.Versions[version]; !ok {
				return nil, fmt.Errorf("%s %s: %w", name, version, ErrUnknownVersion)
			}
			v := version
			versions[name] = &v
		}
	}

	if err := m.client.SetAddonVersions(ctx, env, versions); err != nil {
		return nil, err
	}
	m.logger.WithFields(logrus.Fields{
		"environment": env,
		"addons":      names,
	}).Info("Addon versions changed")
	return versions, nil
}

// CopySource returns the environment the other one is copied from.
func CopySource(env string) string {
	if env == Production {
		return Staging
	}
	return Production
}

// CopyFromOther copies each addon's variant into env from the other
// environment. Failures are collected and do not stop the remaining addons.
func (m *Manager) CopyFromOther(ctx context.Context, env string, names []string) error {
	if err := validateEnv(env); err != nil {
		return err
	}
	from := CopySource(env)
	var errs []error
	for _, name := range names {
		if err := m.client.CopyAddonVariant(ctx, name, from, env); err != nil {
			m.logger.WithError(err).WithField("addon", name).Warn("Copy failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validateEnv(env string) error {
	if env != Production && env != Staging {
		return fmt.Errorf("unknown environment %q", env)
	}
	return nil
}
