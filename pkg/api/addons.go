package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mattsolo1/grove-hed/pkg/models"
)

// ListAddons returns every installed addon with its versions.
func (c *Client) ListAddons(ctx context.Context) ([]models.Addon, error) {
	var resp struct {
		Addons []models.Addon `json:"addons"`
	}
	if err := c.do(ctx, "addons", http.MethodGet, "/api/addons?details=1", nil, &resp); err != nil {
		return nil, fmt.Errorf("list addons: %w", err)
	}
	return resp.Addons, nil
}

// SetAddonVersions sets the active version of each named addon in one
// environment. A nil version disables the addon there.
func (c *Client) SetAddonVersions(ctx context.Context, environment string, versions map[string]*string) error {
	// Only the field of the chosen environment may be present; a separate
	// map keeps an explicit null in the payload.
	field := environment + "Version"
	payload := make(map[string]map[string]*string, len(versions))
	for name, v := range versions {
		payload[name] = map[string]*string{field: v}
	}
	body := map[string]any{"versions": payload}
	if err := c.do(ctx, "addons", http.MethodPost, "/api/addons", body, nil); err != nil {
		return fmt.Errorf("set %s addon versions: %w", environment, err)
	}
	return nil
}

// CopyAddonVariant copies the settings and version of an addon from one
// environment to the other.
func (c *Client) CopyAddonVariant(ctx context.Context, addon, from, to string) error {
	body := map[string]string{"copyFrom": from, "copyTo": to}
	path := fmt.Sprintf("/api/addons/%s/copyVariant", url.PathEscape(addon))
	if err := c.do(ctx, "addon_copy", http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("copy %s from %s to %s: %w", addon, from, to, err)
	}
	return nil
}

// AnatomyPresets lists the stored anatomy presets.
func (c *Client) AnatomyPresets(ctx context.Context) ([]models.AnatomyPreset, error) {
	var resp struct {
		Presets []models.AnatomyPreset `json:"presets"`
	}
	if err := c.do(ctx, "anatomy_presets", http.MethodGet, "/api/anatomy/presets", nil, &resp); err != nil {
		return nil, fmt.Errorf("list anatomy presets: %w", err)
	}
	return resp.Presets, nil
}

// DefaultPresetName is the name of the built-in anatomy.
const DefaultPresetName = "_"

// PresetOptions turns a preset list into choices for a picker. The first
// option always stands for the default: the primary preset if one is marked,
// otherwise the built-in anatomy.
func PresetOptions(presets []models.AnatomyPreset) []models.AnatomyPreset {
	def := models.AnatomyPreset{Name: DefaultPresetName, Title: "<default (built-in)>"}
	out := make([]models.AnatomyPreset, 0, len(presets)+1)
	for _, p := range presets {
		if p.Primary {
			def = models.AnatomyPreset{Name: p.Name, Title: fmt.Sprintf("<default (%s)>", p.Name)}
		}
		out = append(out, models.AnatomyPreset{
			Name:    p.Name,
			Title:   p.Name,
			Version: p.Version,
			Primary: p.Primary,
		})
	}
	return append([]models.AnatomyPreset{def}, out...)
}
