package models

// AddonVersionInfo describes one installed version of an addon
type AddonVersionInfo struct {
	HasSettings     bool `json:"hasSettings,omitempty"`
	HasSiteSettings bool `json:"hasSiteSettings,omitempty"`
	FrontendScopes  any  `json:"frontendScopes,omitempty"`
	ClientPyproject any  `json:"clientPyproject,omitempty"`
	IsBroken        bool `json:"isBroken,omitempty"`
}

// Addon is an entry of the server's addon list.
type Addon struct {
	Name              string                      `json:"name"`
	Title             string                      `json:"title"`
	Description       string                      `json:"description,omitempty"`
	Versions          map[string]AddonVersionInfo `json:"versions"`
	ProductionVersion *string                     `json:"productionVersion"`
	StagingVersion    *string                     `json:"stagingVersion"`
}

// AnatomyPreset is a stored project anatomy template.
type AnatomyPreset struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version,omitempty"`
	Primary bool   `json:"primary"`
}
