package loader

// Config selects the application layers registered after core and framework.
type Config struct {
	// Apps is the ordered list of enabled applications (LAYERS_APPS=files,messenger).
	Apps []string `mapstructure:"apps" default:"files,messenger"`
}
