package domain

// ArtifactConfig selects and configures the artifact store backend. A
// non-empty Endpoint selects the object-storage backend; otherwise the
// local filesystem store rooted at Root is used.
type ArtifactConfig struct {
	Root string

	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Config is the parsed, validated build configuration for one invocation.
type Config struct {
	Graph   *RuleGraph
	Targets []Target

	// Retries is the per-rule attempt budget for transient and build-tool
	// failures. Defaults to 2.
	Retries int

	// Tool is the package-building tool binary invoked per rule.
	// Defaults to "spack".
	Tool string

	// StageRoot is the directory under which per-attempt working
	// directories are created.
	StageRoot string

	// CachePath is the location of the persistent build cache file.
	CachePath string

	Artifacts ArtifactConfig
}

// TargetByName returns the declared target with the given name.
func (c *Config) TargetByName(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name.String() == name {
			return t, true
		}
	}
	return Target{}, false
}
