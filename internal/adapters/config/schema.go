package config

// rulesFile is the on-disk structure of buildrules.yaml.
type rulesFile struct {
	Version   string       `yaml:"version"`
	Retries   *int         `yaml:"retries"`
	Tool      string       `yaml:"tool"`
	Stage     string       `yaml:"stage"`
	Cache     cacheDTO     `yaml:"cache"`
	Artifacts artifactsDTO `yaml:"artifacts"`
	Targets   []targetDTO  `yaml:"targets"`
	Specs     []specDTO    `yaml:"specs"`
}

type cacheDTO struct {
	Path string `yaml:"path"`
}

type artifactsDTO struct {
	Root      string `yaml:"root"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type targetDTO struct {
	Name        string   `yaml:"name"`
	Concurrency int      `yaml:"concurrency"`
	Runner      []string `yaml:"runner"`
}

type specDTO struct {
	Name     string   `yaml:"name"`
	Target   string   `yaml:"target"`
	Variants []string `yaml:"variants"`

	// DependsOn entries are either a bare spec name (same target) or an
	// explicit "target/spec" reference.
	DependsOn []string `yaml:"depends_on"`
}
