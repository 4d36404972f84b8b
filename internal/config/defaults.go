package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "glove-wiki-gigaword-300"
	}
	if cfg.Model.Source == "" {
		cfg.Model.Source = "files"
	}
	if cfg.Model.VocabPath == "" {
		cfg.Model.VocabPath = "/usr/local/var/w2vapi/models/" + cfg.Model.Name + ".vocab"
	}
	if cfg.Model.VectorsPath == "" {
		cfg.Model.VectorsPath = "/usr/local/var/w2vapi/models/" + cfg.Model.Name + ".vectors.npy"
	}
	if cfg.Download.MaxRetries == 0 {
		cfg.Download.MaxRetries = 3
	}
	if cfg.Download.RetryBackoffSeconds == 0 {
		cfg.Download.RetryBackoffSeconds = 2
	}
	if cfg.Similar.DefaultLimit == 0 {
		cfg.Similar.DefaultLimit = 10
	}
	if cfg.Similar.MaxLimit == 0 {
		cfg.Similar.MaxLimit = 100
	}
	if cfg.Similar.CacheSize == 0 {
		cfg.Similar.CacheSize = 1024
	}
}
