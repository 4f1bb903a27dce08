package models

type Config struct {
	Api struct {
		Url     string `envconfig:"HELIX_API_URL" default:"http://localhost:5000"`
		Port    string `envconfig:"HELIX_API_INTERNAL_PORT" default:"5000"`
		VcfPath string `envconfig:"HELIX_API_VCF_PATH" default:"./data/vcfs"`

		// optional gene-to-phenotype association table (tsv)
		PhenotypePath string `envconfig:"HELIX_API_PHENOTYPE_PATH"`

		// uploaded files and finished sessions older than this
		// many hours are swept by the sanitation job
		SessionRetentionHours int `envconfig:"HELIX_API_SESSION_RETENTION_HOURS" default:"24"`
	}
	Pipeline struct {
		PollIntervalMs   int `envconfig:"HELIX_POLL_INTERVAL_MS" default:"1500"`
		UploadChunkBytes int `envconfig:"HELIX_UPLOAD_CHUNK_BYTES" default:"1048576"`
		CompressionLevel int `envconfig:"HELIX_COMPRESSION_LEVEL" default:"6"`

		// files past this size are rejected before any network
		// work; 0 disables the ceiling
		MaxUploadBytes int64 `envconfig:"HELIX_MAX_UPLOAD_BYTES" default:"21474836480"`

		AutoAdvanceQc     bool `envconfig:"HELIX_AUTO_ADVANCE" default:"false"`
		VisibilityInitial int  `envconfig:"HELIX_VISIBILITY_INITIAL" default:"50"`
		VisibilityStep    int  `envconfig:"HELIX_VISIBILITY_STEP" default:"50"`
		PageSize          int  `envconfig:"HELIX_RESULTS_PAGE_SIZE" default:"500"`
	}
	Elasticsearch struct {
		Url      string `envconfig:"HELIX_ES_URL"`
		Username string `envconfig:"HELIX_ES_USERNAME"`
		Password string `envconfig:"HELIX_ES_PASSWORD"`
	}
	SemVer         string `envconfig:"HELIX_SEMVER" default:"0.0.1"`
	ServiceContact string `envconfig:"HELIX_SERVICE_CONTACT" default:"mailto:support@helena.bio"`
	Debug          bool   `envconfig:"HELIX_DEBUG" default:"false"`
}
