package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "STOCKSYNC_DB_DSN"
	EnvDBHost = "STOCKSYNC_DB_HOST"
	EnvDBUser = "STOCKSYNC_DB_USER"
	EnvDBName = "STOCKSYNC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
