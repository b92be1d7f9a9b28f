package config

// EnvPrefix is the envconfig prefix; individual tags carry it explicitly.
const EnvPrefix = "CARTSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
