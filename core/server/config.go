package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// SnapshotTTLSeconds controls how long the review surface may serve a
	// cached inventory snapshot before reloading it.
	SnapshotTTLSeconds int `mapstructure:"snapshot_ttl_seconds" default:"30"`
}
