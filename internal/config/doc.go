// Package config resolves the service configuration.
//
// Every setting has a name (the environment variable that sets it), a
// built-in default, and an optional entry in a flat YAML file named by
// JOBSPY_CONFIG_FILE. The environment wins over the file and the file
// wins over defaults. The origin of every value is kept so the
// /config-sources endpoint can report it.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// File values may reference the environment with ${VAR} or
// ${VAR:-default}.
package config
