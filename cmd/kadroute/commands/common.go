package commands

import "github.com/openkad/kadroute/config"

// GetConfig loads the node configuration, creating a default one in memory
// if none has been saved yet (it does not write anything to disk - use
// `init` for that).
func GetConfig() (*config.Config, error) {
	return config.Get()
}
