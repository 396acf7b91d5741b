package commands

import (
	"fmt"
	"os"

	"github.com/boreq/guinea"

	"github.com/openkad/kadroute/config"
)

var initCmd = guinea.Command{
	Options: []guinea.Option{
		{
			Name:        "f",
			Type:        guinea.Bool,
			Description: "Overwrite existing config",
		},
	},
	Run:              runInit,
	ShortDescription: "initializes configuration",
	Description: `
Creates a new config file with default configuration values and a freshly
generated random 160-bit self id.`,
}

func runInit(c guinea.Context) error {
	if !c.Options["f"].Bool() {
		if _, err := os.Stat(configFilePath()); err == nil {
			return fmt.Errorf("config already exists at %s, use '-f' to overwrite", configFilePath())
		}
	}

	conf := config.Default()
	if err := conf.Save(); err != nil {
		return err
	}

	self, err := conf.Self()
	if err != nil {
		return err
	}
	fmt.Printf("wrote config to %s\nself: %s\n", configFilePath(), self)
	return nil
}

func configFilePath() string {
	return config.Dir() + "/config.json"
}
