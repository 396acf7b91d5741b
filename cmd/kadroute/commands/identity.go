package commands

import (
	"fmt"

	"github.com/boreq/guinea"
)

var identityCmd = guinea.Command{
	Run:              runIdentity,
	ShortDescription: "displays the local self id",
}

func runIdentity(c guinea.Context) error {
	conf, err := GetConfig()
	if err != nil {
		return err
	}
	self, err := conf.Self()
	if err != nil {
		return err
	}
	fmt.Println(self)
	return nil
}
