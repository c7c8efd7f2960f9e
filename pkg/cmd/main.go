package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Peripli/character-gallery/pkg/gallery"
	"github.com/Peripli/character-gallery/pkg/util"
	"github.com/sirupsen/logrus"
)

// credentialsCommand prints fresh basic auth credentials for the gallery configuration
const credentialsCommand = "credentials"

func main() {
	if len(os.Args) > 1 && os.Args[1] == credentialsCommand {
		printCredentials()
		return
	}

	env := gallery.DefaultEnv()

	g := gallery.New(context.Background(), env)
	g.Run()
}

func printCredentials() {
	username, password, passwordHash, err := util.GenerateBasicCredentials()
	if err != nil {
		logrus.Fatal("Error generating credentials: ", err)
	}
	fmt.Printf("user: %s\npassword: %s\ngallery.user=%s\ngallery.password_hash=%s\n", username, password, username, passwordHash)
}
