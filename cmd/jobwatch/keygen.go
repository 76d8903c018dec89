package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"
)

// secretLen is the number of random bytes in a signing secret.
const secretLen = 32

func runKeyGen(c *cli.Context) error {
	key := make([]byte, secretLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return errors.Wrap(err, "error reading random data")
	}

	fmt.Println(base64.StdEncoding.EncodeToString(key))

	return nil
}
