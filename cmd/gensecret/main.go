// Gensecret prints a random hex key suitable for ACCESS_SECRET,
// REFRESH_SECRET, CSRF_KEY or ADMIN_KEY. The default length satisfies the
// production validation for all four.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultKeyBytes = 32

func main() {
	n := pflag.IntP("bytes", "n", defaultKeyBytes, "Key length in bytes before hex encoding")
	pflag.Parse()

	if *n <= 0 {
		fmt.Fprintln(os.Stderr, "key length must be positive")
		os.Exit(1)
	}

	b := make([]byte, *n)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
