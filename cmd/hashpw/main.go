// Command hashpw reads a password from stdin and prints its bcrypt hash, for
// inserting users into the users table by hand.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/geocoder89/authhub/internal/security"
)

func main() {
	reader := bufio.NewReader(os.Stdin)

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr, "hashpw: read password from stdin:", err)
		os.Exit(1)
	}

	password := strings.TrimRight(line, "\r\n")

	if password == "" {
		fmt.Fprintln(os.Stderr, "hashpw: empty password")
		os.Exit(1)
	}

	if len(password) > security.MaxPasswordBytes {
		fmt.Fprintf(os.Stderr, "hashpw: password longer than %d bytes\n", security.MaxPasswordBytes)
		os.Exit(1)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
