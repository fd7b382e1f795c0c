// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// AdminPassword returns the admin password from the environment or prompts
// for it without echo when stdin is a terminal.
func AdminPassword(envKey string) (string, error) {
	if v := os.Getenv(envKey); len(v) != 0 {
		return v, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("admin password is required; set %s or run from a terminal", envKey)
	}
	fmt.Fprint(os.Stderr, "Admin password: ")
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("could not read admin password: %w", err)
	}
	return string(data), nil
}

// Prompt prints the message and returns the next input line.
func Prompt(msg string) (string, error) {
	fmt.Fprint(os.Stderr, msg)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && len(line) == 0 {
		return "", fmt.Errorf("could not read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
