// Copyright (c) 2025 BVK Chaitanya

// Package envfile loads environment variable assignments from a dotenv style
// file into the process environment.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

type options struct {
	variableNamePrefix string

	searchCurrentDirectory bool

	scanParentDirectories bool

	overwriteIfExists bool

	dirs []string
}

// Parse reads KEY=VALUE assignments from the reader. Empty lines and lines
// starting with # are skipped. An optional "export " prefix is accepted and
// a value wrapped in a matching pair of single or double quotes is unquoted.
// No other shell expansion is performed.
func Parse(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		p := strings.IndexRune(line, '=')
		if p == -1 {
			return nil, fmt.Errorf("invalid/unrecognized variable assignment on line %d: %w", i, os.ErrInvalid)
		}
		key, value := strings.TrimSpace(line[:p]), strings.TrimSpace(line[p+1:])
		if !prefixRe.MatchString(key) {
			return nil, fmt.Errorf("invalid environment variable name %q on line %d: %w", key, i, os.ErrInvalid)
		}
		if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
			value = value[1 : n-1]
		}
		vars[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

func searchPaths(filename string, fopts *options) ([]string, error) {
	var fpaths []string
	for _, dir := range fopts.dirs {
		fpaths = append(fpaths, filepath.Join(dir, filename))
	}
	if fopts.searchCurrentDirectory {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		fpaths = append(fpaths, filepath.Join(cwd, filename))
		if fopts.scanParentDirectories {
			last, dir := cwd, filepath.Dir(cwd)
			for dir != last {
				fpaths = append(fpaths, filepath.Join(dir, filename))
				last, dir = dir, filepath.Dir(dir)
			}
		}
	}
	if len(fpaths) == 0 {
		user, err := user.Current()
		if err != nil {
			return nil, err
		}
		if len(user.HomeDir) == 0 {
			return nil, fmt.Errorf("could not determine current user's home directory")
		}
		fpaths = []string{filepath.Join(user.HomeDir, filename)}
	}
	return fpaths, nil
}

// UpdateEnv updates current process's environment with the values read from
// the first env file found in the search path. Home directory of the current
// user is searched by default; the search path and other behaviors can be
// changed by the input options. Missing env files are not an error.
func UpdateEnv(filename string, opts ...Option) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	var fopts options
	for _, v := range opts {
		if err := v.apply(&fopts); err != nil {
			return err
		}
	}
	fpaths, err := searchPaths(filename, &fopts)
	if err != nil {
		return err
	}
	for _, fpath := range fpaths {
		fp, err := os.Open(fpath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			continue
		}
		vars, err := Parse(fp)
		fp.Close()
		if err != nil {
			return fmt.Errorf("could not parse env file %q: %w", fpath, err)
		}
		for key, value := range vars {
			key = fopts.variableNamePrefix + key
			if len(os.Getenv(key)) != 0 && !fopts.overwriteIfExists {
				continue
			}
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
